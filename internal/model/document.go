package model

import "time"

// AllowedAction is what the recipient may do with a shared document.
type AllowedAction string

const (
	ActionPrint    AllowedAction = "PRINT"
	ActionDownload AllowedAction = "DOWNLOAD"
)

// WatermarkStyle selects how the provenance mark is rendered onto the
// document raster.
type WatermarkStyle string

const (
	WatermarkGhost  WatermarkStyle = "GHOST"
	WatermarkFooter WatermarkStyle = "FOOTER"
)

// Document represents a shared file in the system.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
type Document struct {
	ID             string         `json:"id"`
	SecureID       string         `json:"secure_id"`
	OriginalName   string         `json:"original_name"`
	StoragePath    string         `json:"storage_path"`
	Size           int64          `json:"size"`
	ContentType    string         `json:"content_type"`
	OwnerID        string         `json:"owner_id"`
	OwnerEmail     string         `json:"owner_email"`
	AllowedAction  AllowedAction  `json:"allowed_action"`
	ExpiresIn      int            `json:"expires_in"` // minutes
	ExpireAt       time.Time      `json:"expire_at"`
	ReceiverShopID string         `json:"receiver_shop_id,omitempty"`
	SenderName     string         `json:"sender_name"`
	WatermarkStyle WatermarkStyle `json:"watermark_type"`
	CreatedAt      time.Time      `json:"created_at"`

	// AccessLogs is populated on reads that request the audit trail.
	AccessLogs []AccessLogEntry `json:"access_logs,omitempty"`
}

// Expired reports whether the document is inaccessible at the given instant.
// ExpireAt only ever moves earlier after creation, so a true result is final.
func (d *Document) Expired(now time.Time) bool {
	return !now.Before(d.ExpireAt)
}

// RecipientLabel is the short identity fragment burned into the provenance
// mark: the shop code when the document is addressed to a shop, otherwise a
// prefix of the secure identifier.
func (d *Document) RecipientLabel() string {
	if d.ReceiverShopID != "" {
		return "SHOP: " + d.ReceiverShopID
	}
	id := d.SecureID
	if len(id) > 6 {
		id = id[:6]
	}
	return "ID: " + id
}

const (
	// SecurityActor is the sentinel actor label for log entries appended by
	// the watchdog rather than a human visitor.
	SecurityActor = "Security AI"

	// BlockedPrefix marks a revocation entry's snapshot text.
	BlockedPrefix = "BLOCKED: "
)

// AccessLogEntry is an append-only audit record attached to a Document.
// Entries are never edited or removed.
type AccessLogEntry struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	AccessedBy string    `json:"accessed_by"`
	Snapshot   string    `json:"snapshot,omitempty"`
	AccessedAt time.Time `json:"accessed_at"`
}

// Blocked reports whether this entry records an AI-triggered revocation.
func (e *AccessLogEntry) Blocked() bool {
	return e.AccessedBy == SecurityActor && len(e.Snapshot) >= len(BlockedPrefix) && e.Snapshot[:len(BlockedPrefix)] == BlockedPrefix
}

// Shop is a registered recipient endpoint identified by a short code, to
// which documents may be addressed instead of a public link.
type Shop struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ShopID    string    `json:"shop_id"`
	ShopName  string    `json:"shop_name"`
	CreatedAt time.Time `json:"created_at"`
}
