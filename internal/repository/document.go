package repository

import (
	"context"
	"time"

	"securedoc/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record.
	// The caller provides required fields (ID, SecureID, ExpireAt, CreatedAt).
	// Returns the stored document (may include values set by the DB).
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindBySecureID returns a document addressed by its secure identifier,
	// without its access logs.
	FindBySecureID(ctx context.Context, secureID string) (*model.Document, error)

	// AppendAccessLog appends one audit entry for the given secure identifier.
	// Entries are append-only; there is no update or delete counterpart.
	AppendAccessLog(ctx context.Context, secureID string, entry *model.AccessLogEntry) error

	// ListAccessLogs returns a document's audit entries in chronological order.
	ListAccessLogs(ctx context.Context, documentID string) ([]model.AccessLogEntry, error)

	// ListByOwner returns a sender's documents newest first, logs included.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error)

	// ListShopInbox returns unexpired documents addressed to a shop, newest first.
	ListShopInbox(ctx context.Context, shopID string, now time.Time) ([]model.Document, error)

	// Revoke collapses a document's expiry to now and appends the blocked
	// audit entry in a single transaction. The expiry only ever moves
	// earlier; a second call with the same reason is a no-op and reports
	// alreadyRevoked. A call with a different reason appends another entry
	// (the log stays append-only) and still reports alreadyRevoked.
	Revoke(ctx context.Context, secureID, reason string, now time.Time) (alreadyRevoked bool, err error)
}

// ShopRepository defines data access for registered recipient shops.
type ShopRepository interface {
	// Create inserts a new shop. The shop code must be unique; a taken code
	// surfaces as ErrShopTaken.
	Create(ctx context.Context, shop *model.Shop) (*model.Shop, error)

	// FindByOwner returns the shop registered by an owner identity, or
	// sql.ErrNoRows if none exists.
	FindByOwner(ctx context.Context, ownerID string) (*model.Shop, error)

	// FindByShopID returns a shop by its short code.
	FindByShopID(ctx context.Context, shopID string) (*model.Shop, error)
}
