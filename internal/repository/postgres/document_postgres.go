package postgres

import (
	"context"
	"database/sql"
	"time"

	"securedoc/internal/model"
	"securedoc/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const docColumns = `id, secure_id, original_name, storage_path, size, content_type,
		owner_id, owner_email, allowed_action, expires_in, expire_at,
		COALESCE(receiver_shop_id, ''), sender_name, watermark_style, created_at`

func scanDocument(s interface {
	Scan(dest ...any) error
}) (*model.Document, error) {
	var d model.Document
	if err := s.Scan(
		&d.ID,
		&d.SecureID,
		&d.OriginalName,
		&d.StoragePath,
		&d.Size,
		&d.ContentType,
		&d.OwnerID,
		&d.OwnerEmail,
		&d.AllowedAction,
		&d.ExpiresIn,
		&d.ExpireAt,
		&d.ReceiverShopID,
		&d.SenderName,
		&d.WatermarkStyle,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, secure_id, original_name, storage_path, size, content_type,
			owner_id, owner_email, allowed_action, expires_in, expire_at,
			receiver_shop_id, sender_name, watermark_style, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14, $15)
		RETURNING ` + docColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.SecureID,
		doc.OriginalName,
		doc.StoragePath,
		doc.Size,
		doc.ContentType,
		doc.OwnerID,
		doc.OwnerEmail,
		doc.AllowedAction,
		doc.ExpiresIn,
		doc.ExpireAt,
		doc.ReceiverShopID,
		doc.SenderName,
		doc.WatermarkStyle,
		doc.CreatedAt,
	)
	return scanDocument(row)
}

// FindBySecureID fetches a single document by its secure identifier.
func (r *DocumentPostgres) FindBySecureID(ctx context.Context, secureID string) (*model.Document, error) {
	const q = `
		SELECT ` + docColumns + `
		FROM documents
		WHERE secure_id = $1
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, secureID))
}

// AppendAccessLog appends one audit entry, resolving the document by secure ID.
func (r *DocumentPostgres) AppendAccessLog(ctx context.Context, secureID string, entry *model.AccessLogEntry) error {
	const q = `
		INSERT INTO access_logs (id, document_id, accessed_by, snapshot, accessed_at)
		SELECT $1, d.id, $2, $3, $4 FROM documents d WHERE d.secure_id = $5
	`
	res, err := r.db.ExecContext(ctx, q, entry.ID, entry.AccessedBy, entry.Snapshot, entry.AccessedAt, secureID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAccessLogs returns a document's audit entries oldest first.
func (r *DocumentPostgres) ListAccessLogs(ctx context.Context, documentID string) ([]model.AccessLogEntry, error) {
	const q = `
		SELECT id, document_id, accessed_by, snapshot, accessed_at
		FROM access_logs
		WHERE document_id = $1
		ORDER BY accessed_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]model.AccessLogEntry, 0)
	for rows.Next() {
		var e model.AccessLogEntry
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.AccessedBy, &e.Snapshot, &e.AccessedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListByOwner returns a sender's documents newest first, with their logs.
func (r *DocumentPostgres) ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error) {
	const q = `
		SELECT ` + docColumns + `
		FROM documents
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`
	docs, err := r.queryDocuments(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		logs, err := r.ListAccessLogs(ctx, docs[i].ID)
		if err != nil {
			return nil, err
		}
		docs[i].AccessLogs = logs
	}
	return docs, nil
}

// ListShopInbox returns unexpired documents addressed to a shop, newest first.
func (r *DocumentPostgres) ListShopInbox(ctx context.Context, shopID string, now time.Time) ([]model.Document, error) {
	const q = `
		SELECT ` + docColumns + `
		FROM documents
		WHERE receiver_shop_id = $1 AND expire_at > $2
		ORDER BY created_at DESC, id DESC
	`
	return r.queryDocuments(ctx, q, shopID, now)
}

func (r *DocumentPostgres) queryDocuments(ctx context.Context, q string, args ...any) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// Revoke collapses expire_at to now and appends the blocked audit entry in
// one transaction. Both effects become durable together or not at all.
// The UPDATE guards on expire_at > now so the expiry only ever moves earlier.
func (r *DocumentPostgres) Revoke(ctx context.Context, secureID, reason string, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	const qCollapse = `
		UPDATE documents SET expire_at = $1
		WHERE secure_id = $2 AND expire_at > $1
		RETURNING id
	`
	var docID string
	collapsed := true
	if err := tx.QueryRowContext(ctx, qCollapse, now, secureID).Scan(&docID); err != nil {
		if err != sql.ErrNoRows {
			return false, err
		}
		// Already collapsed (or unknown); resolve the document id without
		// moving the expiry.
		collapsed = false
		const qFind = `SELECT id FROM documents WHERE secure_id = $1`
		if err := tx.QueryRowContext(ctx, qFind, secureID).Scan(&docID); err != nil {
			return false, err
		}
	}

	snapshot := model.BlockedPrefix + reason
	const qExisting = `
		SELECT COALESCE(bool_or(snapshot = $2), false)
		FROM access_logs
		WHERE document_id = $1 AND accessed_by = $3 AND snapshot LIKE $4
	`
	var sameReason bool
	if err := tx.QueryRowContext(ctx, qExisting, docID, snapshot, model.SecurityActor,
		model.BlockedPrefix+"%").Scan(&sameReason); err != nil {
		return false, err
	}

	if collapsed || !sameReason {
		const qAppend = `
			INSERT INTO access_logs (document_id, accessed_by, snapshot, accessed_at)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.ExecContext(ctx, qAppend, docID, model.SecurityActor, snapshot, now); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return !collapsed, nil
}
