package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"securedoc/internal/model"
	"securedoc/internal/repository"
)

// ShopPostgres is a PostgreSQL implementation of repository.ShopRepository.
type ShopPostgres struct {
	db *sql.DB
}

// NewShopPostgres creates a new ShopPostgres repository.
func NewShopPostgres(db *sql.DB) *ShopPostgres {
	return &ShopPostgres{db: db}
}

var _ repository.ShopRepository = (*ShopPostgres)(nil)

const shopColumns = `id, owner_id, shop_id, shop_name, created_at`

func scanShop(s interface {
	Scan(dest ...any) error
}) (*model.Shop, error) {
	var sh model.Shop
	if err := s.Scan(&sh.ID, &sh.OwnerID, &sh.ShopID, &sh.ShopName, &sh.CreatedAt); err != nil {
		return nil, err
	}
	return &sh, nil
}

// Create inserts a new shop row. A unique violation on the shop code maps
// to repository.ErrShopTaken.
func (r *ShopPostgres) Create(ctx context.Context, shop *model.Shop) (*model.Shop, error) {
	const q = `
		INSERT INTO shops (id, owner_id, shop_id, shop_name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + shopColumns
	row := r.db.QueryRowContext(ctx, q,
		shop.ID,
		shop.OwnerID,
		shop.ShopID,
		shop.ShopName,
		shop.CreatedAt,
	)
	out, err := scanShop(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, repository.ErrShopTaken
		}
		return nil, err
	}
	return out, nil
}

// FindByOwner returns the shop registered by an owner identity.
func (r *ShopPostgres) FindByOwner(ctx context.Context, ownerID string) (*model.Shop, error) {
	const q = `SELECT ` + shopColumns + ` FROM shops WHERE owner_id = $1`
	return scanShop(r.db.QueryRowContext(ctx, q, ownerID))
}

// FindByShopID returns a shop by its short code.
func (r *ShopPostgres) FindByShopID(ctx context.Context, shopID string) (*model.Shop, error) {
	const q = `SELECT ` + shopColumns + ` FROM shops WHERE shop_id = $1`
	return scanShop(r.db.QueryRowContext(ctx, q, shopID))
}
