package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"securedoc/internal/model"
	"securedoc/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShopPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewShopPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()

	shop := &model.Shop{
		ID:        "shop-uuid",
		OwnerID:   "owner-1",
		ShopID:    "HERO-1",
		ShopName:  "Hero Prints",
		CreatedAt: now,
	}

	t.Run("inserted", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO shops").
			WithArgs(shop.ID, shop.OwnerID, shop.ShopID, shop.ShopName, shop.CreatedAt).
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "shop_id", "shop_name", "created_at"}).
				AddRow(shop.ID, shop.OwnerID, shop.ShopID, shop.ShopName, shop.CreatedAt))

		result, err := repo.Create(ctx, shop)

		assert.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, "HERO-1", result.ShopID)
	})

	t.Run("duplicate code maps to ErrShopTaken", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO shops").
			WithArgs(shop.ID, shop.OwnerID, shop.ShopID, shop.ShopName, shop.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := repo.Create(ctx, shop)
		assert.ErrorIs(t, err, repository.ErrShopTaken)
	})
}

func TestShopPostgres_FindByShopID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewShopPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM shops WHERE shop_id").
			WithArgs("HERO-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "shop_id", "shop_name", "created_at"}).
				AddRow("shop-uuid", "owner-1", "HERO-1", "Hero Prints", time.Now()))

		shop, err := repo.FindByShopID(ctx, "HERO-1")

		assert.NoError(t, err)
		require.NotNil(t, shop)
		assert.Equal(t, "owner-1", shop.OwnerID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM shops WHERE shop_id").
			WithArgs("NOPE-1").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByShopID(ctx, "NOPE-1")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestShopPostgres_FindByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewShopPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM shops WHERE owner_id").
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "shop_id", "shop_name", "created_at"}).
			AddRow("shop-uuid", "owner-1", "HERO-1", "Hero Prints", time.Now()))

	shop, err := repo.FindByOwner(ctx, "owner-1")

	assert.NoError(t, err)
	require.NotNil(t, shop)
	assert.Equal(t, "HERO-1", shop.ShopID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
