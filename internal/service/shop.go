package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"securedoc/internal/model"
	"securedoc/internal/repository"
)

var (
	ErrShopTaken       = errors.New("shop id already taken")
	ErrShopIDRequired  = errors.New("shop id is required")
	ErrOwnerIDRequired = errors.New("owner id is required")
)

// ShopService manages the registered recipient endpoints (print shops).
type ShopService interface {
	// Create registers a new shop code for an owner identity.
	Create(ctx context.Context, ownerID, shopID, shopName string) (*model.Shop, error)

	// Mine returns the owner's shop, or nil when none is registered.
	Mine(ctx context.Context, ownerID string) (*model.Shop, error)

	// Inbox returns unexpired documents addressed to the shop, newest first.
	Inbox(ctx context.Context, shopID string) ([]model.Document, error)
}

type shopService struct {
	shops repository.ShopRepository
	docs  repository.DocumentRepository
	now   func() time.Time
}

// NewShopService constructs a new ShopService.
func NewShopService(shops repository.ShopRepository, docs repository.DocumentRepository) ShopService {
	return &shopService{shops: shops, docs: docs, now: time.Now}
}

func (s *shopService) Create(ctx context.Context, ownerID, shopID, shopName string) (*model.Shop, error) {
	if ownerID == "" {
		return nil, ErrOwnerIDRequired
	}
	shopID = strings.ToUpper(strings.TrimSpace(shopID))
	if shopID == "" {
		return nil, ErrShopIDRequired
	}
	shop := &model.Shop{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		ShopID:    shopID,
		ShopName:  shopName,
		CreatedAt: s.now().UTC(),
	}
	stored, err := s.shops.Create(ctx, shop)
	if err != nil {
		if errors.Is(err, repository.ErrShopTaken) {
			return nil, ErrShopTaken
		}
		return nil, err
	}
	return stored, nil
}

func (s *shopService) Mine(ctx context.Context, ownerID string) (*model.Shop, error) {
	if ownerID == "" {
		return nil, ErrOwnerIDRequired
	}
	shop, err := s.shops.FindByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return shop, nil
}

func (s *shopService) Inbox(ctx context.Context, shopID string) ([]model.Document, error) {
	if shopID == "" {
		return nil, ErrShopIDRequired
	}
	return s.docs.ListShopInbox(ctx, shopID, s.now())
}
