package mocks

import (
	"context"

	"securedoc/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockShopRepository struct {
	mock.Mock
}

func (m *MockShopRepository) Create(ctx context.Context, shop *model.Shop) (*model.Shop, error) {
	args := m.Called(ctx, shop)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Shop), args.Error(1)
}

func (m *MockShopRepository) FindByOwner(ctx context.Context, ownerID string) (*model.Shop, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Shop), args.Error(1)
}

func (m *MockShopRepository) FindByShopID(ctx context.Context, shopID string) (*model.Shop, error) {
	args := m.Called(ctx, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Shop), args.Error(1)
}
