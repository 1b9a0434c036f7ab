package mocks

import (
	"context"

	"securedoc/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockShopService struct {
	mock.Mock
}

func (m *MockShopService) Create(ctx context.Context, ownerID, shopID, shopName string) (*model.Shop, error) {
	args := m.Called(ctx, ownerID, shopID, shopName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Shop), args.Error(1)
}

func (m *MockShopService) Mine(ctx context.Context, ownerID string) (*model.Shop, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Shop), args.Error(1)
}

func (m *MockShopService) Inbox(ctx context.Context, shopID string) ([]model.Document, error) {
	args := m.Called(ctx, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}
