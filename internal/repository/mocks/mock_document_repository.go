package mocks

import (
	"context"
	"time"

	"securedoc/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindBySecureID(ctx context.Context, secureID string) (*model.Document, error) {
	args := m.Called(ctx, secureID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) AppendAccessLog(ctx context.Context, secureID string, entry *model.AccessLogEntry) error {
	args := m.Called(ctx, secureID, entry)
	return args.Error(0)
}

func (m *MockDocumentRepository) ListAccessLogs(ctx context.Context, documentID string) ([]model.AccessLogEntry, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AccessLogEntry), args.Error(1)
}

func (m *MockDocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Document, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListShopInbox(ctx context.Context, shopID string, now time.Time) ([]model.Document, error) {
	args := m.Called(ctx, shopID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentRepository) Revoke(ctx context.Context, secureID, reason string, now time.Time) (bool, error) {
	args := m.Called(ctx, secureID, reason, now)
	return args.Bool(0), args.Error(1)
}
