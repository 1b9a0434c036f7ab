package mocks

import (
	"context"

	"securedoc/internal/model"
	"securedoc/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, files []service.UploadFile, in service.UploadInput) (*service.UploadResult, error) {
	args := m.Called(ctx, files, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockDocumentService) View(ctx context.Context, secureID string) (*model.Document, error) {
	args := m.Called(ctx, secureID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Render(ctx context.Context, secureID string) ([]byte, error) {
	args := m.Called(ctx, secureID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDocumentService) Verify(ctx context.Context, secureID, name, snapshot string) error {
	args := m.Called(ctx, secureID, name, snapshot)
	return args.Error(0)
}

func (m *MockDocumentService) OwnerLogs(ctx context.Context, ownerID string) ([]model.Document, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentService) SourceURL(ctx context.Context, secureID, ownerID string) (string, error) {
	args := m.Called(ctx, secureID, ownerID)
	return args.String(0), args.Error(1)
}
