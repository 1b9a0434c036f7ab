package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"securedoc/internal/judge"
)

type MockJudge struct {
	mock.Mock
}

func (m *MockJudge) Judge(ctx context.Context, events []string, attempt int) judge.Judgment {
	args := m.Called(ctx, events, attempt)
	return args.Get(0).(judge.Judgment)
}
