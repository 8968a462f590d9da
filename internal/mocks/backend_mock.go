package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCaller is a mock implementation of the backend.Caller interface
type MockCaller struct {
	mock.Mock
}

func (m *MockCaller) Call(ctx context.Context, action string, params map[string]any, out any) error {
	args := m.Called(ctx, action, params, out)
	return args.Error(0)
}
