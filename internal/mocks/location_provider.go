package mocks

import (
	"context"

	"github.com/benmeehan/fieldsales-agent/pkg/location"
	"github.com/stretchr/testify/mock"
)

// MockLocationProvider is a mock implementation of the location.Provider interface
type MockLocationProvider struct {
	mock.Mock
}

func (m *MockLocationProvider) Supported() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockLocationProvider) CurrentPosition(ctx context.Context, opts location.Options) (location.Reading, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(location.Reading), args.Error(1)
}

func (m *MockLocationProvider) Close() error {
	args := m.Called()
	return args.Error(0)
}
