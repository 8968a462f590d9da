package mocks

import (
	"context"

	"github.com/benmeehan/fieldsales-agent/internal/outbox"
	"github.com/benmeehan/fieldsales-agent/pkg/identity"
	"github.com/benmeehan/fieldsales-agent/pkg/location"
	"github.com/stretchr/testify/mock"
)

// MockLocationAcquirer is a mock implementation of the LocationAcquirer interface
type MockLocationAcquirer struct {
	mock.Mock
}

func (m *MockLocationAcquirer) Acquire(ctx context.Context) (location.Coordinates, error) {
	args := m.Called(ctx)
	return args.Get(0).(location.Coordinates), args.Error(1)
}

// MockPhotoStore is a mock implementation of the s3.PhotoStore interface
type MockPhotoStore struct {
	mock.Mock
}

func (m *MockPhotoStore) UploadPhoto(ctx context.Context, objectName string, data []byte) (string, error) {
	args := m.Called(ctx, objectName, data)
	return args.String(0), args.Error(1)
}

// MockOutboxStore is a mock implementation of the outbox.Store interface
type MockOutboxStore struct {
	mock.Mock
}

func (m *MockOutboxStore) Enqueue(ctx context.Context, action, id string, payload []byte) error {
	args := m.Called(ctx, action, id, payload)
	return args.Error(0)
}

func (m *MockOutboxStore) Pending(ctx context.Context, limit int) ([]outbox.Entry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]outbox.Entry), args.Error(1)
}

func (m *MockOutboxStore) MarkSent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxStore) RecordFailure(ctx context.Context, id string, cause error) error {
	args := m.Called(ctx, id, cause)
	return args.Error(0)
}

func (m *MockOutboxStore) Discard(ctx context.Context, id string, cause error) error {
	args := m.Called(ctx, id, cause)
	return args.Error(0)
}

func (m *MockOutboxStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockSessionStore is a mock implementation of the identity.SessionStoreInterface
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Load() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSessionStore) Save(session identity.Session) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockSessionStore) Clear() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSessionStore) Current() (identity.Session, error) {
	args := m.Called()
	return args.Get(0).(identity.Session), args.Error(1)
}
