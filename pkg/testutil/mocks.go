package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCheckouter implements versions.Checkouter
type MockCheckouter struct {
	mock.Mock
}

func (m *MockCheckouter) Checkout(ctx context.Context, repoDir, workDir, commit string) error {
	args := m.Called(ctx, repoDir, workDir, commit)
	return args.Error(0)
}

// MockManager implements services.Manager
type MockManager struct {
	mock.Mock
}

func (m *MockManager) Stop(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockManager) Start(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockManager) Reload(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockManager) IsActive(ctx context.Context, id string) bool {
	args := m.Called(ctx, id)
	return args.Bool(0)
}
