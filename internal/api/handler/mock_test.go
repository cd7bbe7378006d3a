package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/siteinstaller/internal/installer"
	"github.com/edvin/siteinstaller/internal/model"
)

// mockBatcher implements Batcher for tests.
type mockBatcher struct {
	mock.Mock
}

func (m *mockBatcher) RunBatch(ctx context.Context, db installer.DB, archiveFile, seedFile string, identifiers []string) model.BatchResult {
	args := m.Called(ctx, db, archiveFile, seedFile, identifiers)
	return args.Get(0).(model.BatchResult)
}

// mockSession implements Session for tests.
type mockSession struct {
	mock.Mock
}

func (m *mockSession) Connect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSession) Exec(ctx context.Context, sql string) error {
	return m.Called(ctx, sql).Error(0)
}

func (m *mockSession) UseDatabase(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockSession) Close() error {
	return m.Called().Error(0)
}

// mockLister implements history.Lister for tests.
type mockLister struct {
	mock.Mock
}

func (m *mockLister) List(ctx context.Context, limit int) ([]model.ProvisionAttempt, error) {
	args := m.Called(ctx, limit)
	if v := args.Get(0); v != nil {
		return v.([]model.ProvisionAttempt), args.Error(1)
	}
	return nil, args.Error(1)
}

// batcherFunc adapts a function to Batcher.
type batcherFunc func(ctx context.Context, db installer.DB, archiveFile, seedFile string, identifiers []string) model.BatchResult

func (f batcherFunc) RunBatch(ctx context.Context, db installer.DB, archiveFile, seedFile string, identifiers []string) model.BatchResult {
	return f(ctx, db, archiveFile, seedFile, identifiers)
}
