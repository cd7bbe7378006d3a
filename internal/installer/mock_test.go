package installer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/siteinstaller/internal/model"
	"github.com/edvin/siteinstaller/internal/wpconfig"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Connect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockDB) Exec(ctx context.Context, sql string) error {
	return m.Called(ctx, sql).Error(0)
}

func (m *mockDB) UseDatabase(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

// execs returns the SQL passed to Exec, in call order.
func (m *mockDB) execs() []string {
	var out []string
	for _, c := range m.Calls {
		if c.Method == "Exec" {
			out = append(out, c.Arguments.String(1))
		}
	}
	return out
}

// newOKDB returns a mockDB on which every call succeeds.
func newOKDB() *mockDB {
	db := &mockDB{}
	db.On("Connect", mock.Anything).Return(nil)
	db.On("Exec", mock.Anything, mock.Anything).Return(nil)
	db.On("UseDatabase", mock.Anything, mock.Anything).Return(nil)
	return db
}

// ---------- Mock Extractor ----------

// mockExtractor implements Extractor. When files is set, Extract writes them
// into dest so later steps find a site on disk.
type mockExtractor struct {
	mock.Mock
	files map[string]string
}

func (m *mockExtractor) Extract(ctx context.Context, archivePath, dest string) error {
	args := m.Called(ctx, archivePath, dest)
	if err := args.Error(0); err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for name, body := range m.files {
		if err := os.WriteFile(filepath.Join(dest, name), []byte(body), 0o640); err != nil {
			return err
		}
	}
	return nil
}

// ---------- Mock Recorder ----------

// mockRecorder implements history.Recorder.
type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Start(ctx context.Context, a *model.ProvisionAttempt) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRecorder) Finish(ctx context.Context, id string, code model.ResultCode, finishedAt time.Time) error {
	return m.Called(ctx, id, code, finishedAt).Error(0)
}

// ---------- Rewriter stub ----------

// rewriterFunc adapts a function to ConfigRewriter.
type rewriterFunc func(src []byte, s wpconfig.Settings) []byte

func (f rewriterFunc) Rewrite(src []byte, s wpconfig.Settings) []byte {
	return f(src, s)
}
