package api

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/siteinstaller/internal/api/handler"
	"github.com/edvin/siteinstaller/internal/config"
	"github.com/edvin/siteinstaller/internal/installer"
	"github.com/edvin/siteinstaller/internal/model"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type stubBatcher struct {
	calls int
	seed  string
	ids   []string
}

func (b *stubBatcher) RunBatch(_ context.Context, _ installer.DB, _, seedFile string, identifiers []string) model.BatchResult {
	b.calls++
	b.seed = seedFile
	b.ids = identifiers
	res := model.NewBatchResult()
	res.Created = append(res.Created, identifiers...)
	return res
}

type stubSession struct{ closed bool }

func (s *stubSession) Connect(context.Context) error             { return nil }
func (s *stubSession) Exec(context.Context, string) error        { return nil }
func (s *stubSession) UseDatabase(context.Context, string) error { return nil }
func (s *stubSession) Close() error                              { s.closed = true; return nil }

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	cfg := &config.Config{
		StagingDir:           t.TempDir(),
		MaxUploadBytes:       1 << 20,
		MaxConcurrentBatches: 2,
	}
	return NewServer(zerolog.Nop(), cfg, deps)
}

func TestServer_Root(t *testing.T) {
	srv := newTestServer(t, Deps{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello World!", rec.Body.String())
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(t, Deps{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Readyz(t *testing.T) {
	srv := newTestServer(t, Deps{Checks: map[string]Pinger{
		"mysql": pingFunc(func(context.Context) error { return nil }),
	}})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"mysql":"ok"}`, rec.Body.String())
}

func TestServer_ReadyzUnhealthy(t *testing.T) {
	srv := newTestServer(t, Deps{Checks: map[string]Pinger{
		"mysql":   pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		"history": pingFunc(func(context.Context) error { return nil }),
	}})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"mysql":"connection refused","history":"ok"}`, rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, Deps{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ProvisionRoutes(t *testing.T) {
	for _, target := range []string{"/", "/api/v1/provisions"} {
		t.Run(target, func(t *testing.T) {
			b := &stubBatcher{}
			sess := &stubSession{}
			srv := newTestServer(t, Deps{
				Batcher:  b,
				Sessions: func() handler.Session { return sess },
			})

			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			part, err := mw.CreateFormFile("zipFile", "site.zip")
			require.NoError(t, err)
			part.Write([]byte("zip"))
			require.NoError(t, mw.WriteField("accounts", "a,b"))
			require.NoError(t, mw.WriteField("sqlFileName", "seed"))
			require.NoError(t, mw.Close())

			r := httptest.NewRequest(http.MethodPost, target, &buf)
			r.Header.Set("Content-Type", mw.FormDataContentType())

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, r)

			assert.Equal(t, http.StatusCreated, rec.Code)
			assert.JSONEq(t, `{"createdAccounts":["a","b"],"canceledAccounts":[]}`, rec.Body.String())
			assert.Equal(t, 1, b.calls)
			assert.Equal(t, "seed", b.seed)
			assert.Equal(t, []string{"a", "b"}, b.ids)
			assert.True(t, sess.closed)
		})
	}
}

func TestServer_ProvisionBadRequest(t *testing.T) {
	b := &stubBatcher{}
	srv := newTestServer(t, Deps{Batcher: b, Sessions: func() handler.Session { return &stubSession{} }})

	r := httptest.NewRequest(http.MethodPost, "/", nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"errorCode":1012}`, rec.Body.String())
	assert.Zero(t, b.calls)
}

func TestServer_HistoryDisabled(t *testing.T) {
	srv := newTestServer(t, Deps{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/provisions", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
