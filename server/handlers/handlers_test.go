package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recommerce/asset/internal/pathutil"
	"github.com/recommerce/asset/session"
)

type stubAssets struct {
	existsErr error
	getErr    error
	listErr   error
	content   string
	staged    []string
}

func (s *stubAssets) Get(ctx context.Context, assetFile, localFile string) (string, error) {
	s.staged = append(s.staged, localFile)
	if s.getErr != nil {
		return "", s.getErr
	}
	return localFile, os.WriteFile(localFile, []byte(s.content), 0644)
}

func (s *stubAssets) ListFiles(ctx context.Context, dir, pattern string) ([]string, error) {
	return nil, s.listErr
}

func (s *stubAssets) Exists(ctx context.Context, assetFile string) (bool, error) {
	return s.existsErr == nil, s.existsErr
}

func TestParseAssetPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"a/b.txt", "a/b.txt", false},
		{"a//b/./c.txt", "a/b/c.txt", false},
		{"dir/", "dir", false},
		{"a/../b.txt", "b.txt", false},
		{"../b.txt", "", true},
		{`a\b.txt`, "", true},
		{"a/\x00.txt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAssetPath(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, pathutil.ErrForbidden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func serveAsset(t *testing.T, assets Assets, tmpDir, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/assets/*", V1GetAsset(assets, tmpDir, zap.NewNop()))
	r.Get("/list/*", V1ListAssets(assets, zap.NewNop()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestV1GetAsset_RemovesStagingFile(t *testing.T) {
	tmpDir := t.TempDir()
	assets := &stubAssets{content: "payload"}

	rec := serveAsset(t, assets, tmpDir, "/assets/dir/report.csv")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "payload", rec.Body.String())
	require.Len(t, assets.staged, 1)
	assert.NoFileExists(t, assets.staged[0])

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestV1GetAsset_BackendUnavailable(t *testing.T) {
	connErr := &session.ConnectionError{Backend: "ftp", Attempts: 3, Err: errors.New("refused")}
	rec := serveAsset(t, &stubAssets{existsErr: connErr}, t.TempDir(), "/assets/a.txt")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "BACKEND_UNAVAILABLE", decodeError(t, rec).Code)
}

func TestV1GetAsset_TransferFailure(t *testing.T) {
	tmpDir := t.TempDir()
	assets := &stubAssets{getErr: errors.New("broken pipe")}

	rec := serveAsset(t, assets, tmpDir, "/assets/a.txt")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
	require.Len(t, assets.staged, 1)
	assert.NoFileExists(t, assets.staged[0])
}

func TestV1ListAssets_EmptyListing(t *testing.T) {
	rec := serveAsset(t, &stubAssets{}, t.TempDir(), "/list/empty")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"path":"empty","count":0,"items":[]}`, rec.Body.String())
}

type sessionAssets struct {
	stubAssets
	connected bool
}

func (s *sessionAssets) Connected() bool {
	return s.connected
}

func TestV1Health(t *testing.T) {
	tests := []struct {
		name   string
		assets Assets
		want   string
	}{
		{"stateless backend", &stubAssets{}, `{"status":"ok","backend_connected":true}`},
		{"connected session", NewSerialized(&sessionAssets{connected: true}), `{"status":"ok","backend_connected":true}`},
		{"lost session", NewSerialized(&sessionAssets{connected: false}), `{"status":"degraded","backend_connected":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			V1Health(tt.assets, zap.NewNop())(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

type slowAssets struct {
	stubAssets
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (s *slowAssets) Exists(ctx context.Context, assetFile string) (bool, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return true, nil
}

func TestSerialized_OneCallAtATime(t *testing.T) {
	inner := &slowAssets{}
	assets := NewSerialized(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = assets.Exists(context.Background(), "a.txt")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inner.maxSeen.Load())
}
