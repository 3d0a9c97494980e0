package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/substitutions/internal/pkg/apperrors"
)

func TestNewPicksImplementation(t *testing.T) {
	assert.IsType(t, &HTTPSource{}, New(Options{Location: "https://example.edu/list.json"}))
	assert.IsType(t, &HTTPSource{}, New(Options{Location: "HTTP://example.edu/list.json"}))
	assert.IsType(t, &FileSource{}, New(Options{Location: "public/list.json"}))
}

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/list.json", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/list.json", time.Second, 0)
	body, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.Equal(t, srv.URL+"/list.json", src.Describe())
}

func TestHTTPSourceNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second, 0).Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPSourceTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource(url, time.Second, 0).Fetch(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
}

func TestHTTPSourceBodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat(" ", 64)))
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second, 16).Fetch(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidPayload)
}

func TestHTTPSourceHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPSource(srv.URL, 0, 0).Fetch(ctx)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFileSourceFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":1}]`), 0o600))

	src := NewFileSource(path, 0)
	body, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(body))
	assert.Equal(t, "file://"+path, src.Describe())
	assert.Equal(t, path, src.Path())
}

func TestFileSourceMissing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json"), 0).Fetch(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileSourceCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileSource("whatever.json", 0).Fetch(ctx)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSourceTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.json")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 32)), 0o600))

	_, err := NewFileSource(path, 8).Fetch(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidPayload)
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	w := NewWatcher(path, 20*time.Millisecond, zerolog.Nop())
	go func() { done <- w.Run(ctx, func() { calls.Add(1) }) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`[]`), 0o600))
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":1}]`), 0o600))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing", "list.json"), 0, zerolog.Nop())
	err := w.Run(context.Background(), func() {})
	assert.Error(t, err)
}
