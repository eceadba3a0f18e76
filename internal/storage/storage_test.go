package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/otcheredev/lab-report-portal/internal/cache"
	"github.com/otcheredev/lab-report-portal/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, key, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
}

func TestCleanKey(t *testing.T) {
	valid := map[string]string{
		"financials/a.pdf":        "financials/a.pdf",
		"financials//a.pdf":       "financials/a.pdf",
		"financials/./x/../a.pdf": "financials/a.pdf",
	}
	for in, want := range valid {
		got, err := CleanKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", "/etc/passwd", "..", "../secret", "a/../../b", `a\b`, "."} {
		_, err := CleanKey(in)
		assert.Error(t, err, in)
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a.pdf", Join("", "a.pdf"))
	assert.Equal(t, "financials/a.pdf", Join("financials", "a.pdf"))
	assert.Equal(t, "financials/a.pdf", Join("financials/", "a.pdf"))
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "financials/Stat Labs - Balance Sheet - 2024 - Accrual Basis.pdf", "pdf")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "marketing"), 0o755))

	store, err := NewLocalStore(root)
	require.NoError(t, err)
	assert.Equal(t, TypeFS, store.Type())
	ctx := context.Background()

	exists, err := store.Exists(ctx, "financials/Stat Labs - Balance Sheet - 2024 - Accrual Basis.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "financials/missing.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = store.Exists(ctx, "marketing")
	require.NoError(t, err)
	assert.False(t, exists, "directories are not files")

	_, err = store.Exists(ctx, "../outside.pdf")
	assert.Error(t, err)

	rc, err := store.Open(ctx, "financials/Stat Labs - Balance Sheet - 2024 - Accrual Basis.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "pdf", string(body))

	_, err = store.Open(ctx, "financials/missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewLocalStoreRequiresDirectory(t *testing.T) {
	_, err := NewLocalStore(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	_, err = NewLocalStore(file)
	assert.Error(t, err)
}

// countingStore records how often the backend is asked
type countingStore struct {
	Store
	calls  int
	exists bool
	err    error
}

func (s *countingStore) Exists(ctx context.Context, key string) (bool, error) {
	s.calls++
	return s.exists, s.err
}

func (s *countingStore) Type() Type { return TypeFS }

func TestCachedStore(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	m := metrics.NewNop()
	backend := &countingStore{exists: true}
	store := NewCachedStore(backend, c, time.Minute, m)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		exists, err := store.Exists(ctx, "financials/a.pdf")
		require.NoError(t, err)
		assert.True(t, exists)
	}
	assert.Equal(t, 1, backend.calls)

	backend.exists = false
	exists, err := store.Exists(ctx, "financials/b.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = store.Exists(ctx, "financials/b.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, 2, backend.calls)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.FileLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FileLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FileLookups.WithLabelValues("present")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FileLookups.WithLabelValues("absent")))
}

func TestCachedStoreErrorsAreNotCached(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	backend := &countingStore{err: errors.New("backend down")}
	store := NewCachedStore(backend, c, time.Minute, nil)
	ctx := context.Background()

	_, err := store.Exists(ctx, "financials/a.pdf")
	assert.Error(t, err)

	backend.err = nil
	backend.exists = true
	exists, err := store.Exists(ctx, "financials/a.pdf")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 2, backend.calls)
}

func TestCachedStoreDisabled(t *testing.T) {
	backend := &countingStore{exists: true}
	store := NewCachedStore(backend, nil, 0, nil)

	for i := 0; i < 2; i++ {
		_, err := store.Exists(context.Background(), "a.pdf")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, backend.calls)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	store, err := NewStore(ctx, Config{Type: TypeFS, BaseDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, TypeFS, store.Type())

	_, err = NewStore(ctx, Config{Type: "ftp"})
	assert.Error(t, err)

	_, err = NewStore(ctx, Config{Type: TypeS3})
	assert.Error(t, err, "bucket is required")
}

// fakeS3 answers path-style HEAD and GET requests for a fixed object set
func fakeS3(t *testing.T, objects map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := objects[r.URL.Path]
		if !ok {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestS3Store(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials"))
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	srv := fakeS3(t, map[string]string{
		"/reports/portal/marketing/Stat Labs - Brochure.pdf": "brochure",
	})

	ctx := context.Background()
	store, err := NewS3Store(ctx, S3Config{Bucket: "reports", Region: "us-east-1", Endpoint: srv.URL, Prefix: "portal/"})
	require.NoError(t, err)
	assert.Equal(t, TypeS3, store.Type())

	exists, err := store.Exists(ctx, "marketing/Stat Labs - Brochure.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "marketing/Stat Labs - Test Menu.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	rc, err := store.Open(ctx, "marketing/Stat Labs - Brochure.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "brochure", string(body))

	_, err = store.Open(ctx, "marketing/Stat Labs - Test Menu.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Exists(ctx, "../escape.pdf")
	assert.Error(t, err)
}
