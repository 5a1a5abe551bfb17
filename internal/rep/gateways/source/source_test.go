package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/domrep/internal/rep/common/log"
	"github.com/haukened/domrep/internal/rep/domain"
)

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(Options{
		ManifestURL: url,
		Timeout:     2 * time.Second,
		Logger:      log.NewNoopLogger(),
	})
	require.NoError(t, err)
	return c
}

func TestNewRequiresManifestURL(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestFetchManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"db-2.1.0","url":"https://cdn.example/db.json","checksum":"abc","size":1024}`))
	}))
	defer srv.Close()

	m, err := newClient(t, srv.URL).FetchManifest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "db-2.1.0", m.Version)
	assert.Equal(t, "https://cdn.example/db.json", m.URL)
}

func TestFetchManifestAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	m, err := newClient(t, srv.URL).FetchManifest(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, m, "404 means nothing to do, not an error")
}

func TestFetchManifestServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).FetchManifest(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransientFetch)
}

func TestFetchManifestRejectsIncomplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":""}`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).FetchManifest(context.Background())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFetchManifestUnreachableIsTransient(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:1/manifest.json")
	_, err := c.FetchManifest(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransientFetch)
}

func TestFetchPayload(t *testing.T) {
	payload := `[{"domain":"reuters.com","score":95,"category":"news","last_updated":1700000000}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	sum := sha256.Sum256([]byte(payload))
	records, err := newClient(t, srv.URL).FetchPayload(context.Background(), srv.URL, hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "reuters.com", records[0].Domain)
	assert.Equal(t, 95, records[0].Score)
}

func TestFetchPayloadChecksumMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).FetchPayload(context.Background(), srv.URL, "deadbeef")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFetchPayloadBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).FetchPayload(context.Background(), srv.URL, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFetchRespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := newClient(t, srv.URL).FetchManifest(ctx)
	assert.ErrorIs(t, err, domain.ErrTransientFetch)
}
