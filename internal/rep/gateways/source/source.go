// Package source fetches dataset manifests and payloads from the remote
// update endpoint. Network and server-side failures are classified as
// transient so the update manager can retry them with backoff; a missing
// manifest simply means there is nothing to do.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/haukened/domrep/internal/rep/common/log"
	"github.com/haukened/domrep/internal/rep/domain"
)

// Client talks to the remote update source over HTTP.
type Client struct {
	manifestURL string
	http        *http.Client
	logger      log.Logger
}

// Options configures a Client.
type Options struct {
	// ManifestURL is the manifest endpoint. Required.
	ManifestURL string
	// Timeout bounds each fetch, including body read.
	Timeout time.Duration
	// Logger records fetch diagnostics.
	Logger log.Logger
}

// New constructs a Client from options.
func New(opts Options) (*Client, error) {
	if opts.ManifestURL == "" {
		return nil, errors.New("source: manifest URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Client{
		manifestURL: opts.ManifestURL,
		http:        &http.Client{Timeout: opts.Timeout},
		logger:      opts.Logger,
	}, nil
}

// FetchManifest retrieves the current manifest. A nil manifest with nil
// error means the source has nothing to offer (404 / 204).
func (c *Client) FetchManifest(ctx context.Context) (*domain.Manifest, error) {
	body, status, err := c.get(ctx, c.manifestURL)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || status == http.StatusNoContent {
		return nil, nil
	}

	var m domain.Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %v", domain.ErrValidation, err)
	}
	if m.Version == "" || m.URL == "" {
		return nil, fmt.Errorf("%w: manifest missing version or url", domain.ErrValidation)
	}
	return &m, nil
}

// FetchPayload retrieves and decodes a dataset payload. When checksum is
// non-empty the body must hash to it (hex-encoded SHA-256).
func (c *Client) FetchPayload(ctx context.Context, url, checksum string) ([]domain.Record, error) {
	body, _, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	if checksum != "" {
		sum := sha256.Sum256(body)
		if hex.EncodeToString(sum[:]) != checksum {
			return nil, fmt.Errorf("%w: payload checksum mismatch", domain.ErrValidation)
		}
	}

	var records []domain.Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", domain.ErrValidation, err)
	}
	return records, nil
}

// get performs a bounded GET, mapping transport failures and server errors
// to the transient taxonomy. 404/204 pass through for the caller to handle.
func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request: %v", domain.ErrValidation, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug(map[string]any{"url": url, "error": err.Error()}, "Fetch failed")
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, resp.StatusCode, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("%w: unexpected status %d from %s", domain.ErrTransientFetch, resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %v", domain.ErrTransientFetch, err)
	}
	return body, resp.StatusCode, nil
}
