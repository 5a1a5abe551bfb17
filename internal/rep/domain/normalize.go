package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Canonicalize returns a hostname in canonical store-key form:
//   - Trimmed of surrounding whitespace
//   - Lowercased
//   - No trailing dots
//   - No "www." prefix
//
// The function is pure and idempotent: Canonicalize(Canonicalize(x)) ==
// Canonicalize(x) for any input, including stacked "www.www." prefixes.
func Canonicalize(host string) string {
	host = strings.TrimSpace(host)
	host = strings.ToLower(host)
	for strings.HasSuffix(host, ".") {
		host = strings.TrimSuffix(host, ".")
	}
	for strings.HasPrefix(host, "www.") {
		host = strings.TrimPrefix(host, "www.")
	}
	return host
}

// HostFromURL extracts the hostname from a raw URL or bare domain string.
// Inputs without a scheme ("reuters.com/path") are accepted.
func HostFromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrValidation)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: no hostname in %q", ErrValidation, raw)
	}
	return host, nil
}
