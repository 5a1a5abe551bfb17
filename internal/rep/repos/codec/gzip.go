package codec

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// gzipCodec compresses blobs with stdlib gzip at default level.
type gzipCodec struct{}

// NewGzip returns the gzip-backed codec.
func NewGzip() Codec {
	return gzipCodec{}
}

func (gzipCodec) Name() string { return "gzip" }

func (gzipCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (gzipCodec) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return out, nil
}

var _ Codec = gzipCodec{}
