// Package codec provides the reversible storage encoding for the serialized
// reputation dataset. The implementation is chosen once at startup; callers
// must not depend on encoded output actually being smaller than the input.
package codec

import (
	"github.com/haukened/domrep/internal/rep/common/log"
)

// Codec is a reversible transform applied to dataset blobs before they are
// persisted. Decompress(Compress(x)) == x must hold for any input.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Name() string
}

// Select returns the codec for the configured name. Unknown names fall back
// to the identity codec, which warns once per process on first use.
func Select(name string, logger log.Logger) Codec {
	switch name {
	case "gzip":
		return NewGzip()
	case "none":
		return NewIdentity(logger)
	default:
		logger.Warn(map[string]any{"codec": name}, "Unknown codec requested, using identity")
		return NewIdentity(logger)
	}
}
