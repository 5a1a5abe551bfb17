package codec

import (
	"sync"

	"github.com/haukened/domrep/internal/rep/common/log"
)

// identityCodec passes blobs through unchanged. Used when compression is
// disabled or unavailable. It warns exactly once per process so operators
// notice the dataset is stored uncompressed.
type identityCodec struct {
	logger log.Logger
	once   *sync.Once
}

// NewIdentity returns the pass-through codec.
func NewIdentity(logger log.Logger) Codec {
	return identityCodec{logger: logger, once: &sync.Once{}}
}

func (identityCodec) Name() string { return "identity" }

func (c identityCodec) Compress(data []byte) ([]byte, error) {
	c.warnOnce()
	return data, nil
}

func (c identityCodec) Decompress(data []byte) ([]byte, error) {
	c.warnOnce()
	return data, nil
}

func (c identityCodec) warnOnce() {
	c.once.Do(func() {
		c.logger.Warn(nil, "Compression disabled, dataset stored as-is")
	})
}

var _ Codec = identityCodec{}
