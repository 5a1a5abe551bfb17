package reputation

import (
	"context"

	"github.com/haukened/domrep/internal/rep/domain"
)

// RecordStore is the read side of the canonical record index.
type RecordStore interface {
	Get(name string) (domain.Record, bool)
	FindVariant(name string) (domain.Record, bool)
	Len() int
	EstimatedBytes() int64
}

// ResultCache caches fully expanded lookup results.
type ResultCache interface {
	Get(key string) (domain.Reputation, bool)
	Set(key string, rep domain.Reputation)
	Len() int
	Stats() (hits, misses, evictions uint64)
}

// UpdateManager drives seeding, remote update cycles, and manual merges.
type UpdateManager interface {
	Bootstrap(ctx context.Context, seeds []domain.Record, seedVersion string) error
	RunCycle(ctx context.Context) error
	Apply(ctx context.Context, records []domain.Record, sourceID string) (int, error)
	Metadata() domain.Metadata
}
