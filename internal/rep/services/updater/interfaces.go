package updater

import (
	"context"

	"github.com/haukened/domrep/internal/rep/domain"
)

// RecordStore is the slice of the record store the update manager drives.
type RecordStore interface {
	Load(blob []byte) error
	Merge(records []domain.Record) int
	Serialize() []domain.Record
	Len() int
}

// ResultCache is purged after every successful database update so cached
// lookups cannot reference replaced records.
type ResultCache interface {
	Purge()
}

// UpdateSource provides remote dataset manifests and payloads.
type UpdateSource interface {
	FetchManifest(ctx context.Context) (*domain.Manifest, error)
	FetchPayload(ctx context.Context, url, checksum string) ([]domain.Record, error)
}
