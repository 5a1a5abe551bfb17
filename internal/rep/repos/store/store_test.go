package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/domrep/internal/rep/common/log"
	"github.com/haukened/domrep/internal/rep/domain"
	"github.com/haukened/domrep/internal/rep/repos/codec"
)

func newTestStore(t *testing.T) (*Store, codec.Codec) {
	t.Helper()
	c := codec.NewGzip()
	return New(c, log.NewNoopLogger()), c
}

func mustBlob(t *testing.T, c codec.Codec, records []domain.Record) []byte {
	t.Helper()
	data, err := json.Marshal(records)
	require.NoError(t, err)
	blob, err := c.Compress(data)
	require.NoError(t, err)
	return blob
}

func seedRecords() []domain.Record {
	return []domain.Record{
		{
			Domain:      "reuters.com",
			Score:       95,
			Category:    domain.CategoryNews,
			Bias:        domain.BiasCenter,
			LastUpdated: 1000,
			Variants:    []string{"reuters.co.uk", "www.reuters.de"},
		},
		{
			Domain:      "example.edu",
			Score:       88,
			Category:    domain.CategoryAcademic,
			LastUpdated: 1000,
		},
	}
}

func TestLoadAndGet(t *testing.T) {
	s, c := newTestStore(t)
	require.NoError(t, s.Load(mustBlob(t, c, seedRecords())))

	assert.Equal(t, 2, s.Len())

	rec, ok := s.Get("reuters.com")
	require.True(t, ok)
	assert.Equal(t, 95, rec.Score)

	// Variant keys resolve through the same index.
	rec, ok = s.Get("reuters.co.uk")
	require.True(t, ok)
	assert.Equal(t, "reuters.com", rec.Domain)

	_, ok = s.Get("missing.example")
	assert.False(t, ok)
}

func TestLoadRejectsBadBlob(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.Load([]byte("not compressed json"))
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 0, s.Len())
}

func TestLoadRejectsBadJSON(t *testing.T) {
	s, c := newTestStore(t)
	blob, err := c.Compress([]byte("{broken"))
	require.NoError(t, err)
	err = s.Load(blob)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestLoadReplacesPreviousContents(t *testing.T) {
	s, c := newTestStore(t)
	require.NoError(t, s.Load(mustBlob(t, c, seedRecords())))
	require.NoError(t, s.Load(mustBlob(t, c, []domain.Record{
		{Domain: "only.example", Score: 10, Category: domain.CategoryBlog, LastUpdated: 2000},
	})))

	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("reuters.com")
	assert.False(t, ok)
}

func TestFindVariant_WWWPrefix(t *testing.T) {
	s, _ := newTestStore(t)
	s.Merge([]domain.Record{{
		Domain:      "legacy.example",
		Score:       60,
		Category:    domain.CategoryCommercial,
		LastUpdated: 1000,
		Variants:    []string{"www.legacy-site.example"},
	}})

	rec, ok := s.FindVariant("legacy-site.example")
	require.True(t, ok)
	assert.Equal(t, "legacy.example", rec.Domain)
}

func TestFindVariant_ParentDomain(t *testing.T) {
	s, c := newTestStore(t)
	require.NoError(t, s.Load(mustBlob(t, c, seedRecords())))

	rec, ok := s.FindVariant("blogs.reuters.com")
	require.True(t, ok)
	assert.Equal(t, "reuters.com", rec.Domain)

	// Two-label names have no parent to probe.
	_, ok = s.FindVariant("nonexistent.org")
	assert.False(t, ok)
}

func TestFindVariant_CoUkSubstitution(t *testing.T) {
	s, c := newTestStore(t)
	require.NoError(t, s.Load(mustBlob(t, c, seedRecords())))

	rec, ok := s.FindVariant("reuters.co.uk")
	require.True(t, ok)
	assert.Equal(t, "reuters.com", rec.Domain)
}

func TestMergeMonotonicity(t *testing.T) {
	s, _ := newTestStore(t)
	s.Merge(seedRecords())

	// Older record must not replace.
	n := s.Merge([]domain.Record{{
		Domain: "reuters.com", Score: 10, Category: domain.CategoryBlog, LastUpdated: 500,
	}})
	assert.Equal(t, 0, n)
	rec, _ := s.Get("reuters.com")
	assert.Equal(t, 95, rec.Score)

	// Equal timestamp is a no-op too.
	n = s.Merge([]domain.Record{{
		Domain: "reuters.com", Score: 10, Category: domain.CategoryBlog, LastUpdated: 1000,
	}})
	assert.Equal(t, 0, n)

	// Strictly newer replaces.
	n = s.Merge([]domain.Record{{
		Domain: "reuters.com", Score: 97, Category: domain.CategoryNews, LastUpdated: 2000,
	}})
	assert.Equal(t, 1, n)
	rec, _ = s.Get("reuters.com")
	assert.Equal(t, 97, rec.Score)
}

func TestMergeInsertsNewRecords(t *testing.T) {
	s, _ := newTestStore(t)
	n := s.Merge(seedRecords())
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, s.Len())
}

func TestMergeReindexesVariants(t *testing.T) {
	s, _ := newTestStore(t)
	s.Merge([]domain.Record{{
		Domain: "site.example", Score: 50, Category: domain.CategoryNews,
		LastUpdated: 1000, Variants: []string{"old-alias.example"},
	}})

	_, ok := s.Get("old-alias.example")
	require.True(t, ok)

	s.Merge([]domain.Record{{
		Domain: "site.example", Score: 55, Category: domain.CategoryNews,
		LastUpdated: 2000, Variants: []string{"new-alias.example"},
	}})

	_, ok = s.Get("old-alias.example")
	assert.False(t, ok, "stale alias must be unindexed")
	rec, ok := s.Get("new-alias.example")
	require.True(t, ok)
	assert.Equal(t, 55, rec.Score)
}

func TestVariantOwnedByOneRecord(t *testing.T) {
	s, _ := newTestStore(t)
	s.Merge([]domain.Record{{
		Domain: "first.example", Score: 50, Category: domain.CategoryNews,
		LastUpdated: 1000, Variants: []string{"shared-alias.example"},
	}})
	s.Merge([]domain.Record{{
		Domain: "second.example", Score: 70, Category: domain.CategoryNews,
		LastUpdated: 2000, Variants: []string{"shared-alias.example"},
	}})

	rec, ok := s.Get("shared-alias.example")
	require.True(t, ok)
	assert.Equal(t, "second.example", rec.Domain, "alias maps to exactly one record")
}

func TestAliasCannotShadowCanonicalKey(t *testing.T) {
	s, _ := newTestStore(t)
	s.Merge([]domain.Record{{
		Domain: "victim.example", Score: 90, Category: domain.CategoryNews, LastUpdated: 1000,
	}})
	s.Merge([]domain.Record{{
		Domain: "attacker.example", Score: 5, Category: domain.CategoryBlog,
		LastUpdated: 2000, Variants: []string{"victim.example"},
	}})

	rec, ok := s.Get("victim.example")
	require.True(t, ok)
	assert.Equal(t, "victim.example", rec.Domain)
	assert.Equal(t, 90, rec.Score)
}

func TestAliasCannotShadowCanonicalAcrossReload(t *testing.T) {
	s, c := newTestStore(t)
	s.Merge([]domain.Record{{
		Domain: "victim.example", Score: 90, Category: domain.CategoryNews, LastUpdated: 1000,
	}})
	s.Merge([]domain.Record{{
		Domain: "attacker.example", Score: 5, Category: domain.CategoryBlog,
		LastUpdated: 2000, Variants: []string{"victim.example"},
	}})

	// The ownership rule must survive a persist/reload round trip.
	blob := mustBlob(t, c, s.Serialize())
	s2, _ := newTestStore(t)
	require.NoError(t, s2.Load(blob))

	rec, ok := s2.Get("victim.example")
	require.True(t, ok)
	assert.Equal(t, "victim.example", rec.Domain)
	assert.Equal(t, 90, rec.Score)
}

func TestLoadKeepsCanonicalOwnerOverVariant(t *testing.T) {
	s, c := newTestStore(t)
	// Variant collides with a canonical key that appears later in the blob;
	// index order must not matter.
	require.NoError(t, s.Load(mustBlob(t, c, []domain.Record{
		{
			Domain: "attacker.example", Score: 5, Category: domain.CategoryBlog,
			LastUpdated: 2000, Variants: []string{"victim.example"},
		},
		{
			Domain: "victim.example", Score: 90, Category: domain.CategoryNews, LastUpdated: 1000,
		},
	})))

	rec, ok := s.Get("victim.example")
	require.True(t, ok)
	assert.Equal(t, "victim.example", rec.Domain)
	assert.Equal(t, 90, rec.Score)
}

func TestMergeLogsVariantConflicts(t *testing.T) {
	logger := &captureLogger{}
	s := New(codec.NewGzip(), logger)

	s.Merge([]domain.Record{{
		Domain: "victim.example", Score: 90, Category: domain.CategoryNews, LastUpdated: 1000,
	}})
	s.Merge([]domain.Record{{
		Domain: "first.example", Score: 50, Category: domain.CategoryNews,
		LastUpdated: 1000, Variants: []string{"shared-alias.example"},
	}})

	s.Merge([]domain.Record{{
		Domain: "attacker.example", Score: 5, Category: domain.CategoryBlog,
		LastUpdated: 2000, Variants: []string{"victim.example"},
	}})
	s.Merge([]domain.Record{{
		Domain: "second.example", Score: 70, Category: domain.CategoryNews,
		LastUpdated: 2000, Variants: []string{"shared-alias.example"},
	}})

	require.Len(t, logger.warnings, 2)
	assert.Contains(t, logger.warnings[0], "canonical")
	assert.Contains(t, logger.warnings[1], "reassigned")
}

// captureLogger records warning messages for assertions.
type captureLogger struct {
	warnings []string
}

func (l *captureLogger) Debug(map[string]any, string) {}
func (l *captureLogger) Info(map[string]any, string)  {}
func (l *captureLogger) Warn(_ map[string]any, msg string) {
	l.warnings = append(l.warnings, msg)
}
func (l *captureLogger) Error(map[string]any, string) {}
func (l *captureLogger) Fatal(map[string]any, string) {}

func TestSerializeDeduplicates(t *testing.T) {
	s, c := newTestStore(t)
	require.NoError(t, s.Load(mustBlob(t, c, seedRecords())))

	out := s.Serialize()
	assert.Len(t, out, 2, "variants must not appear as separate records")
	seen := map[string]bool{}
	for _, rec := range out {
		assert.False(t, seen[rec.Domain], "duplicate canonical record %s", rec.Domain)
		seen[rec.Domain] = true
	}
}

func TestSerializeLoadRoundTrip(t *testing.T) {
	s, c := newTestStore(t)
	s.Merge(seedRecords())

	blob := mustBlob(t, c, s.Serialize())
	s2, _ := newTestStore(t)
	require.NoError(t, s2.Load(blob))

	assert.Equal(t, s.Len(), s2.Len())
	rec, ok := s2.Get("reuters.co.uk")
	require.True(t, ok)
	assert.Equal(t, "reuters.com", rec.Domain)
}

func TestEstimatedBytesPositive(t *testing.T) {
	s, _ := newTestStore(t)
	s.Merge(seedRecords())
	assert.Positive(t, s.EstimatedBytes())
}

func TestGetNormalizesInput(t *testing.T) {
	s, _ := newTestStore(t)
	s.Merge(seedRecords())

	rec, ok := s.Get("WWW.Reuters.COM.")
	require.True(t, ok)
	assert.Equal(t, "reuters.com", rec.Domain)
}
