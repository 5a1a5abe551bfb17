package reputation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/domrep/internal/rep/common/clock"
	"github.com/haukened/domrep/internal/rep/common/log"
	"github.com/haukened/domrep/internal/rep/domain"
	"github.com/haukened/domrep/internal/rep/repos/codec"
	"github.com/haukened/domrep/internal/rep/repos/repcache"
	"github.com/haukened/domrep/internal/rep/repos/storage/mem"
	"github.com/haukened/domrep/internal/rep/repos/store"
	"github.com/haukened/domrep/internal/rep/services/updater"
)

func testSeeds() []domain.Record {
	return []domain.Record{
		{Domain: "reuters.com", Score: 95, Category: domain.CategoryNews, Bias: domain.BiasCenter, LastUpdated: 1000},
		{Domain: "nytimes.test", Score: 88, Category: domain.CategoryNews, LastUpdated: 1000},
		{Domain: "example-news.test", Score: 72, Category: domain.CategoryNews, LastUpdated: 1000,
			Variants: []string{"examplenews.test"}},
	}
}

func newService(t *testing.T) (*Service, repcache.Cache) {
	t.Helper()
	c := codec.NewGzip()
	st := store.New(c, log.NewNoopLogger())
	clk := clock.NewMock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	cache, err := repcache.New(100, time.Hour, clk)
	require.NoError(t, err)

	up := updater.New(updater.Options{
		Store:   st,
		Cache:   cache,
		Storage: mem.New(),
		Codec:   c,
		Clock:   clk,
		Logger:  log.NewNoopLogger(),
	})

	svc := New(Options{
		Store:   st,
		Cache:   cache,
		Updater: up,
		Clock:   clk,
		Logger:  log.NewNoopLogger(),
	})
	require.NoError(t, svc.Initialize(context.Background(), testSeeds(), "db-1.0.0"))
	return svc, cache
}

func TestLookupExactHitStripsWWW(t *testing.T) {
	svc, _ := newService(t)

	rep := svc.Lookup(context.Background(), "https://www.reuters.com/article/world")

	assert.Equal(t, "https://www.reuters.com/article/world", rep.Domain)
	assert.Equal(t, 95, rep.Score)
	assert.Equal(t, domain.CategoryNews, rep.Category)
	assert.Equal(t, domain.ConfidenceExact, rep.Confidence)
	assert.Equal(t, domain.SourceDatabase, rep.Source)
}

func TestLookupBareHostname(t *testing.T) {
	svc, _ := newService(t)

	rep := svc.Lookup(context.Background(), "reuters.com")
	assert.Equal(t, 95, rep.Score)
	assert.Equal(t, domain.SourceDatabase, rep.Source)
}

func TestLookupRegisteredAlias(t *testing.T) {
	svc, _ := newService(t)

	rep := svc.Lookup(context.Background(), "examplenews.test")

	assert.Equal(t, 72, rep.Score)
	assert.Equal(t, domain.SourceVariant, rep.Source)
	assert.Equal(t, domain.ConfidenceDerived, rep.Confidence)
}

func TestLookupParentDomainVariant(t *testing.T) {
	svc, _ := newService(t)

	rep := svc.Lookup(context.Background(), "blog.nytimes.test")

	assert.Equal(t, 88, rep.Score)
	assert.Equal(t, domain.SourceVariant, rep.Source)
	assert.Equal(t, domain.ConfidenceDerived, rep.Confidence)
}

func TestLookupFallbackUntrusted(t *testing.T) {
	svc, _ := newService(t)

	rep := svc.Lookup(context.Background(), "https://totallyfakehoaxnews.biz/shocking")

	assert.Equal(t, 25, rep.Score)
	assert.Equal(t, domain.CategoryBlog, rep.Category)
	assert.Equal(t, domain.SourceFallback, rep.Source)
	assert.Equal(t, domain.ConfidenceDerived, rep.Confidence)
}

func TestLookupFallbackGovFloor(t *testing.T) {
	svc, _ := newService(t)

	rep := svc.Lookup(context.Background(), "data.example.gov")

	assert.GreaterOrEqual(t, rep.Score, 80)
	assert.Equal(t, domain.CategoryGovernment, rep.Category)
	assert.Equal(t, domain.SourceFallback, rep.Source)
}

func TestLookupMalformedInputDegrades(t *testing.T) {
	svc, _ := newService(t)

	for _, in := range []string{"", "   ", "http://"} {
		rep := svc.Lookup(context.Background(), in)
		assert.Equal(t, in, rep.Domain)
		assert.Equal(t, 50, rep.Score)
		assert.Equal(t, domain.CategoryUnknown, rep.Category)
		assert.Equal(t, domain.SourceFallback, rep.Source)
	}
}

func TestLookupCachesByCanonicalKey(t *testing.T) {
	svc, cache := newService(t)

	first := svc.Lookup(context.Background(), "https://www.reuters.com/a")
	second := svc.Lookup(context.Background(), "reuters.com/b")

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, "reuters.com/b", second.Domain, "cache hits echo the caller's spelling")

	hits, _, _ := cache.Stats()
	assert.Equal(t, uint64(1), hits)
}

func TestConfidenceOrdering(t *testing.T) {
	svc, _ := newService(t)

	exact := svc.Lookup(context.Background(), "reuters.com")
	derived := svc.Lookup(context.Background(), "blog.nytimes.test")

	assert.Greater(t, exact.Confidence, derived.Confidence)
}

func TestLookupBatchAlignsAndIsolates(t *testing.T) {
	svc, _ := newService(t)

	urls := []string{
		"https://www.reuters.com/x",
		"",
		"totallyfakehoaxnews.biz",
		"data.example.gov",
	}
	reps := svc.LookupBatch(context.Background(), urls)

	require.Len(t, reps, len(urls))
	assert.Equal(t, 95, reps[0].Score)
	assert.Equal(t, 50, reps[1].Score)
	assert.Equal(t, "", reps[1].Domain)
	assert.Equal(t, 25, reps[2].Score)
	assert.GreaterOrEqual(t, reps[3].Score, 80)
	for i, rep := range reps {
		if urls[i] != "" {
			assert.Equal(t, urls[i], rep.Domain)
		}
	}
}

func TestLookupBatchEmpty(t *testing.T) {
	svc, _ := newService(t)
	assert.Empty(t, svc.LookupBatch(context.Background(), nil))
}

func TestInitializeIsIdempotent(t *testing.T) {
	svc, _ := newService(t)
	require.NoError(t, svc.Initialize(context.Background(), nil, ""))
}

func TestUpdateRecordsInvalidatesCache(t *testing.T) {
	svc, _ := newService(t)

	before := svc.Lookup(context.Background(), "reuters.com")
	require.Equal(t, 95, before.Score)

	n, err := svc.UpdateRecords(context.Background(), []domain.Record{
		{Domain: "reuters.com", Score: 91, Category: domain.CategoryNews, LastUpdated: 2000},
	}, "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	after := svc.Lookup(context.Background(), "reuters.com")
	assert.Equal(t, 91, after.Score, "stale cached result must not survive an update")
}

func TestUpdateRecordsRejectsInvalid(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.UpdateRecords(context.Background(), []domain.Record{
		{Domain: "", Score: 10, Category: domain.CategoryNews},
	}, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStatistics(t *testing.T) {
	svc, _ := newService(t)

	svc.Lookup(context.Background(), "reuters.com")       // miss then fill
	svc.Lookup(context.Background(), "www.reuters.com")   // hit
	svc.Lookup(context.Background(), "unknownsite.test")  // miss, fallback

	stats := svc.Statistics()
	assert.Equal(t, 3, stats.TotalDomains)
	assert.Equal(t, "db-1.0.0", stats.DatabaseVersion)
	assert.Positive(t, stats.CompressionRatio)
	assert.Contains(t, stats.Sources, "seed")
	assert.Equal(t, 2, stats.CacheEntries)
	assert.Equal(t, uint64(1), stats.CacheHits)
	assert.Equal(t, uint64(2), stats.CacheMisses)
	assert.InDelta(t, 1.0/3.0, stats.CacheHitRate, 1e-9)
	assert.Positive(t, stats.MemoryBytes)
}

func TestTriggerUpdateWithoutSourceIsNoop(t *testing.T) {
	svc, _ := newService(t)
	assert.NoError(t, svc.TriggerUpdate(context.Background()))
}
