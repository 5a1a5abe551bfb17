// Package reputation is the public facade of the engine. Lookup methods
// never return errors: malformed input, an empty store, and internal faults
// all degrade to a safe neutral reputation instead of failing the caller.
package reputation

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/haukened/domrep/internal/rep/common/clock"
	"github.com/haukened/domrep/internal/rep/common/log"
	"github.com/haukened/domrep/internal/rep/domain"
	"github.com/haukened/domrep/internal/rep/repos/heuristic"
)

// batchConcurrency bounds how many lookups a single batch runs in parallel.
const batchConcurrency = 8

// Service answers reputation queries against the store, the result cache,
// and the heuristic fallback scorer.
type Service struct {
	store   RecordStore
	cache   ResultCache
	updater UpdateManager
	clock   clock.Clock
	logger  log.Logger

	initialized atomic.Bool
}

type Options struct {
	Store   RecordStore
	Cache   ResultCache
	Updater UpdateManager
	Clock   clock.Clock
	Logger  log.Logger
}

func New(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Service{
		store:   opts.Store,
		cache:   opts.Cache,
		updater: opts.Updater,
		clock:   opts.Clock,
		logger:  opts.Logger,
	}
}

// Initialize loads the persisted database or seeds it from the provided
// dataset. Safe to call more than once; repeat calls are no-ops after the
// first success.
func (s *Service) Initialize(ctx context.Context, seeds []domain.Record, seedVersion string) error {
	if s.initialized.Load() {
		return nil
	}
	if err := s.updater.Bootstrap(ctx, seeds, seedVersion); err != nil {
		return err
	}
	s.initialized.Store(true)
	return nil
}

// Lookup resolves the reputation of the domain in rawURL. It accepts full
// URLs and bare hostnames, never returns an error, and always produces a
// usable reputation. The returned Domain field echoes rawURL verbatim.
func (s *Service) Lookup(ctx context.Context, rawURL string) domain.Reputation {
	host, err := domain.HostFromURL(rawURL)
	if err != nil {
		s.logger.Debug(map[string]any{"url": rawURL, "error": err.Error()}, "Unparseable lookup input")
		return domain.SafeDefault(rawURL)
	}
	cn := domain.Canonicalize(host)
	if cn == "" {
		return domain.SafeDefault(rawURL)
	}

	if rep, ok := s.cache.Get(cn); ok {
		// The cached entry may have been inserted under a different original
		// spelling; re-stamp the caller's.
		rep.Domain = rawURL
		return rep
	}

	rep := s.resolve(cn).Expand(rawURL)
	s.cache.Set(cn, rep)
	return rep
}

// LookupBatch resolves many URLs concurrently. Results line up with the
// input slice, and one malformed entry never affects its neighbors.
func (s *Service) LookupBatch(ctx context.Context, rawURLs []string) []domain.Reputation {
	results := make([]domain.Reputation, len(rawURLs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, raw := range rawURLs {
		g.Go(func() error {
			results[i] = s.Lookup(ctx, raw)
			return nil
		})
	}
	_ = g.Wait() // lookups never error
	return results
}

// UpdateRecords merges caller-supplied records through the update manager's
// backup and rollback protocol. Returns how many records were applied.
func (s *Service) UpdateRecords(ctx context.Context, records []domain.Record, sourceID string) (int, error) {
	if sourceID == "" {
		sourceID = "manual"
	}
	return s.updater.Apply(ctx, records, sourceID)
}

// TriggerUpdate runs one remote update cycle if the deployment is eligible.
func (s *Service) TriggerUpdate(ctx context.Context) error {
	return s.updater.RunCycle(ctx)
}

// Stats is a point-in-time snapshot of engine state and counters.
type Stats struct {
	TotalDomains     int      `json:"total_domains"`
	DatabaseVersion  string   `json:"database_version"`
	LastUpdated      int64    `json:"last_updated"`
	CompressionRatio float64  `json:"compression_ratio"`
	Sources          []string `json:"sources,omitempty"`
	CacheEntries     int      `json:"cache_entries"`
	CacheHits        uint64   `json:"cache_hits"`
	CacheMisses      uint64   `json:"cache_misses"`
	CacheEvictions   uint64   `json:"cache_evictions"`
	CacheHitRate     float64  `json:"cache_hit_rate"`
	MemoryBytes      int64    `json:"memory_bytes"`
}

// Statistics reports store size, database metadata, and cache counters.
func (s *Service) Statistics() Stats {
	meta := s.updater.Metadata()
	hits, misses, evictions := s.cache.Stats()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		TotalDomains:     s.store.Len(),
		DatabaseVersion:  meta.Version,
		LastUpdated:      meta.LastUpdated,
		CompressionRatio: meta.CompressionRatio,
		Sources:          meta.Sources,
		CacheEntries:     s.cache.Len(),
		CacheHits:        hits,
		CacheMisses:      misses,
		CacheEvictions:   evictions,
		CacheHitRate:     hitRate,
		MemoryBytes:      s.store.EstimatedBytes(),
	}
}

// resolve walks the lookup pipeline for a canonical name: exact key, then
// registered or derived variants, then the heuristic scorer. Every branch
// produces a record; there is no failure path.
func (s *Service) resolve(cn string) domain.Outcome {
	if rec, ok := s.store.Get(cn); ok {
		kind := domain.OutcomeHit
		if rec.Domain != cn {
			// Matched through a registered alias, not the canonical key.
			kind = domain.OutcomeVariant
		}
		return domain.Outcome{Kind: kind, Record: rec}
	}
	if rec, ok := s.store.FindVariant(cn); ok {
		return domain.Outcome{Kind: domain.OutcomeVariant, Record: rec}
	}
	return domain.Outcome{
		Kind:   domain.OutcomeFallback,
		Record: heuristic.Record(cn, s.clock.Now().Unix()),
	}
}
