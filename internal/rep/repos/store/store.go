// Package store holds the in-memory index of canonical domain records with
// variant aliasing. Records live once in an arena; an alias index maps
// canonical keys and every variant string to an arena slot, so a record is
// stored a single time no matter how many hostnames resolve to it. A Bloom
// filter over all index keys short-circuits lookups for domains the store
// has definitely never seen.
package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"golang.org/x/net/publicsuffix"

	"github.com/haukened/domrep/internal/rep/common/log"
	"github.com/haukened/domrep/internal/rep/domain"
	"github.com/haukened/domrep/internal/rep/repos/codec"
)

const (
	// bloomMinCapacity keeps the filter useful while the dataset is small.
	bloomMinCapacity = 1024
	// bloomFPRate is the target false-positive rate when rebuilding.
	bloomFPRate = 0.01
)

// Store is the canonical domain record index. All methods are safe for
// concurrent use.
type Store struct {
	mu     sync.RWMutex
	arena  []domain.Record
	index  map[string]int
	bloom  *bloom.BloomFilter
	codec  codec.Codec
	logger log.Logger
}

// New returns an empty store that decodes persisted blobs with c.
func New(c codec.Codec, logger log.Logger) *Store {
	return &Store{
		index:  make(map[string]int),
		codec:  c,
		logger: logger,
	}
}

// Load decompresses and parses blob, replacing the store contents with the
// decoded records. On failure the previous contents are left untouched and
// the caller must treat the store as uninitialized for this dataset.
func (s *Store) Load(blob []byte) error {
	data, err := s.codec.Decompress(blob)
	if err != nil {
		return fmt.Errorf("%w: decompress dataset: %v", domain.ErrPersistence, err)
	}
	var records []domain.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%w: parse dataset: %v", domain.ErrPersistence, err)
	}

	// Canonical keys are indexed before any variant so an alias can never
	// shadow a canonical owner, matching the Merge rule across round trips.
	arena := make([]domain.Record, 0, len(records))
	index := make(map[string]int, len(records)*2)
	for _, rec := range records {
		rec.Domain = domain.Canonicalize(rec.Domain)
		if rec.Domain == "" {
			continue
		}
		slot, ok := index[rec.Domain]
		if ok && !rec.Newer(arena[slot]) {
			continue
		}
		if !ok {
			slot = len(arena)
			arena = append(arena, rec)
		} else {
			arena[slot] = rec
		}
		index[rec.Domain] = slot
	}
	for slot, rec := range arena {
		for _, v := range rec.Variants {
			cv := aliasKey(v)
			if cv == "" || cv == rec.Domain {
				continue
			}
			if prev, taken := index[cv]; taken && arena[prev].Domain == cv {
				s.logger.Warn(map[string]any{
					"variant": cv,
					"domain":  rec.Domain,
				}, "Variant shadows a canonical record, keeping canonical owner")
				continue
			}
			index[cv] = slot
		}
	}

	filter := bloom.NewWithEstimates(bloomCapacity(len(index)), bloomFPRate)
	for key := range index {
		filter.AddString(key)
	}

	s.mu.Lock()
	s.arena = arena
	s.index = index
	s.bloom = filter
	s.mu.Unlock()

	s.logger.Info(map[string]any{
		"records": len(arena),
		"keys":    len(index),
		"codec":   s.codec.Name(),
	}, "Record store loaded")
	return nil
}

// Get returns the record indexed under name, whether name is a canonical
// key or a registered variant. O(1).
func (s *Store) Get(name string) (domain.Record, bool) {
	cn := domain.Canonicalize(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(cn)
}

// FindVariant probes derived forms of name in a fixed order: a "www."
// prefix, the parent domain when the name has more than two labels, and a
// ".co.uk" to ".com" TLD substitution. The first match wins.
func (s *Store) FindVariant(name string) (domain.Record, bool) {
	cn := domain.Canonicalize(name)
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.lookupLocked("www." + cn); ok {
		return rec, true
	}
	if parent := parentDomain(cn); parent != "" && parent != cn {
		if rec, ok := s.lookupLocked(parent); ok {
			return rec, true
		}
	}
	if strings.HasSuffix(cn, ".co.uk") {
		swapped := strings.TrimSuffix(cn, ".co.uk") + ".com"
		if rec, ok := s.lookupLocked(swapped); ok {
			return rec, true
		}
	}
	var zero domain.Record
	return zero, false
}

// Merge applies incoming records, replacing an existing record only when
// the incoming one is strictly newer. Variants are re-indexed; an alias can
// only ever map to one record, so a conflicting alias moves to the newer
// record. Returns the number of records actually inserted or replaced.
func (s *Store) Merge(records []domain.Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, rec := range records {
		rec.Domain = domain.Canonicalize(rec.Domain)
		if rec.Domain == "" {
			continue
		}
		slot, exists := s.index[rec.Domain]
		canonicalHit := exists && s.arena[slot].Domain == rec.Domain
		if canonicalHit {
			if !rec.Newer(s.arena[slot]) {
				continue
			}
			s.unindexVariantsLocked(slot)
			s.arena[slot] = rec
		} else {
			// New canonical record. The key may currently be claimed as an
			// alias of another record; the canonical owner takes precedence.
			slot = len(s.arena)
			s.arena = append(s.arena, rec)
		}
		s.index[rec.Domain] = slot
		s.bloomAddLocked(rec.Domain)
		for _, v := range rec.Variants {
			cv := aliasKey(v)
			if cv == "" || cv == rec.Domain {
				continue
			}
			if prev, taken := s.index[cv]; taken && prev != slot {
				if s.arena[prev].Domain == cv {
					// Never steal another record's canonical key for an alias.
					s.logger.Warn(map[string]any{
						"variant": cv,
						"domain":  rec.Domain,
					}, "Variant shadows a canonical record, keeping canonical owner")
					continue
				}
				s.logger.Warn(map[string]any{
					"variant": cv,
					"from":    s.arena[prev].Domain,
					"to":      rec.Domain,
				}, "Variant reassigned to incoming record")
			}
			s.index[cv] = slot
			s.bloomAddLocked(cv)
		}
		updated++
	}
	return updated
}

// Serialize returns the deduplicated list of canonical records, suitable
// for encoding and persisting. Variants are carried inside each record, not
// duplicated as entries.
func (s *Store) Serialize() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Record, len(s.arena))
	copy(out, s.arena)
	return out
}

// Len returns the number of canonical records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.arena)
}

// EstimatedBytes approximates the in-memory footprint of the record arena
// and alias index. Diagnostic only.
func (s *Store) EstimatedBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, rec := range s.arena {
		total += int64(len(rec.Domain)) + 64
		for _, v := range rec.Variants {
			total += int64(len(v)) + 16
		}
	}
	total += int64(len(s.index)) * 24
	return total
}

// lookupLocked consults the bloom filter before touching the index. A
// negative filter answer is authoritative; a positive one may still miss.
func (s *Store) lookupLocked(key string) (domain.Record, bool) {
	if s.bloom != nil && !s.bloom.TestString(key) {
		var zero domain.Record
		return zero, false
	}
	if slot, ok := s.index[key]; ok {
		return s.arena[slot], true
	}
	var zero domain.Record
	return zero, false
}

// unindexVariantsLocked drops alias entries owned by slot before its record
// is replaced, so stale variants cannot resolve to the new record.
func (s *Store) unindexVariantsLocked(slot int) {
	for _, v := range s.arena[slot].Variants {
		cv := aliasKey(v)
		if cv == "" {
			continue
		}
		if cur, ok := s.index[cv]; ok && cur == slot && s.arena[slot].Domain != cv {
			delete(s.index, cv)
		}
	}
}

// bloomAddLocked grows the filter lazily. Bloom filters cannot forget keys,
// which only costs false positives, never false negatives.
func (s *Store) bloomAddLocked(key string) {
	if s.bloom == nil {
		s.bloom = bloom.NewWithEstimates(bloomCapacity(len(s.index)), bloomFPRate)
		for k := range s.index {
			s.bloom.AddString(k)
		}
		return
	}
	s.bloom.AddString(key)
}

// aliasKey normalizes a variant hostname for indexing. Unlike the full
// canonical form, a variant keeps its "www." prefix: the whole point of a
// www alias is to resolve that exact spelling.
func aliasKey(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for strings.HasSuffix(v, ".") {
		v = strings.TrimSuffix(v, ".")
	}
	return v
}

// parentDomain returns the registrable parent of a multi-label name, using
// the public suffix list with a last-two-labels fallback.
func parentDomain(name string) string {
	labels := strings.Split(name, ".")
	if len(labels) <= 2 {
		return ""
	}
	parent, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil || parent == "" {
		parent = strings.Join(labels[len(labels)-2:], ".")
	}
	return parent
}

func bloomCapacity(n int) uint {
	if n < bloomMinCapacity {
		return bloomMinCapacity
	}
	return uint(n)
}
