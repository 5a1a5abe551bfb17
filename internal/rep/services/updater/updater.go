// Package updater owns the versioned update mechanism of the reputation
// database: eligibility gating, manifest checks, payload validation, merge,
// persistence, and the backup/rollback protocol around them. Only one
// update cycle runs at a time; concurrent triggers join the in-flight
// cycle's outcome.
package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/haukened/domrep/internal/rep/common/clock"
	"github.com/haukened/domrep/internal/rep/common/log"
	"github.com/haukened/domrep/internal/rep/domain"
	"github.com/haukened/domrep/internal/rep/repos/codec"
	"github.com/haukened/domrep/internal/rep/repos/storage"
)

// Storage keys. The database blob and its metadata live under the
// reputation namespace; transient backups live under their own namespace.
const (
	NamespaceReputation = "reputation"
	NamespaceBackups    = "backups"
	KeyDatabase         = "domain_reputation_db"
	KeyMetadata         = "domain_reputation_metadata"
)

// Phase names the update state machine steps, exposed for observability.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseChecking    Phase = "checking"
	PhaseFetching    Phase = "fetching"
	PhaseValidating  Phase = "validating"
	PhaseBackingUp   Phase = "backing-up"
	PhaseMerging     Phase = "merging"
	PhasePersisting  Phase = "persisting"
	PhaseRollingBack Phase = "rolling-back"
)

// TierPro is the subscription tier allowed to run remote update cycles.
const TierPro = "pro"

// backupHandle identifies one pre-update snapshot in the backup registry.
type backupHandle struct {
	dbKey     string
	metaKey   string
	createdAt time.Time
	// empty marks a backup taken before any database was ever persisted;
	// snapshot then carries the pre-update in-memory records, since there is
	// no persisted blob to restore from.
	empty    bool
	snapshot []domain.Record
}

// Options configures an Updater.
type Options struct {
	Store   RecordStore
	Cache   ResultCache
	Storage storage.Store
	Codec   codec.Codec
	// Source may be nil when remote updates are disabled; Bootstrap and
	// Apply still work.
	Source UpdateSource
	Clock  clock.Clock
	Logger log.Logger

	// Interval gates how often RunCycle may actually check the source.
	Interval time.Duration
	// MaxRetries caps retry attempts after the initial one.
	MaxRetries int
	// BaseDelay and Multiplier define the exponential backoff schedule
	// baseDelay * multiplier^attempt.
	BaseDelay  time.Duration
	Multiplier float64
	// Tier is the subscription tier; only TierPro runs remote cycles.
	Tier string
	// VersionPrefix is stripped from version strings before comparison.
	VersionPrefix string
}

// Updater is the update manager. All exported methods are safe for
// concurrent use.
type Updater struct {
	store    RecordStore
	cache    ResultCache
	storage  storage.Store
	codec    codec.Codec
	source   UpdateSource
	clock    clock.Clock
	logger   log.Logger
	validate *validator.Validate

	interval      time.Duration
	maxRetries    int
	baseDelay     time.Duration
	multiplier    float64
	tier          string
	versionPrefix string

	sf singleflight.Group

	mu        sync.Mutex
	meta      domain.Metadata
	lastCheck time.Time
	backups   []backupHandle
	phase     Phase
}

// New constructs an Updater from options.
func New(opts Options) *Updater {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Multiplier < 1 {
		opts.Multiplier = 2
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	return &Updater{
		store:         opts.Store,
		cache:         opts.Cache,
		storage:       opts.Storage,
		codec:         opts.Codec,
		source:        opts.Source,
		clock:         opts.Clock,
		logger:        opts.Logger,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		interval:      opts.Interval,
		maxRetries:    opts.MaxRetries,
		baseDelay:     opts.BaseDelay,
		multiplier:    opts.Multiplier,
		tier:          opts.Tier,
		versionPrefix: opts.VersionPrefix,
		phase:         PhaseIdle,
	}
}

// Metadata returns a copy of the current database metadata.
func (u *Updater) Metadata() domain.Metadata {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.meta
}

// Phase returns the current state machine phase.
func (u *Updater) Phase() Phase {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.phase
}

// Bootstrap initializes the store from the persisted blob, or seeds and
// persists the provided dataset when nothing has been stored yet.
func (u *Updater) Bootstrap(ctx context.Context, seeds []domain.Record, seedVersion string) error {
	_, err, _ := u.sf.Do("update", func() (any, error) {
		return nil, u.bootstrap(ctx, seeds, seedVersion)
	})
	return err
}

func (u *Updater) bootstrap(_ context.Context, seeds []domain.Record, seedVersion string) error {
	blob, err := u.storage.Get(NamespaceReputation, KeyDatabase)
	switch {
	case err == nil:
		if loadErr := u.store.Load(blob); loadErr != nil {
			u.logger.Warn(map[string]any{"error": loadErr.Error()}, "Persisted database unreadable, reseeding")
			return u.seed(seeds, seedVersion)
		}
		u.loadMetadata()
		u.logger.Info(map[string]any{
			"records": u.store.Len(),
			"version": u.Metadata().Version,
		}, "Reputation database loaded")
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return u.seed(seeds, seedVersion)
	default:
		return fmt.Errorf("%w: read database: %v", domain.ErrPersistence, err)
	}
}

func (u *Updater) seed(seeds []domain.Record, seedVersion string) error {
	if len(seeds) == 0 {
		return fmt.Errorf("%w: no seed records available", domain.ErrValidation)
	}
	valid := u.validRecords(seeds)
	if len(valid) == 0 {
		return fmt.Errorf("%w: no valid seed records", domain.ErrValidation)
	}
	u.store.Merge(valid)
	if err := u.persist(seedVersion, "seed"); err != nil {
		return err
	}
	u.logger.Info(map[string]any{"records": u.store.Len(), "version": seedVersion}, "Seeded reputation database")
	return nil
}

func (u *Updater) loadMetadata() {
	raw, err := u.storage.Get(NamespaceReputation, KeyMetadata)
	if err != nil {
		return
	}
	var meta domain.Metadata
	if json.Unmarshal(raw, &meta) == nil {
		u.mu.Lock()
		u.meta = meta
		u.mu.Unlock()
	}
}

// Eligible reports whether a remote update cycle would run right now.
func (u *Updater) Eligible() bool {
	if u.source == nil || u.tier != TierPro {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastCheck.IsZero() || u.clock.Now().Sub(u.lastCheck) >= u.interval
}

// RunCycle performs one full update cycle. Ineligible or too-soon calls
// return immediately without side effects. Concurrent callers share the
// outcome of the in-flight cycle.
func (u *Updater) RunCycle(ctx context.Context) error {
	_, err, _ := u.sf.Do("update", func() (any, error) {
		return nil, u.runCycle(ctx)
	})
	return err
}

func (u *Updater) runCycle(ctx context.Context) error {
	if !u.Eligible() {
		u.logger.Debug(map[string]any{"tier": u.tier}, "Update check skipped")
		return nil
	}
	u.mu.Lock()
	u.lastCheck = u.clock.Now()
	u.mu.Unlock()

	u.setPhase(PhaseChecking)
	defer u.setPhase(PhaseIdle)

	manifest, err := u.source.FetchManifest(ctx)
	if err != nil {
		return fmt.Errorf("manifest check: %w", err)
	}
	if manifest == nil {
		u.logger.Debug(nil, "No manifest available, nothing to do")
		return nil
	}
	current := u.Metadata().Version
	if !newerVersion(manifest.Version, current, u.versionPrefix) {
		u.logger.Debug(map[string]any{
			"remote": manifest.Version,
			"local":  current,
		}, "Remote database is not newer")
		return nil
	}

	u.logger.Info(map[string]any{
		"remote": manifest.Version,
		"local":  current,
	}, "Newer reputation database available")

	return u.guardedApply(ctx, func(ctx context.Context) (string, string, error) {
		u.setPhase(PhaseFetching)
		records, err := u.source.FetchPayload(ctx, manifest.URL, manifest.Checksum)
		if err != nil {
			return "", "", err
		}
		u.setPhase(PhaseValidating)
		valid := u.validRecords(records)
		if len(valid) == 0 {
			return "", "", fmt.Errorf("%w: payload contains no valid records", domain.ErrValidation)
		}
		u.setPhase(PhaseMerging)
		updated := u.store.Merge(valid)
		u.logger.Info(map[string]any{"updated": updated, "received": len(records), "valid": len(valid)}, "Merged remote dataset")
		return manifest.Version, "remote", nil
	})
}

// Apply merges manually supplied records through the same backup, retry,
// and rollback protocol as a remote cycle, skipping the fetch step.
func (u *Updater) Apply(ctx context.Context, records []domain.Record, sourceID string) (int, error) {
	v, err, _ := u.sf.Do("update", func() (any, error) {
		return u.apply(ctx, records, sourceID)
	})
	n, _ := v.(int)
	return n, err
}

func (u *Updater) apply(ctx context.Context, records []domain.Record, sourceID string) (int, error) {
	u.setPhase(PhaseValidating)
	defer u.setPhase(PhaseIdle)

	valid := u.validRecords(records)
	if len(valid) == 0 {
		return 0, fmt.Errorf("%w: no valid records supplied", domain.ErrValidation)
	}

	var updated int
	err := u.guardedApply(ctx, func(context.Context) (string, string, error) {
		u.setPhase(PhaseMerging)
		updated = u.store.Merge(valid)
		return "", sourceID, nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// guardedApply runs fn (which must end with the store merged) inside the
// backup / retry / rollback envelope, then persists and purges the cache.
// fn returns the new version ("" keeps the current one) and the source
// identifier to record.
func (u *Updater) guardedApply(ctx context.Context, fn func(context.Context) (string, string, error)) error {
	u.setPhase(PhaseBackingUp)
	handle, err := u.createBackup()
	if err != nil {
		return err
	}

	preCount := u.store.Len()

	var lastErr error
	for attempt := 0; attempt <= u.maxRetries; attempt++ {
		if attempt > 0 {
			if err := u.backoff(ctx, attempt-1); err != nil {
				lastErr = err
				break
			}
			u.logger.Warn(map[string]any{"attempt": attempt, "error": lastErr.Error()}, "Retrying update cycle")
		}

		version, sourceID, err := fn(ctx)
		if err == nil {
			if u.store.Len() < preCount {
				err = fmt.Errorf("%w: merge lost records (%d -> %d)", domain.ErrConsistency, preCount, u.store.Len())
			}
		}
		if err == nil {
			u.setPhase(PhasePersisting)
			err = u.persist(version, sourceID)
		}
		if err == nil {
			u.cache.Purge()
			u.deleteBackup(handle)
			return nil
		}

		lastErr = err
		if errors.Is(err, domain.ErrValidation) {
			// Zero valid records is a terminal outcome, not a flaky fetch;
			// do not burn retries on it.
			break
		}
	}

	u.setPhase(PhaseRollingBack)
	if rbErr := u.restoreBackup(handle); rbErr != nil {
		u.logger.Error(map[string]any{"error": rbErr.Error()}, "Rollback failed")
		return errors.Join(lastErr, rbErr)
	}
	u.logger.Warn(map[string]any{"error": lastErr.Error()}, "Update cycle failed, previous database restored")
	return fmt.Errorf("update cycle failed: %w", lastErr)
}

// backoff sleeps for baseDelay * multiplier^attempt, honoring cancellation.
func (u *Updater) backoff(ctx context.Context, attempt int) error {
	delay := u.baseDelay
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * u.multiplier)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrTransientFetch, ctx.Err())
	case <-u.clock.After(delay):
		return nil
	}
}

// validRecords drops malformed entries, logging each rejection.
func (u *Updater) validRecords(records []domain.Record) []domain.Record {
	valid := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		if err := u.validate.Struct(&rec); err != nil {
			u.logger.Warn(map[string]any{
				"domain": rec.Domain,
				"error":  err.Error(),
			}, "Dropping invalid record")
			continue
		}
		valid = append(valid, rec)
	}
	return valid
}

// persist serializes the store, encodes it, and writes blob + metadata.
func (u *Updater) persist(version, sourceID string) error {
	records := u.store.Serialize()
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encode dataset: %v", domain.ErrPersistence, err)
	}
	blob, err := u.codec.Compress(data)
	if err != nil {
		return fmt.Errorf("%w: compress dataset: %v", domain.ErrPersistence, err)
	}
	if err := u.storage.Put(NamespaceReputation, KeyDatabase, blob); err != nil {
		return fmt.Errorf("%w: write database: %v", domain.ErrPersistence, err)
	}

	u.mu.Lock()
	meta := u.meta
	u.mu.Unlock()
	if version != "" {
		meta.Version = version
	}
	meta.TotalDomains = len(records)
	meta.LastUpdated = u.clock.Now().Unix()
	compressed := len(blob)
	if compressed == 0 {
		compressed = 1
	}
	meta.CompressionRatio = float64(len(data)) / float64(compressed)
	meta.AddSource(sourceID)

	mb, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %v", domain.ErrPersistence, err)
	}
	if err := u.storage.Put(NamespaceReputation, KeyMetadata, mb); err != nil {
		return fmt.Errorf("%w: write metadata: %v", domain.ErrPersistence, err)
	}

	u.mu.Lock()
	u.meta = meta
	u.mu.Unlock()
	return nil
}

// createBackup snapshots the current blob and metadata under timestamped
// backup keys and registers the handle. Backups are mandatory before any
// destructive write; there is no multi-key atomic transaction to lean on.
func (u *Updater) createBackup() (backupHandle, error) {
	now := u.clock.Now()
	handle := backupHandle{
		dbKey:     fmt.Sprintf("%s_backup_%d", KeyDatabase, now.UnixNano()),
		metaKey:   fmt.Sprintf("%s_backup_%d", KeyMetadata, now.UnixNano()),
		createdAt: now,
	}

	blob, err := u.storage.Get(NamespaceReputation, KeyDatabase)
	if errors.Is(err, storage.ErrNotFound) {
		handle.empty = true
		handle.snapshot = u.store.Serialize()
		u.registerBackup(handle)
		return handle, nil
	}
	if err != nil {
		return handle, fmt.Errorf("%w: read database for backup: %v", domain.ErrPersistence, err)
	}
	if err := u.storage.Put(NamespaceBackups, handle.dbKey, blob); err != nil {
		return handle, fmt.Errorf("%w: write database backup: %v", domain.ErrPersistence, err)
	}

	meta, err := u.storage.Get(NamespaceReputation, KeyMetadata)
	if err == nil {
		if err := u.storage.Put(NamespaceBackups, handle.metaKey, meta); err != nil {
			return handle, fmt.Errorf("%w: write metadata backup: %v", domain.ErrPersistence, err)
		}
	}

	u.registerBackup(handle)
	u.logger.Debug(map[string]any{"backup": handle.dbKey}, "Backup created")
	return handle, nil
}

func (u *Updater) registerBackup(handle backupHandle) {
	u.mu.Lock()
	u.backups = append(u.backups, handle)
	u.mu.Unlock()
}

func (u *Updater) unregisterBackup(handle backupHandle) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := len(u.backups) - 1; i >= 0; i-- {
		if u.backups[i].dbKey == handle.dbKey {
			u.backups = append(u.backups[:i], u.backups[i+1:]...)
			return
		}
	}
}

// deleteBackup discards a consumed backup after a successful cycle.
func (u *Updater) deleteBackup(handle backupHandle) {
	if !handle.empty {
		_ = u.storage.Delete(NamespaceBackups, handle.dbKey)
		_ = u.storage.Delete(NamespaceBackups, handle.metaKey)
	}
	u.unregisterBackup(handle)
}

// restoreBackup puts the snapshotted blob and metadata back under the
// primary keys and reloads the in-memory store from them, leaving the
// system in its pre-update state.
func (u *Updater) restoreBackup(handle backupHandle) error {
	defer u.unregisterBackup(handle)

	if handle.empty {
		// Nothing was ever persisted before this cycle; remove whatever the
		// failed cycle may have written and rewind the in-memory store to
		// the snapshot, since the merge may already have mutated it.
		_ = u.storage.Delete(NamespaceReputation, KeyDatabase)
		_ = u.storage.Delete(NamespaceReputation, KeyMetadata)
		data, err := json.Marshal(handle.snapshot)
		if err != nil {
			return fmt.Errorf("%w: encode snapshot: %v", domain.ErrPersistence, err)
		}
		blob, err := u.codec.Compress(data)
		if err != nil {
			return fmt.Errorf("%w: compress snapshot: %v", domain.ErrPersistence, err)
		}
		return u.store.Load(blob)
	}

	blob, err := u.storage.Get(NamespaceBackups, handle.dbKey)
	if err != nil {
		return fmt.Errorf("%w: read database backup: %v", domain.ErrPersistence, err)
	}
	if err := u.storage.Put(NamespaceReputation, KeyDatabase, blob); err != nil {
		return fmt.Errorf("%w: restore database: %v", domain.ErrPersistence, err)
	}
	if err := u.store.Load(blob); err != nil {
		return err
	}

	if meta, err := u.storage.Get(NamespaceBackups, handle.metaKey); err == nil {
		if err := u.storage.Put(NamespaceReputation, KeyMetadata, meta); err != nil {
			return fmt.Errorf("%w: restore metadata: %v", domain.ErrPersistence, err)
		}
		var m domain.Metadata
		if json.Unmarshal(meta, &m) == nil {
			u.mu.Lock()
			u.meta = m
			u.mu.Unlock()
		}
	}

	_ = u.storage.Delete(NamespaceBackups, handle.dbKey)
	_ = u.storage.Delete(NamespaceBackups, handle.metaKey)
	return nil
}

func (u *Updater) setPhase(p Phase) {
	u.mu.Lock()
	u.phase = p
	u.mu.Unlock()
}
