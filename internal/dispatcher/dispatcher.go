// Package dispatcher watches the protected tree, normalizes raw
// filesystem events into a typed stream, drives the backup store and
// feature extractor, and asks the Scorer for a verdict on every event.
package dispatcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ransomguard/ransomguard/internal/backup"
	"github.com/ransomguard/ransomguard/internal/features"
	"github.com/ransomguard/ransomguard/internal/scorer"
	"github.com/ransomguard/ransomguard/pkg/entropy"
)

// Backoff bounds for the watcher error-retry loop, mirroring the teacher's
// FS watcher resilience pattern: back off exponentially under sustained
// watcher errors instead of spinning.
const (
	watchErrInitBackoff = 1 * time.Second
	watchErrMaxBackoff  = 30 * time.Second
	watchErrBackoffMult = 2
)

// tickInterval drives periodic rename-correlation expiry. It must be
// smaller than renameCorrelationWindow so aged-out pending removes commit
// to Deleted promptly.
const tickInterval = 50 * time.Millisecond

// Dispatcher is the Event Dispatcher component.
type Dispatcher struct {
	root   string
	store  *backup.Store
	extr   *features.Extractor
	scorer *scorer.Scorer
	gate   RecoveryGate
	logger *slog.Logger

	watcherFactory func() (FsWatcher, error)

	rename  *renameCorrelator
	entropy *entropyTracker
	dirs    map[string]struct{}
}

// New constructs a Dispatcher. root is the protected tree (MONITORING_DIR).
func New(root string, store *backup.Store, extr *features.Extractor, sc *scorer.Scorer, gate RecoveryGate, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		root:           root,
		store:          store,
		extr:           extr,
		scorer:         sc,
		gate:           gate,
		logger:         logger,
		watcherFactory: newFsnotifyWatcher,
		rename:         newRenameCorrelator(),
		entropy:        newEntropyTracker(),
		dirs:           make(map[string]struct{}),
	}
}

// Run performs the startup walk (ensuring directories exist, backing up
// every file found, recording extensions) and then blocks processing
// events until ctx is canceled or the watcher fails unrecoverably.
func (d *Dispatcher) Run(ctx context.Context) error {
	watcher, err := d.watcherFactory()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := d.initialScan(ctx, watcher); err != nil {
		return err
	}

	return d.watchLoop(ctx, watcher)
}

// initialScan ensures root exists, walks it registering watches on every
// directory, backs up every file found, and seeds the extension map.
func (d *Dispatcher) initialScan(ctx context.Context, watcher FsWatcher) error {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return err
	}

	return filepath.WalkDir(d.root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := entry.Name()
		if path != d.root && isAlwaysExcluded(name) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if addErr := watcher.Add(path); addErr != nil {
				d.logger.Warn("failed to watch directory", "path", path, "error", addErr)
			}
			rel, relErr := filepath.Rel(d.root, path)
			if relErr == nil {
				d.dirs[filepath.ToSlash(rel)] = struct{}{}
			}
			return nil
		}

		rel, relErr := filepath.Rel(d.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		now := time.Now()
		d.extr.RecordCreate(now, rel)
		if err := d.store.Backup(ctx, path); err != nil {
			d.logger.Warn("initial backup failed", "path", rel, "error", err)
		}

		return nil
	})
}

// watchLoop is the Dispatcher's single select loop: every raw fsnotify
// event, watcher error, and rename-correlation tick is processed here, on
// one goroutine, matching the engine's single-writer ownership of the
// extractor's maps.
func (d *Dispatcher) watchLoop(ctx context.Context, watcher FsWatcher) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	backoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			d.handleFsEvent(ctx, watcher, ev)
			backoff = watchErrInitBackoff

		case watchErr, ok := <-watcher.Errors():
			if !ok {
				return nil
			}
			d.logger.Warn("filesystem watcher error", "error", watchErr, "backoff", backoff)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}

			backoff *= watchErrBackoffMult
			if backoff > watchErrMaxBackoff {
				backoff = watchErrMaxBackoff
			}

		case now := <-ticker.C:
			d.flushExpiredRenames(ctx, now)
		}
	}
}

// flushExpiredRenames commits any pending Remove that never got a matching
// Create within the correlation window as a plain Deleted event.
func (d *Dispatcher) flushExpiredRenames(ctx context.Context, now time.Time) {
	for _, rel := range d.rename.Expired(now) {
		d.onDeleted(ctx, now, rel)
	}
}

func (d *Dispatcher) handleFsEvent(ctx context.Context, watcher FsWatcher, ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if isAlwaysExcluded(name) {
		return
	}

	rel, err := filepath.Rel(d.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	now := time.Now()

	switch {
	case ev.Has(fsnotify.Create):
		d.handleCreate(ctx, watcher, now, rel, ev.Name)
	case ev.Has(fsnotify.Write):
		d.handleWrite(ctx, now, rel, ev.Name)
	case ev.Has(fsnotify.Remove):
		d.handleRemove(now, rel)
	case ev.Has(fsnotify.Rename):
		// fsnotify's own Rename op fires for the source path with no
		// destination; treat it exactly like Remove for correlation
		// purposes (a subsequent Create completes the pair).
		d.handleRemove(now, rel)
	default:
		// Chmod and other metadata-only ops carry no behavioral signal.
	}
}

func (d *Dispatcher) handleCreate(ctx context.Context, watcher FsWatcher, now time.Time, rel, abspath string) {
	info, err := os.Stat(abspath)
	if err != nil {
		return // gone already; a coalesced create+delete, nothing to do
	}

	if info.IsDir() {
		d.dirs[rel] = struct{}{}
		if err := watcher.Add(abspath); err != nil {
			d.logger.Warn("failed to watch new directory", "path", rel, "error", err)
		}
		return
	}

	if src, ok := d.rename.MatchCreate(now); ok {
		d.onRenamed(ctx, now, src, rel)
		return
	}

	d.onCreated(ctx, now, rel, abspath)
}

func (d *Dispatcher) onCreated(ctx context.Context, now time.Time, rel, abspath string) {
	d.extr.RecordCreate(now, rel)

	if err := d.store.Backup(ctx, abspath); err != nil {
		d.logger.Warn("backup on create failed", "path", rel, "error", err)
	}

	d.evaluate(ctx, now)
}

func (d *Dispatcher) handleWrite(ctx context.Context, now time.Time, rel, abspath string) {
	if _, isDir := d.dirs[rel]; isDir {
		return
	}
	info, err := os.Stat(abspath)
	if err == nil && info.IsDir() {
		return
	}

	d.extr.RecordModify(now, rel)
	d.sampleEntropy(now, abspath)

	if err := d.store.Backup(ctx, abspath); err != nil {
		d.logger.Warn("backup on modify failed", "path", rel, "error", err)
	}

	d.evaluate(ctx, now)
}

func (d *Dispatcher) sampleEntropy(now time.Time, abspath string) {
	f, err := os.Open(abspath)
	if err != nil {
		return
	}
	defer f.Close()

	buf := make([]byte, entropy.SampleSize)
	n, _ := f.Read(buf)
	if n == 0 {
		return
	}

	d.entropy.Record(now, entropy.Shannon(buf[:n]))
}

func (d *Dispatcher) handleRemove(now time.Time, rel string) {
	if _, isDir := d.dirs[rel]; isDir {
		delete(d.dirs, rel)
		return
	}

	d.rename.PushRemove(rel, now)
}

func (d *Dispatcher) onDeleted(ctx context.Context, now time.Time, rel string) {
	d.extr.RecordDelete(now, rel)
	// Per §4.4, the backup is NOT tombstoned here — it remains available
	// until the Recovery Orchestrator decides the delete was legitimate.
	d.evaluate(ctx, now)
}

func (d *Dispatcher) onRenamed(ctx context.Context, now time.Time, src, dst string) {
	d.extr.RecordRename(now, src, dst)

	abspath := filepath.Join(d.root, filepath.FromSlash(dst))
	if err := d.store.Backup(ctx, abspath); err != nil {
		d.logger.Warn("backup on rename failed", "path", dst, "error", err)
	}

	d.evaluate(ctx, now)
}

// evaluate runs the Feature Extractor → Scorer → RecoveryGate pipeline,
// skipping entirely while a restore is in progress or too little data has
// accumulated to justify a verdict.
func (d *Dispatcher) evaluate(ctx context.Context, now time.Time) {
	if d.gate != nil && d.gate.InProgress() {
		return
	}
	if !d.extr.HasMinimumData(now) {
		return
	}

	vector := d.extr.CurrentVector(now, d.entropy.Mean(now))
	verdict := d.scorer.Score(vector)
	if !verdict.Suspicious {
		return
	}

	if d.gate == nil {
		return
	}

	d.gate.Detected(Detection{
		At:         now,
		OpRate:     vector.OpRate,
		ExtChanges: vector.ExtChanges,
		Entropy:    vector.MeanEntropy,
		Confidence: verdict.Confidence,
		Reason:     verdict.Reason,
	})
}
