package dispatcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ransomguard/ransomguard/internal/backup"
	"github.com/ransomguard/ransomguard/internal/features"
	"github.com/ransomguard/ransomguard/internal/model"
	"github.com/ransomguard/ransomguard/internal/scorer"
)

type fakeWatcher struct {
	events  chan fsnotify.Event
	errs    chan error
	mu      sync.Mutex
	added   []string
	removed []string
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{
		events: make(chan fsnotify.Event, 64),
		errs:   make(chan error, 1),
	}
}

func (f *fakeWatcher) Add(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, name)
	return nil
}
func (f *fakeWatcher) Remove(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, name)
	return nil
}
func (f *fakeWatcher) Close() error                  { return nil }
func (f *fakeWatcher) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeWatcher) Errors() <-chan error          { return f.errs }

type fakeGate struct {
	mu         sync.Mutex
	inProgress bool
	detections []Detection
}

func (g *fakeGate) InProgress() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inProgress
}

func (g *fakeGate) Detected(d Detection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.detections = append(g.detections, d)
}

func (g *fakeGate) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.detections)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(t *testing.T, root string, gate RecoveryGate) (*Dispatcher, *fakeWatcher) {
	t.Helper()

	backupDir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	store, err := backup.NewStore(root, backupDir, dbPath, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	extr := features.New()
	cfg := scorer.DefaultConfig()
	cfg.RequireModelConfirmation = false
	sc := scorer.New(cfg, model.NewNoopPredictor(3), discardLogger())

	d := New(root, store, extr, sc, gate, discardLogger())
	fw := newFakeWatcher()
	d.watcherFactory = func() (FsWatcher, error) { return fw, nil }

	return d, fw
}

func runDispatcher(t *testing.T, d *Dispatcher) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestDispatcher_CreateBacksUpFile(t *testing.T) {
	root := t.TempDir()
	gate := &fakeGate{}
	d, fw := newTestDispatcher(t, root, gate)
	runDispatcher(t, d)

	abspath := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(abspath, []byte("hello"), 0o644))
	fw.events <- fsnotify.Event{Name: abspath, Op: fsnotify.Create}

	require.Eventually(t, func() bool {
		stats, err := d.store.Stats(context.Background())
		return err == nil && stats.ActiveCount == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDispatcher_RenameCorrelation(t *testing.T) {
	root := t.TempDir()
	gate := &fakeGate{}
	d, fw := newTestDispatcher(t, root, gate)
	runDispatcher(t, d)

	oldPath := filepath.Join(root, "a.txt")
	newPath := filepath.Join(root, "a.txt.encrypted")
	require.NoError(t, os.WriteFile(newPath, []byte("x"), 0o644))

	fw.events <- fsnotify.Event{Name: oldPath, Op: fsnotify.Remove}
	fw.events <- fsnotify.Event{Name: newPath, Op: fsnotify.Create}

	require.Eventually(t, func() bool {
		return d.extr.CurrentVector(time.Now(), 0).ExtChanges >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestDispatcher_DeleteWithoutMatchingCreateStaysDeleted(t *testing.T) {
	root := t.TempDir()
	gate := &fakeGate{}
	d, fw := newTestDispatcher(t, root, gate)
	runDispatcher(t, d)

	fw.events <- fsnotify.Event{Name: filepath.Join(root, "gone.txt"), Op: fsnotify.Remove}

	// No Create arrives: after the correlation window, this commits as a
	// plain Deleted op (recorded in the operation ring, no ext_changes).
	time.Sleep(renameCorrelationWindow + 3*tickInterval)
	assert.Equal(t, 0, d.extr.CurrentVector(time.Now(), 0).ExtChanges)
}

func TestDispatcher_RecoveryInProgressSkipsEvaluation(t *testing.T) {
	root := t.TempDir()
	gate := &fakeGate{inProgress: true}
	d, fw := newTestDispatcher(t, root, gate)
	runDispatcher(t, d)

	for i := 0; i < 10; i++ {
		abspath := filepath.Join(root, "f"+string(rune('0'+i))+".txt")
		require.NoError(t, os.WriteFile(abspath, []byte("x"), 0o644))
		fw.events <- fsnotify.Event{Name: abspath, Op: fsnotify.Create}
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, gate.count())
}

func TestDispatcher_DirectoryEventsIgnored(t *testing.T) {
	root := t.TempDir()
	gate := &fakeGate{}
	d, fw := newTestDispatcher(t, root, gate)
	runDispatcher(t, d)

	subdir := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(subdir, 0o755))
	fw.events <- fsnotify.Event{Name: subdir, Op: fsnotify.Create}

	require.Eventually(t, func() bool {
		fw.mu.Lock()
		defer fw.mu.Unlock()
		for _, a := range fw.added {
			if a == subdir {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	stats, err := d.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ActiveCount)
}
