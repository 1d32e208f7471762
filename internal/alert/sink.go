package alert

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
)

// DefaultCooldown is the minimum interval between two alerts of the same
// kind, matching spec.md §4.6's default.
const DefaultCooldown = 60 * time.Second

// fingerprintTTL is how long a content fingerprint is remembered before the
// dedup set effectively forgets it (spec.md §4.6: "set is cleared every 24h").
// Badger's per-key TTL gives this for free instead of a manual sweep.
const fingerprintTTL = 24 * time.Hour

const tailCapacity = 500

// DeliveryAdapter is a pluggable alert fanout target (webhook, chat,
// websocket broadcast). Delivery failures must never propagate back to the
// caller of Emit — the Sink only logs them.
type DeliveryAdapter interface {
	Deliver(Alert) error
}

// Sink is the Alert Sink. It satisfies recovery.AlertSink and
// dispatcher-adjacent callers through its single Emit(string) method.
type Sink struct {
	logPath        string
	db             *badger.DB
	cooldown       time.Duration
	adapter        DeliveryAdapter
	consoleEnabled bool
	logger         *slog.Logger

	logMu sync.Mutex

	recentMu sync.Mutex
	recent   []Alert
}

// New opens (or creates) the dedup store at dbDir and returns a ready Sink.
// logPath is the append-only alerts log file; adapter may be nil.
func New(logPath, dbDir string, cooldown time.Duration, adapter DeliveryAdapter, consoleEnabled bool, logger *slog.Logger) (*Sink, error) {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	opts := badger.DefaultOptions(dbDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("alert: opening dedup store: %w", err)
	}

	return &Sink{
		logPath:        logPath,
		db:             db,
		cooldown:       cooldown,
		adapter:        adapter,
		consoleEnabled: consoleEnabled,
		logger:         logger,
	}, nil
}

// Close releases the dedup store.
func (s *Sink) Close() error {
	return s.db.Close()
}

// Emit classifies, dedups, persists, and fans out message. It never returns
// an error: every failure mode (store trouble, log-write trouble, delivery
// trouble) is logged and swallowed, matching spec.md §4.6's fanout contract.
func (s *Sink) Emit(message string) {
	kind := classifyKind(message)
	fp := fingerprint(message)

	if s.suppressed(kind, fp) {
		s.logger.Debug("alert suppressed", "kind", kind)
		return
	}

	a := Alert{
		ID:      uuid.NewString(),
		Kind:    kind,
		Message: message,
		At:      time.Now(),
	}

	s.appendLog(a)
	s.printConsole(a)
	s.deliver(a)
	s.remember(a)
}

// suppressed checks and, if not already suppressed, atomically claims both
// the fingerprint and cooldown keys for this emission inside one Badger
// transaction — two independent dedup mechanisms sharing one round trip.
func (s *Sink) suppressed(kind, fp string) bool {
	fpKey := []byte("fp:" + fp)
	cooldownKey := []byte("cooldown:" + kind)

	hit := false
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(fpKey); err == nil {
			hit = true
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if _, err := txn.Get(cooldownKey); err == nil {
			hit = true
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if hit {
			return nil
		}

		if err := txn.SetEntry(badger.NewEntry(fpKey, []byte{1}).WithTTL(fingerprintTTL)); err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(cooldownKey, []byte{1}).WithTTL(s.cooldown))
	})
	if err != nil {
		s.logger.Warn("alert dedup store error, allowing through", "error", err)
		return false
	}

	return hit
}

// appendLog writes one alert to the append-only log in spec.md §4.6's
// "[YYYY-MM-DD HH:MM:SS] ALERT: <message>" format, blank-line separated.
// Mutexed: the spec allows unmutexed concurrent appends only where the OS
// guarantees atomic small writes, which isn't something this code can rely
// on portably.
func (s *Sink) appendLog(a Alert) {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	f, err := os.OpenFile(s.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Warn("alert log open failed", "path", s.logPath, "error", err)
		return
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] ALERT: %s\n\n", a.At.Format("2006-01-02 15:04:05"), a.Message)
	if _, err := f.WriteString(line); err != nil {
		s.logger.Warn("alert log write failed", "path", s.logPath, "error", err)
	}
}

// printConsole writes a banner-framed alert to stdout when attached to a
// terminal, or a plain line otherwise — isatty decides which.
func (s *Sink) printConsole(a Alert) {
	if !s.consoleEnabled {
		return
	}

	line := fmt.Sprintf("[%s] ALERT: %s", a.At.Format("2006-01-02 15:04:05"), a.Message)
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		banner := strings.Repeat("!", 80)
		fmt.Println("\n" + banner)
		fmt.Println(line)
		fmt.Println(banner + "\n")
		return
	}
	fmt.Println(line)
}

func (s *Sink) deliver(a Alert) {
	if s.adapter == nil {
		return
	}
	if err := s.adapter.Deliver(a); err != nil {
		s.logger.Warn("alert delivery failed", "kind", a.Kind, "error", err)
	}
}

func (s *Sink) remember(a Alert) {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()

	s.recent = append(s.recent, a)
	if len(s.recent) > tailCapacity {
		s.recent = s.recent[len(s.recent)-tailCapacity:]
	}
}

// Tail returns the last n emitted alerts (fewer if less than n were ever
// emitted), oldest first. Serves the status/control-surface "recent alerts"
// view.
func (s *Sink) Tail(n int) []Alert {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()

	if n <= 0 || n > len(s.recent) {
		n = len(s.recent)
	}
	out := make([]Alert, n)
	copy(out, s.recent[len(s.recent)-n:])
	return out
}
