// Package recovery implements the Recovery Orchestrator: the
// Idle/Armed/Restoring state machine that debounces detections, suppresses
// self-detection while a restore runs, and drives the Backup Store through
// a full recovery cycle.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ransomguard/ransomguard/internal/backup"
	"github.com/ransomguard/ransomguard/internal/dispatcher"
	"github.com/ransomguard/ransomguard/internal/features"
)

// State names the orchestrator's position in the Idle -> Armed -> Restoring
// -> Idle cycle.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRestoring
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRestoring:
		return "restoring"
	default:
		return "unknown"
	}
}

// DefaultRecoveryTimeout is the debounce window between a detection arming
// recovery and the restore actually starting, matching spec's default of
// 10 seconds.
const DefaultRecoveryTimeout = 10 * time.Second

// AlertSink is the narrow interface the Orchestrator emits alerts through.
// Defined here (the consumer) rather than depending on internal/alert
// directly, the same seam internal/dispatcher uses for RecoveryGate.
type AlertSink interface {
	Emit(message string)
}

// Orchestrator is the Recovery Orchestrator. It implements
// dispatcher.RecoveryGate.
type Orchestrator struct {
	store *backup.Store
	extr  *features.Extractor
	sink  AlertSink

	autoRecovery bool
	timeout      time.Duration
	logger       *slog.Logger

	mu    sync.Mutex
	state State
	timer *time.Timer

	detections atomic.Uint64
	recoveries atomic.Uint64
}

// New constructs an Orchestrator in the Idle state. autoRecovery gates
// whether a detection ever arms a restore; when false, detections are still
// forwarded to sink but no recovery cycle runs (spec §4.5).
func New(store *backup.Store, extr *features.Extractor, sink AlertSink, autoRecovery bool, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultRecoveryTimeout
	}
	return &Orchestrator{
		store:        store,
		extr:         extr,
		sink:         sink,
		autoRecovery: autoRecovery,
		timeout:      timeout,
		logger:       logger,
		state:        StateIdle,
	}
}

// InProgress reports whether the Scorer must be suppressed. Only the
// Restoring phase suppresses detection outright — Armed still lets events
// flow through the Scorer, it just ignores anything they produce (see
// Detected), matching spec's "Scorer disabled" language applying strictly
// to the restore phase.
func (o *Orchestrator) InProgress() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateRestoring
}

// State returns the orchestrator's current phase, for status reporting.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Stats returns the running detection/recovery counters for EngineState.
func (o *Orchestrator) Stats() (detections, recoveries uint64) {
	return o.detections.Load(), o.recoveries.Load()
}

// Detected handles a Scorer verdict. Every detection is counted, logged and
// emitted as a detection alert. A detection while Idle also arms the
// debounce timer if auto-recovery is enabled. A detection that arrives while
// Armed or Restoring does not re-arm the timer and does not spawn a second
// restore, per spec's "additional detections during this window do NOT re-arm".
func (o *Orchestrator) Detected(d dispatcher.Detection) {
	o.detections.Add(1)

	o.mu.Lock()
	defer o.mu.Unlock()

	o.logger.Warn("ransomware detection", "reason", d.Reason, "confidence", d.Confidence)
	o.emitLocked(fmt.Sprintf("POTENTIAL RANSOMWARE ACTIVITY DETECTED!\nReason: %s (op_rate=%.1f ext_changes=%d entropy=%.2f confidence=%.1f)",
		d.Reason, d.OpRate, d.ExtChanges, d.Entropy, d.Confidence))

	if o.state != StateIdle {
		return
	}
	if !o.autoRecovery {
		return
	}

	o.state = StateArmed
	o.emitLocked(fmt.Sprintf("RECOVERY PROCESS INITIATED: %s", time.Now().Format("2006-01-02 15:04:05")))
	o.timer = time.AfterFunc(o.timeout, o.runRecovery)
}

// runRecovery is the dedicated restore worker: it runs on its own goroutine
// (via time.AfterFunc), never on the Dispatcher's event-pump goroutine, so a
// large restore can't stall event processing (spec §5's "restores run on a
// dedicated worker task").
func (o *Orchestrator) runRecovery() {
	o.mu.Lock()
	o.state = StateRestoring
	o.mu.Unlock()

	// Deliberately context.Background(), not tied to the app's shutdown
	// context: spec §5 requires an in-flight restore to be allowed to
	// complete even when shutdown is already underway.
	restored, failed := o.store.RestoreAll(context.Background(), nil)
	o.recoveries.Add(1)

	o.mu.Lock()
	defer o.mu.Unlock()

	if failed > 0 {
		o.emitLocked(fmt.Sprintf("RECOVERY FAILED: %d restored, %d failed", restored, failed))
	} else {
		o.emitLocked(fmt.Sprintf("RECOVERY COMPLETE: %d restored, %d failed", restored, failed))
	}

	now := time.Now()
	o.extr.ResetExtChanges(now)
	o.timer = nil
	o.state = StateIdle
}

func (o *Orchestrator) emitLocked(message string) {
	if o.sink != nil {
		o.sink.Emit(message)
	}
}
