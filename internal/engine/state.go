package engine

import (
	"context"

	"github.com/ransomguard/ransomguard/internal/backup"
	"github.com/ransomguard/ransomguard/internal/recovery"
)

// Snapshot is the read-only view of the engine's running state, spec.md
// §6's control surface.
type Snapshot struct {
	Detections         int64
	Recoveries         int64
	ActiveBackups      int64
	MonitoredFiles     int64
	RecoveryInProgress bool
}

// EngineState aggregates the running counters scattered across the
// orchestrator and backup store into one read-only snapshot, and mirrors
// the gauge-shaped ones onto the Prometheus collectors in metrics.go.
type EngineState struct {
	store        *backup.Store
	orchestrator *recovery.Orchestrator
}

func newEngineState(store *backup.Store, orchestrator *recovery.Orchestrator) *EngineState {
	return &EngineState{store: store, orchestrator: orchestrator}
}

// Snapshot reports the engine's current counters. ActiveBackups and
// MonitoredFiles both come from the catalog's active-row count — every
// file under the monitored tree has exactly one active catalog row once
// the initial scan completes, so the catalog is the single source of
// truth for both.
func (s *EngineState) Snapshot(ctx context.Context) Snapshot {
	detections, recoveries := s.orchestrator.Stats()
	inProgress := s.orchestrator.InProgress()

	var active int64
	if stats, err := s.store.Stats(ctx); err == nil {
		active = int64(stats.ActiveCount)
	}

	activeBackups.Set(float64(active))
	monitoredFiles.Set(float64(active))
	if inProgress {
		recoveryInProgress.Set(1)
	} else {
		recoveryInProgress.Set(0)
	}

	return Snapshot{
		Detections:         int64(detections),
		Recoveries:         int64(recoveries),
		ActiveBackups:      active,
		MonitoredFiles:     active,
		RecoveryInProgress: inProgress,
	}
}
