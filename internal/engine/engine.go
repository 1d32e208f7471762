// Package engine assembles the Backup Store, Feature Extractor, Scorer,
// Event Dispatcher, Recovery Orchestrator, and Alert Sink into one
// isolatable unit with a Start/Stop lifecycle and a read-only control
// surface (spec.md §6).
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/ransomguard/ransomguard/internal/alert"
	"github.com/ransomguard/ransomguard/internal/backup"
	"github.com/ransomguard/ransomguard/internal/config"
	"github.com/ransomguard/ransomguard/internal/dispatcher"
	"github.com/ransomguard/ransomguard/internal/features"
	"github.com/ransomguard/ransomguard/internal/model"
	"github.com/ransomguard/ransomguard/internal/recovery"
	"github.com/ransomguard/ransomguard/internal/scorer"
)

// Engine owns every core component and the single goroutine that runs the
// Dispatcher's watch loop.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	store        *backup.Store
	extr         *features.Extractor
	scorer       *scorer.Scorer
	orchestrator *recovery.Orchestrator
	sink         *alert.Sink
	dispatcher   *dispatcher.Dispatcher
	state        *EngineState

	cancel context.CancelFunc
	wg     sync.WaitGroup
	runErr error
}

// New wires every component from cfg. adapter is an optional extra
// DeliveryAdapter (e.g. a WebsocketAdapter) fanned out alongside the
// built-in metrics observer; pass nil for none.
func New(cfg *config.Config, adapter alert.DeliveryAdapter, logger *slog.Logger) (*Engine, error) {
	dbPath := filepath.Join(cfg.LogDir, "file_checksums.db")
	store, err := backup.NewStore(cfg.MonitoringDir, cfg.BackupDir, dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("engine: opening backup store: %w", err)
	}

	predictor := loadPredictor(cfg, logger)

	extr := features.New()
	sc := scorer.New(cfg.ScorerConfig(), predictor, logger)

	sinkDBDir := filepath.Join(cfg.LogDir, "alert_dedup")
	sink, err := alert.New(
		filepath.Join(cfg.LogDir, "alerts.log"),
		sinkDBDir,
		alert.DefaultCooldown,
		newMetricsAdapter(adapter),
		cfg.EnableConsoleAlerts && cfg.LogAlerts,
		logger,
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("engine: opening alert sink: %w", err)
	}

	orchestrator := recovery.New(store, extr, sink, cfg.AutoRecovery, cfg.RecoveryTimeoutDuration(), logger)
	disp := dispatcher.New(cfg.MonitoringDir, store, extr, sc, orchestrator, logger)

	return &Engine{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		extr:         extr,
		scorer:       sc,
		orchestrator: orchestrator,
		sink:         sink,
		dispatcher:   disp,
		state:        newEngineState(store, orchestrator),
	}, nil
}

// loadPredictor loads the configured model artifact, degrading to a noop
// predictor on any failure or absence — spec.md §4.3's ModelUnavailable
// policy: never fatal, just a one-time warning.
//
// A noop predictor never contributes the model leg of the scorer's
// threshold AND (rule OR model) formula, but the rule ensemble can still
// confirm a positive threshold on its own; REQUIRE_MODEL_CONFIRMATION only
// blocks detections that are threshold-positive with neither a rule nor a
// model voting anomalous.
func loadPredictor(cfg *config.Config, logger *slog.Logger) model.Predictor {
	if cfg.ModelPath == "" {
		return model.NewNoopPredictor(0)
	}

	m, err := model.Load(cfg.ModelPath)
	if err != nil {
		logger.Warn("anomaly model unavailable, degrading to threshold+rules", "path", cfg.ModelPath, "error", err)
		return model.NewNoopPredictor(0)
	}

	return m
}

// Start runs the Dispatcher's watch loop on its own goroutine and returns
// immediately. Stop isolates shutdown to this one unit, matching spec.md
// §5's "FS watcher stops first" ordering.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runErr = e.dispatcher.Run(runCtx)
	}()

	return nil
}

// Stop cancels the Dispatcher's context and waits for its goroutine to
// exit, then closes the alert sink and the backup store. An in-flight
// restore is NOT tied to runCtx (the orchestrator uses context.Background()
// for it), so cancellation does not interrupt it, but Stop does not wait
// for it either: it keeps running only as long as the process does.
func (e *Engine) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()

	if err := e.sink.Close(); err != nil {
		e.logger.Warn("closing alert sink", "error", err)
	}
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing backup store", "error", err)
	}

	return e.runErr
}

// State returns the control surface's snapshot source.
func (e *Engine) State() *EngineState {
	return e.state
}

// Sink exposes the Alert Sink for Tail(n) queries from the CLI.
func (e *Engine) Sink() *alert.Sink {
	return e.sink
}

// Store exposes the Backup Store for manual restore/cleanup CLI commands.
func (e *Engine) Store() *backup.Store {
	return e.store
}
