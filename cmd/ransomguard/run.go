package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ransomguard/ransomguard/internal/engine"
	"github.com/ransomguard/ransomguard/internal/features"
)

func newRunCmd() *cobra.Command {
	var flagCleanupEncrypted bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the monitoring and recovery engine",
		Long: `Watch MONITORING_DIR for ransomware-like file activity, maintaining a
shadow backup and triggering automatic recovery on detection.

Runs in the foreground until interrupted (SIGINT/SIGTERM). Shutdown stops
the watcher and closes the alert sink and catalog; it does not wait for an
in-flight restore, which ends when the process exits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEngine(cmd.Context(), flagCleanupEncrypted)
		},
	}

	cmd.Flags().BoolVar(&flagCleanupEncrypted, "cleanup-encrypted", false,
		"remove files matching the encrypted/locked/crypt motif under MONITORING_DIR before starting")

	return cmd
}

func runEngine(ctx context.Context, cleanupEncrypted bool) error {
	cc := mustCLIContext(ctx)
	cfg, logger := cc.Cfg, cc.Logger

	if cleanupEncrypted {
		if err := cleanupEncryptedFiles(cfg.MonitoringDir, logger); err != nil {
			return fmt.Errorf("pre-flight cleanup: %w", err)
		}
	}

	pidPath := filepath.Join(cfg.LogDir, "ransomguard.pid")
	cleanup, err := engine.WritePIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("acquiring single-instance lock: %w", err)
	}
	defer cleanup()

	e, err := engine.New(cfg, nil, logger)
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	runCtx := shutdownContext(ctx, logger)
	if err := e.Start(runCtx); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	logger.Info("ransomguard running", "monitoring_dir", cfg.MonitoringDir, "backup_dir", cfg.BackupDir)

	<-runCtx.Done()

	logger.Info("shutting down")
	return e.Stop()
}

// cleanupEncryptedFiles removes files under root whose name matches the
// ransomware extension motif, a pre-flight pass useful after a test run or
// an incomplete manual recovery.
func cleanupEncryptedFiles(root string, logger *slog.Logger) error {
	removed := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if features.ContainsEncryptedMotif(d.Name()) {
			if rmErr := os.Remove(path); rmErr != nil {
				logger.Warn("cleanup: could not remove file", "path", path, "error", rmErr)
				return nil
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("pre-flight cleanup complete", "removed", removed)
	return nil
}

// shutdownContext returns a context that cancels on the first SIGINT/SIGTERM
// and force-exits on the second, so the user can still force-quit if the
// engine's shutdown hangs.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", "signal", sig.String())
			os.Exit(1)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}
