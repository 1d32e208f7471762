package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ransomguard/ransomguard/internal/backup"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and maintain the backup catalog",
	}

	cmd.AddCommand(newCatalogCleanupCmd())
	return cmd
}

func newCatalogCleanupCmd() *cobra.Command {
	var flagOlderThanDays int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge tombstoned catalog rows older than a cutoff",
		Long: `Permanently remove catalog rows that were marked deleted more than
--older-than-days ago. Active rows are never touched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalogCleanup(cmd.Context(), flagOlderThanDays)
		},
	}

	cmd.Flags().IntVar(&flagOlderThanDays, "older-than-days", 30, "remove tombstoned rows older than this many days")

	return cmd
}

func runCatalogCleanup(ctx context.Context, olderThanDays int) error {
	cc := mustCLIContext(ctx)
	cfg, logger := cc.Cfg, cc.Logger

	dbPath := filepath.Join(cfg.LogDir, "file_checksums.db")
	store, err := backup.NewStore(cfg.MonitoringDir, cfg.BackupDir, dbPath, logger)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	removed, err := store.Cleanup(context.Background(), olderThanDays)
	if err != nil {
		return fmt.Errorf("cleaning up catalog: %w", err)
	}

	fmt.Printf("removed %d tombstoned row(s) older than %d days\n", removed, olderThanDays)
	return nil
}
