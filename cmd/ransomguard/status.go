package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ransomguard/ransomguard/internal/backup"
	"github.com/ransomguard/ransomguard/internal/config"
	"github.com/ransomguard/ransomguard/internal/engine"
)

func newStatusCmd() *cobra.Command {
	var flagTail int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog counters, daemon liveness, and recent alerts",
		Long: `Report the state of a running or previously-run ransomguard instance.

Reads the catalog database and alert log from disk rather than querying a
live process, so it works whether or not "ransomguard run" is currently
active.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), flagTail)
		},
	}

	cmd.Flags().IntVar(&flagTail, "tail", 5, "number of recent alert records to show")

	return cmd
}

// statusReport is the JSON-serializable status payload.
type statusReport struct {
	Running         bool     `json:"running"`
	PID             int      `json:"pid,omitempty"`
	MonitoringDir   string   `json:"monitoring_dir"`
	BackupDir       string   `json:"backup_dir"`
	ActiveBackups   int      `json:"active_backups"`
	TombstonedCount int      `json:"tombstoned_count"`
	RecentAlerts    []string `json:"recent_alerts,omitempty"`
}

func runStatus(ctx context.Context, tail int) error {
	cc := mustCLIContext(ctx)
	cfg, logger := cc.Cfg, cc.Logger

	report := statusReport{
		MonitoringDir: cfg.MonitoringDir,
		BackupDir:     cfg.BackupDir,
	}

	pidPath := filepath.Join(cfg.LogDir, "ransomguard.pid")
	if pid, err := engine.ReadPIDFile(pidPath); err == nil {
		report.PID = pid
		report.Running = engine.IsAlive(pid)
	}

	dbPath := filepath.Join(cfg.LogDir, "file_checksums.db")
	if stats, err := readCatalogStats(cfg, dbPath, logger); err == nil {
		report.ActiveBackups = stats.ActiveCount
		report.TombstonedCount = stats.TombstonedCount
	} else {
		logger.Debug("status: could not read catalog", "error", err)
	}

	if tail > 0 {
		report.RecentAlerts = tailAlertLog(filepath.Join(cfg.LogDir, "alerts.log"), tail)
	}

	if cc.JSON {
		return printStatusJSON(report)
	}
	printStatusText(report)
	return nil
}

func readCatalogStats(cfg *config.Config, dbPath string, logger *slog.Logger) (backup.Stats, error) {
	store, err := backup.NewStore(cfg.MonitoringDir, cfg.BackupDir, dbPath, logger)
	if err != nil {
		return backup.Stats{}, err
	}
	defer store.Close()
	return store.Stats(context.Background())
}

func printStatusJSON(report statusReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func printStatusText(report statusReport) {
	state := "not running"
	if report.Running {
		state = fmt.Sprintf("running (pid %d)", report.PID)
	}

	fmt.Printf("Status:         %s\n", state)
	fmt.Printf("Monitoring dir: %s\n", report.MonitoringDir)
	fmt.Printf("Backup dir:     %s\n", report.BackupDir)
	fmt.Printf("Active backups: %d\n", report.ActiveBackups)
	fmt.Printf("Tombstoned:     %d\n", report.TombstonedCount)

	if len(report.RecentAlerts) > 0 {
		fmt.Println("\nRecent alerts:")
		for _, a := range report.RecentAlerts {
			fmt.Println(strings.TrimSpace(a))
		}
	}
}

// tailAlertLog returns the last n blank-line-separated records from the
// alert log, oldest first. Missing files are treated as "no alerts yet."
func tailAlertLog(path string, n int) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	records := strings.Split(strings.TrimSpace(string(data)), "\n\n")
	if len(records) > n {
		records = records[len(records)-n:]
	}
	return records
}
