package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailAlertLog_MissingFileReturnsNil(t *testing.T) {
	assert.Nil(t, tailAlertLog(filepath.Join(t.TempDir(), "absent.log"), 5))
}

func TestTailAlertLog_ReturnsLastNRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.log")
	content := "[t1] ALERT: one\n\n[t2] ALERT: two\n\n[t3] ALERT: three\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records := tailAlertLog(path, 2)
	require.Len(t, records, 2)
	assert.Contains(t, records[0], "two")
	assert.Contains(t, records[1], "three")
}

func TestRunStatus_NotRunningNoCatalogYet(t *testing.T) {
	ctx, _ := testCLIContext(t)
	assert.NoError(t, runStatus(ctx, 5))
}

func TestRunStatus_ReportsCatalogCounts(t *testing.T) {
	ctx, cfg := testCLIContext(t)

	absPath := filepath.Join(cfg.MonitoringDir, "doc.txt")
	require.NoError(t, os.WriteFile(absPath, []byte("x"), 0o644))

	dbPath := filepath.Join(cfg.LogDir, "file_checksums.db")
	stats, err := readCatalogStats(cfg, dbPath, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ActiveCount) // nothing backed up yet, just on disk

	assert.NoError(t, runStatus(ctx, 0))
}

func TestRunStatus_JSONOutput(t *testing.T) {
	ctx, _ := testCLIContext(t)
	cliContextFrom(ctx).JSON = true

	assert.NoError(t, runStatus(ctx, 0))
}
