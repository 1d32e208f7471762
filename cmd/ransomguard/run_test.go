package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanupEncryptedFiles_RemovesMotifMatches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt.encrypted"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.locked"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.CRYPT"), []byte("x"), 0o644))

	require.NoError(t, cleanupEncryptedFiles(dir, discardLogger()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var remaining []string
	for _, e := range entries {
		remaining = append(remaining, e.Name())
	}
	assert.Contains(t, remaining, "a.txt")
	assert.NotContains(t, remaining, "a.txt.encrypted")
	assert.NotContains(t, remaining, "b.locked")

	_, err = os.Stat(filepath.Join(dir, "sub", "c.CRYPT"))
	assert.True(t, os.IsNotExist(err))
}

func TestCleanupEncryptedFiles_EmptyDirNoError(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, cleanupEncryptedFiles(dir, discardLogger()))
}
