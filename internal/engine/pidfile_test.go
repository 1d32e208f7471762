package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePIDFile_WritesOwnPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ransomguard.pid")
	cleanup, err := WritePIDFile(path)
	require.NoError(t, err)
	defer cleanup()

	pid, err := ReadPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestWritePIDFile_RejectsSecondLockHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ransomguard.pid")
	cleanup, err := WritePIDFile(path)
	require.NoError(t, err)
	defer cleanup()

	_, err = WritePIDFile(path)
	assert.Error(t, err)
}

func TestWritePIDFile_EmptyPathErrors(t *testing.T) {
	_, err := WritePIDFile("")
	assert.Error(t, err)
}

func TestReadPIDFile_MissingFileErrors(t *testing.T) {
	_, err := ReadPIDFile(filepath.Join(t.TempDir(), "absent.pid"))
	assert.Error(t, err)
}

func TestReadPIDFile_InvalidContentsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ransomguard.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid\n"), 0o644))

	_, err := ReadPIDFile(path)
	assert.Error(t, err)
}

func TestIsAlive_CurrentProcessIsAlive(t *testing.T) {
	assert.True(t, IsAlive(os.Getpid()))
}

func TestIsAlive_UnlikelyPIDIsNotAlive(t *testing.T) {
	// PID 1 is typically init/systemd and alive in most environments, so use
	// a PID far beyond any realistic process table instead.
	assert.False(t, IsAlive(999999))
}
