package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags() {
	flagConfigPath = ""
	flagJSON = false
	flagVerbose = false
	flagDebug = false
	flagQuiet = false
}

func TestBuildLogger_DefaultIsWarn(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	logger := buildLogger(nil)
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLogger_VerboseIsInfo(t *testing.T) {
	resetFlags()
	flagVerbose = true
	t.Cleanup(resetFlags)

	logger := buildLogger(nil)
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_DebugIsDebug(t *testing.T) {
	resetFlags()
	flagDebug = true
	t.Cleanup(resetFlags)

	logger := buildLogger(nil)
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_QuietIsError(t *testing.T) {
	resetFlags()
	flagQuiet = true
	t.Cleanup(resetFlags)

	logger := buildLogger(nil)
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
}

func TestMustCLIContext_PanicsWithoutContext(t *testing.T) {
	assert.Panics(t, func() {
		mustCLIContext(context.Background())
	})
}

func TestCliContextFrom_ReturnsNilWithoutContext(t *testing.T) {
	assert.Nil(t, cliContextFrom(context.Background()))
}

func TestNewRootCmd_RegistersEverySubcommand(t *testing.T) {
	cmd := newRootCmd()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"run", "status", "catalog", "restore"} {
		assert.True(t, names[want], "expected subcommand %q to be registered", want)
	}
}

func TestNewRootCmd_MutuallyExclusiveVerbosityFlags(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--verbose", "--debug", "status"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
}
