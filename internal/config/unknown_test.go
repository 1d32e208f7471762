package config

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckUnknownKeys_NoUnknowns(t *testing.T) {
	cfg := DefaultConfig()
	md, err := toml.Decode(`MONITORING_DIR = "/mnt/x"`, cfg)
	require.NoError(t, err)
	assert.NoError(t, checkUnknownKeys(&md))
}

func TestCheckUnknownKeys_SuggestsClosestMatch(t *testing.T) {
	cfg := DefaultConfig()
	md, err := toml.Decode(`MONITORNG_DIR = "/mnt/x"`, cfg)
	require.NoError(t, err)

	err = checkUnknownKeys(&md)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONITORNG_DIR")
	assert.Contains(t, err.Error(), "MONITORING_DIR")
}

func TestCheckUnknownKeys_NoSuggestionWhenFarFromAnyKnownKey(t *testing.T) {
	cfg := DefaultConfig()
	md, err := toml.Decode(`COMPLETELY_UNRELATED_SETTING = "x"`, cfg)
	require.NoError(t, err)

	err = checkUnknownKeys(&md)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COMPLETELY_UNRELATED_SETTING")
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 1, levenshtein("abc", "abd"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 3, levenshtein("abc", ""))
}
