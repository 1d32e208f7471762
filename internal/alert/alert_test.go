package alert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyKind_KnownSubstrings(t *testing.T) {
	cases := map[string]string{
		"POTENTIAL RANSOMWARE ACTIVITY DETECTED!\nReason: extension changes exceeded threshold": "RANSOMWARE_DETECTION",
		"RECOVERY COMPLETE: 12 restored, 0 failed":                                              "RECOVERY_COMPLETE",
		"Isolated process 1234 for suspicious file access":                                       "PROCESS_ISOLATION",
	}
	for msg, want := range cases {
		assert.Equal(t, want, classifyKind(msg), msg)
	}
}

func TestClassifyKind_ColonSplitForOtherKindPrefixes(t *testing.T) {
	cases := map[string]string{
		"RECOVERY PROCESS INITIATED: 2026-07-31 10:00:00": "RECOVERY PROCESS INITIATED",
		"RECOVERY FAILED: 3 restored, 2 failed":           "RECOVERY FAILED",
	}
	for msg, want := range cases {
		assert.Equal(t, want, classifyKind(msg), msg)
	}
}

func TestClassifyKind_FallsBackToColonPrefix(t *testing.T) {
	assert.Equal(t, "custom thing", classifyKind("custom thing: some detail"))
}

func TestClassifyKind_FallsBackToFirst20Chars(t *testing.T) {
	msg := "a message with no colon in it at all and quite long"
	assert.Equal(t, msg[:20], classifyKind(msg))
}

func TestClassifyKind_ShortMessageNoColon(t *testing.T) {
	assert.Equal(t, "short", classifyKind("short"))
}

func TestFingerprint_ShortMessageUnchanged(t *testing.T) {
	msg := "a short message"
	assert.Equal(t, msg, fingerprint(msg))
}

func TestFingerprint_LongMessageTruncated(t *testing.T) {
	msg := strings.Repeat("a", 50) + strings.Repeat("b", 30) + strings.Repeat("c", 20)
	fp := fingerprint(msg)
	assert.Equal(t, strings.Repeat("a", 50)+strings.Repeat("c", 20), fp)
}
