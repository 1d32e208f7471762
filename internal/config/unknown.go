package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when an unknown config key is detected.
const maxLevenshteinDistance = 3

// knownKeys are the valid top-level keys in the flat config file.
var knownKeys = map[string]bool{
	"MONITORING_DIR": true, "BACKUP_DIR": true, "LOG_DIR": true,
	"FILE_OP_FREQUENCY_THRESHOLD": true, "EXTENSION_CHANGE_THRESHOLD": true, "ENTROPY_THRESHOLD": true,
	"FREQUENCY_WEIGHT": true, "EXTENSION_WEIGHT": true, "ENTROPY_WEIGHT": true,
	"DETECTION_THRESHOLD": true, "REQUIRE_MODEL_CONFIRMATION": true, "MODEL_PATH": true,
	"AUTO_RECOVERY": true, "RECOVERY_TIMEOUT": true,
	"ENABLE_CONSOLE_ALERTS": true, "LOG_ALERTS": true, "ENABLE_EXTERNAL_ALERTS": true,
	"EXTERNAL_ALERT_ENDPOINT": true, "EXTERNAL_ALERT_TOKEN": true,
}

// knownKeysList is the sorted slice form of knownKeys, for deterministic
// Levenshtein suggestions when two candidates tie on edit distance.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns an
// error with a "did you mean?" suggestion for each one.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error
	for _, key := range undecoded {
		keyStr := key.String()
		if knownKeys[keyStr] {
			continue
		}

		if suggestion := closestMatch(keyStr, knownKeysList); suggestion != "" {
			errs = append(errs, fmt.Errorf("unknown config key %q — did you mean %q?", keyStr, suggestion))
		} else {
			errs = append(errs, fmt.Errorf("unknown config key %q", keyStr))
		}
	}

	return errors.Join(errs...)
}

// closestMatch finds the closest known key by Levenshtein distance. Returns
// empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}
	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}
	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}
			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
