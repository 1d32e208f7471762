// Package alert implements the Alert Sink: typed classification, per-kind
// cooldown, content-fingerprint dedup, and fanout to an append-only log plus
// an optional delivery adapter.
package alert

import (
	"strings"
	"time"
)

// Alert is one emitted notification.
type Alert struct {
	ID      string
	Kind    string
	Message string
	At      time.Time
}

// classifyKind extracts an alert's kind, matching notification.py's
// _get_message_type: three well-known substrings map to normalized kind
// names (only the first two can appear in this module's own alert text;
// "Isolated process" is kept from the original's list), everything else
// falls back to the substring before the first colon, or the first 20
// characters if there's no colon at all. "RECOVERY PROCESS INITIATED" and
// "RECOVERY FAILED" aren't special-cased because the colon-split fallback
// already produces exactly those strings for this module's own message
// text (spec.md §6's literal kind-prefix grammar).
func classifyKind(message string) string {
	switch {
	case strings.Contains(message, "POTENTIAL RANSOMWARE ACTIVITY DETECTED"):
		return "RANSOMWARE_DETECTION"
	case strings.Contains(message, "RECOVERY COMPLETE"):
		return "RECOVERY_COMPLETE"
	case strings.Contains(message, "Isolated process"):
		return "PROCESS_ISOLATION"
	}
	if idx := strings.Index(message, ":"); idx >= 0 {
		return message[:idx]
	}
	if len(message) > 20 {
		return message[:20]
	}
	return message
}

// fingerprint builds a dedup key from the first 50 and last 20 characters of
// a message, matching notification.py's _generate_message_fingerprint.
func fingerprint(message string) string {
	if len(message) > 70 {
		return message[:50] + message[len(message)-20:]
	}
	return message
}
