package dispatcher

import "strings"

// alwaysExcludedSuffixes are extensions that never represent meaningful
// user activity: the backup store's own in-flight copies, editor swap
// files, and OS metadata.
var alwaysExcludedSuffixes = []string{
	".partial", // backup store's own in-progress copy
	".swp", ".swo", // vim swap files
	".tmp",
	"thumbs.db",
	"desktop.ini",
	".ds_store",
}

// isAlwaysExcluded reports whether name is a filesystem artifact that
// should never participate in detection, mirrored on the same
// extension/prefix classification the engine's file walker uses elsewhere.
func isAlwaysExcluded(name string) bool {
	if name == "" {
		return true
	}

	lower := strings.ToLower(name)
	for _, suffix := range alwaysExcludedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}

	// Editor backup files (~file) and lock files (.~lock).
	return strings.HasPrefix(name, "~") || strings.HasPrefix(name, ".~")
}
