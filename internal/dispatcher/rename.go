package dispatcher

import "time"

// renameCorrelationWindow is how long a Remove event waits for a matching
// Create before it's committed as a plain Deleted. fsnotify delivers a
// rename as two separate events (Remove of the old path, Create of the
// new one) rather than one atomic event carrying both paths, so this is a
// best-effort reconstruction, not a guarantee: concurrent renames of
// similarly-timed files are paired in delivery order (FIFO), not by
// content identity, since fsnotify gives no inode/identity correlation.
const renameCorrelationWindow = 150 * time.Millisecond

type pendingRemove struct {
	relpath string
	at      time.Time
}

// renameCorrelator pairs Remove+Create event sequences into Renamed
// events. Owned by the Dispatcher task, no internal locking.
type renameCorrelator struct {
	pending []pendingRemove
}

func newRenameCorrelator() *renameCorrelator {
	return &renameCorrelator{}
}

// PushRemove records a Remove event as a rename candidate.
func (r *renameCorrelator) PushRemove(relpath string, now time.Time) {
	r.pending = append(r.pending, pendingRemove{relpath: relpath, at: now})
}

// MatchCreate attempts to pair a Create seen at now with the oldest pending
// Remove that hasn't yet aged out of the correlation window. Returns the
// matched source relpath and true on success. An aged-out entry is left in
// place for Expired to collect as a Deleted event rather than being
// dropped here, so no pending Remove is ever silently lost.
func (r *renameCorrelator) MatchCreate(now time.Time) (string, bool) {
	if len(r.pending) == 0 {
		return "", false
	}
	if now.Sub(r.pending[0].at) > renameCorrelationWindow {
		return "", false
	}
	src := r.pending[0].relpath
	r.pending = r.pending[1:]
	return src, true
}

// Expired drains and returns pending removes whose correlation window has
// elapsed without a matching Create — these commit as plain Deleted
// events. Called periodically by the watch loop's ticker rather than from
// a per-event timer, per the engine's no-detached-work design.
func (r *renameCorrelator) Expired(now time.Time) []string {
	cutoff := now.Add(-renameCorrelationWindow)
	i := 0
	for i < len(r.pending) && r.pending[i].at.Before(cutoff) {
		i++
	}
	expired := make([]string, i)
	for j := 0; j < i; j++ {
		expired[j] = r.pending[j].relpath
	}
	r.pending = r.pending[i:]
	return expired
}
