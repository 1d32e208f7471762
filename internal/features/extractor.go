// Package features maintains the sliding-window behavioral state the
// Dispatcher feeds events into, and reduces it to the current feature
// vector the Scorer consumes.
package features

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Defaults for the three independent time windows, per the engine's
// behavioral model.
const (
	DefaultOpWindow  = 10 * time.Second // W_op
	DefaultExtWindow = 30 * time.Second // W_ext
	DefaultPatWindow = 10 * time.Second // W_pat

	// maxOpTimestamps bounds the operation ring regardless of window size,
	// so a burst far exceeding W_op can't grow it unboundedly.
	maxOpTimestamps = 200

	// minEventsForDetection is the data floor below which the Dispatcher
	// must not ask the Scorer for a verdict, even if the vector looks
	// anomalous on paper.
	minEventsForDetection = 3
)

// motifs are extension substrings that, found in a rename's destination
// extension, count as a high-signal indicator on top of the plain
// extension-change increment. Matched case-insensitively.
var motifs = []string{"encrypted", "locked", "crypt"}

// extCaser lowercases extensions for motif matching. Extension motifs are
// ASCII English tokens, so the language-agnostic tag is correct here.
var extCaser = cases.Lower(language.Und)

// foldExt case-folds an extension for motif comparisons, so "ENC" and "enc"
// are never treated as distinct.
func foldExt(ext string) string {
	return extCaser.String(ext)
}

func containsMotif(ext string) bool {
	folded := foldExt(ext)
	for _, m := range motifs {
		if strings.Contains(folded, m) {
			return true
		}
	}
	return false
}

// ContainsEncryptedMotif reports whether name case-insensitively contains
// one of the ransomware extension motifs ("encrypted", "locked", "crypt").
// Exported for the CLI's pre-flight cleanup pass, which needs the same
// match rule outside of a sliding-window extraction context.
func ContainsEncryptedMotif(name string) bool {
	return containsMotif(name)
}

// Vector is the current behavioral snapshot handed to the Scorer.
type Vector struct {
	OpRate      float64
	ExtChanges  int
	MeanEntropy float64
}

// Extractor maintains the operation timestamp ring, the extension-change
// counter, the extension map, and the create/delete pattern windows. It is
// owned and mutated exclusively by the Dispatcher task; it performs no
// internal locking, matching the single-writer design of the detection
// engine's event pipeline.
type Extractor struct {
	opWindow  time.Duration
	extWindow time.Duration
	patWindow time.Duration

	opTimestamps []time.Time

	extChanges int
	lastReset  time.Time

	extMap map[string]string // relpath -> last-observed extension

	recentCreates map[string]time.Time
	recentDeletes map[string]time.Time
}

// New constructs an Extractor using the default window sizes.
func New() *Extractor {
	return NewWithWindows(DefaultOpWindow, DefaultExtWindow, DefaultPatWindow)
}

// NewWithWindows constructs an Extractor with explicit window sizes, for
// tests that need to compress or stretch the default timing.
func NewWithWindows(opWindow, extWindow, patWindow time.Duration) *Extractor {
	return &Extractor{
		opWindow:      opWindow,
		extWindow:     extWindow,
		patWindow:     patWindow,
		lastReset:     time.Now(),
		extMap:        make(map[string]string),
		recentCreates: make(map[string]time.Time),
		recentDeletes: make(map[string]time.Time),
	}
}

// RecordOp appends now to the operation ring and evicts anything older than
// W_op, enforcing the ring's hard cap regardless of window size.
func (e *Extractor) RecordOp(now time.Time) {
	e.opTimestamps = append(e.opTimestamps, now)
	e.evictOpTimestamps(now)
}

func (e *Extractor) evictOpTimestamps(now time.Time) {
	cutoff := now.Add(-e.opWindow)
	i := 0
	for i < len(e.opTimestamps) && e.opTimestamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		e.opTimestamps = e.opTimestamps[i:]
	}
	if over := len(e.opTimestamps) - maxOpTimestamps; over > 0 {
		e.opTimestamps = e.opTimestamps[over:]
	}
}

// maybeResetExtChanges resets the extension-change counter if more than
// W_ext has elapsed since the last reset. Called on every event, per §3's
// invariant that the reset only happens "upon the next event" rather than
// on a background timer.
func (e *Extractor) maybeResetExtChanges(now time.Time) {
	if now.Sub(e.lastReset) > e.extWindow {
		e.extChanges = 0
		e.lastReset = now
	}
}

// RecordCreate handles a Created event: records the extension, tracks it
// for delete-then-create pattern matching, and applies the "motif
// extension reappearance" increment rule: a newly created path whose
// extension matches the encrypted/locked/crypt motif, and whose
// motif-stripped base relpath is already tracked in the extension map
// (i.e. the original file was seen before under that base), counts +1.
func (e *Extractor) RecordCreate(now time.Time, relpath string) {
	e.maybeResetExtChanges(now)
	e.RecordOp(now)

	ext := extOf(relpath)
	if containsMotif(ext) {
		base := baseWithoutExt(relpath)
		if _, known := e.extMap[base]; known {
			e.extChanges++
		}
	}

	e.extMap[relpath] = ext
	e.recentCreates[relpath] = now
	e.pruneCreateDelete(now)
	e.matchDeleteCreatePattern(relpath, now)
}

// RecordModify handles a Modified event: if the extension differs from the
// tracked value, increments ext_changes. In practice this only fires when a
// path was last tracked under a different extension than its own name
// carries (a reused path, or a map entry never refreshed by a Created) —
// an ordinary in-place modification can't change its own path's extension.
func (e *Extractor) RecordModify(now time.Time, relpath string) {
	e.maybeResetExtChanges(now)
	e.RecordOp(now)

	newExt := extOf(relpath)
	if prior, ok := e.extMap[relpath]; ok && prior != newExt {
		e.extChanges++
	}
	e.extMap[relpath] = newExt
}

// RecordDelete handles a Deleted event: tracks it for pattern matching. Per
// §4.4, deletion does not remove the path from the extension map or
// tombstone its backup here — that's the orchestrator/backup store's call.
func (e *Extractor) RecordDelete(now time.Time, relpath string) {
	e.maybeResetExtChanges(now)
	e.RecordOp(now)

	e.recentDeletes[relpath] = now
	e.pruneCreateDelete(now)
}

// RecordRename handles a Renamed event: applies the extension-change and
// motif-bonus rules, then moves the tracked extension from src to dst.
func (e *Extractor) RecordRename(now time.Time, src, dst string) {
	e.maybeResetExtChanges(now)
	e.RecordOp(now)

	srcExt := extOf(src)
	dstExt := extOf(dst)
	if srcExt != dstExt {
		e.extChanges++
		if containsMotif(dstExt) {
			e.extChanges++ // motif bonus: counted twice total
		}
	}

	delete(e.extMap, src)
	e.extMap[dst] = dstExt
}

// pruneCreateDelete drops recentCreates/recentDeletes entries older than
// W_pat.
func (e *Extractor) pruneCreateDelete(now time.Time) {
	cutoff := now.Add(-e.patWindow)
	for k, ts := range e.recentCreates {
		if ts.Before(cutoff) {
			delete(e.recentCreates, k)
		}
	}
	for k, ts := range e.recentDeletes {
		if ts.Before(cutoff) {
			delete(e.recentDeletes, k)
		}
	}
}

// matchDeleteCreatePattern implements "delete(X.ext) followed within W_pat
// by create(X.anything)": a newly created path that starts with a recently
// deleted path's extension-stripped base counts +1.
func (e *Extractor) matchDeleteCreatePattern(createdRelpath string, now time.Time) {
	for deletedRelpath, ts := range e.recentDeletes {
		if now.Sub(ts) > e.patWindow {
			continue
		}
		if strings.HasPrefix(createdRelpath, baseWithoutExt(deletedRelpath)) {
			e.extChanges++
			delete(e.recentDeletes, deletedRelpath) // consume the pair, don't match it twice
			return
		}
	}
}

// CurrentVector computes the current feature vector. entropyHint is the
// dispatcher-supplied rolling mean entropy over recent Modified events; the
// extractor has no file-content access of its own.
func (e *Extractor) CurrentVector(now time.Time, entropyHint float64) Vector {
	e.evictOpTimestamps(now)

	var opRate float64
	if n := len(e.opTimestamps); n >= 2 {
		elapsed := now.Sub(e.opTimestamps[0]).Seconds()
		if elapsed < 1.0 {
			elapsed = 1.0
		}
		opRate = float64(n) / elapsed
	}

	return Vector{
		OpRate:      opRate,
		ExtChanges:  e.extChanges,
		MeanEntropy: entropyHint,
	}
}

// HasMinimumData reports whether at least minEventsForDetection events fall
// within the current W_op window — the floor below which no detection may
// be emitted regardless of feature values.
func (e *Extractor) HasMinimumData(now time.Time) bool {
	e.evictOpTimestamps(now)
	return len(e.opTimestamps) >= minEventsForDetection
}

// ResetExtChanges clears the extension-change counter and restamps the
// reset time, called by the Recovery Orchestrator when a restore completes.
func (e *Extractor) ResetExtChanges(now time.Time) {
	e.extChanges = 0
	e.lastReset = now
}

// ForgetPath removes relpath from the extension map, for callers that need
// to fully retire a path (e.g. after a confirmed permanent delete).
func (e *Extractor) ForgetPath(relpath string) {
	delete(e.extMap, relpath)
}

func extOf(relpath string) string {
	i := strings.LastIndexByte(relpath, '.')
	if i < 0 {
		return ""
	}
	return relpath[i+1:]
}

func baseWithoutExt(relpath string) string {
	i := strings.LastIndexByte(relpath, '.')
	if i < 0 {
		return relpath
	}
	return relpath[:i]
}
