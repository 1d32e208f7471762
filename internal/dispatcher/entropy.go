package dispatcher

import (
	"time"
)

// entropyWindow bounds the rolling mean of Modified-event entropy samples
// the Dispatcher feeds the Scorer as mean_entropy. §4.2 doesn't name this
// window explicitly ("the rolling mean over Modified events in the last
// window"); using the same span as the operation window (W_op) keeps the
// entropy signal reacting on the same timescale as op_rate, which is the
// window the two are combined against in the weighted score.
const entropyWindow = 10 * time.Second

type entropySample struct {
	ts    time.Time
	value float64
}

// entropyTracker maintains a rolling mean of recent per-file entropy
// samples, pruned to entropyWindow. Owned by the Dispatcher task, no
// internal locking.
type entropyTracker struct {
	samples []entropySample
}

func newEntropyTracker() *entropyTracker {
	return &entropyTracker{}
}

// Record adds a new entropy sample taken at now.
func (t *entropyTracker) Record(now time.Time, value float64) {
	t.samples = append(t.samples, entropySample{ts: now, value: value})
	t.prune(now)
}

func (t *entropyTracker) prune(now time.Time) {
	cutoff := now.Add(-entropyWindow)
	i := 0
	for i < len(t.samples) && t.samples[i].ts.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.samples = t.samples[i:]
	}
}

// Mean returns the rolling mean entropy, or 0 with no samples in window.
func (t *entropyTracker) Mean(now time.Time) float64 {
	t.prune(now)
	if len(t.samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range t.samples {
		sum += s.value
	}
	return sum / float64(len(t.samples))
}
