package engine

import "github.com/ransomguard/ransomguard/internal/alert"

// metricsAdapter observes every alert passing through the sink and bumps
// the matching Prometheus counter in real time, independent of whatever
// cadence Snapshot is polled at. It's always the first adapter in the
// fanout chain; a user-supplied DeliveryAdapter (e.g. WebsocketAdapter)
// runs alongside it.
type metricsAdapter struct {
	next alert.DeliveryAdapter
}

func newMetricsAdapter(next alert.DeliveryAdapter) *metricsAdapter {
	return &metricsAdapter{next: next}
}

func (m *metricsAdapter) Deliver(a alert.Alert) error {
	switch a.Kind {
	case "RANSOMWARE_DETECTION":
		detectionsTotal.Inc()
	case "RECOVERY_COMPLETE", "RECOVERY FAILED":
		recoveriesTotal.Inc()
	}

	if m.next == nil {
		return nil
	}
	return m.next.Deliver(a)
}
