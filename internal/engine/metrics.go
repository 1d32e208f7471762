package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the control surface's running counters. No
// Non-goal excludes ambient metrics. EngineState.Snapshot sets the gauges;
// metricsAdapter increments the two counters.
var (
	detectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ransomguard_detections_total",
		Help: "Total suspicious-activity detections reported by the scorer.",
	})

	recoveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ransomguard_recoveries_total",
		Help: "Total recovery cycles run by the orchestrator.",
	})

	activeBackups = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ransomguard_active_backups",
		Help: "Current count of active (non-tombstoned) catalog rows.",
	})

	monitoredFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ransomguard_monitored_files",
		Help: "Current count of files tracked under the monitored tree.",
	})

	recoveryInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ransomguard_recovery_in_progress",
		Help: "1 while a restore is running, 0 otherwise.",
	})
)
