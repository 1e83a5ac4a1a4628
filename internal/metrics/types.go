package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service implements Metrics on top of Prometheus collectors.
type Service struct {
	Settlements        prometheus.Counter
	Reverts            prometheus.Counter
	Previews           prometheus.Counter
	SettlementDuration prometheus.Histogram
	SlackNotifSent     prometheus.Counter
	SlackNotifFailed   prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}
