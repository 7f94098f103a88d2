package metrics

import "github.com/prometheus/client_golang/prometheus"

// Engine counters. The unlabeled ones and both labeled vecs are persisted to
// the metrics table across restarts by cmd/main.go.
var (
	CyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "marketwatch",
		Subsystem: "alert_engine",
		Name:      "cycles_total",
		Help:      "The total number of completed poll cycles",
	})
	CycleErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "marketwatch",
		Subsystem: "alert_engine",
		Name:      "cycle_errors_total",
		Help:      "The total number of poll cycles that failed",
	})
	AlertsEvaluated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "marketwatch",
		Subsystem: "alert_engine",
		Name:      "alerts_evaluated_total",
		Help:      "The total number of alert condition evaluations",
	})
	AlertsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketwatch",
			Subsystem: "alert_engine",
			Name:      "alerts_triggered_total",
			Help:      "The total number of fired alerts per condition kind",
		},
		[]string{"kind"},
	)
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketwatch",
			Subsystem: "alert_engine",
			Name:      "notifications_sent_total",
			Help:      "The total number of delivered notifications per channel",
		},
		[]string{"channel"},
	)
	NotificationsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marketwatch",
			Subsystem: "alert_engine",
			Name:      "notifications_failed_total",
			Help:      "The total number of failed channel sends per channel",
		},
		[]string{"channel"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal)
	prometheus.MustRegister(CycleErrors)
	prometheus.MustRegister(AlertsEvaluated)
	prometheus.MustRegister(AlertsTriggered)
	prometheus.MustRegister(NotificationsSent)
	prometheus.MustRegister(NotificationsFailed)
}
