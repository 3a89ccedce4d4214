// Package metrics exposes the worker-side health signals: how many work
// items and accounts each drain pass handled, and how claim contention and
// overage reporting behave over time.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Queue item outcomes.
	OutcomeFinalized = "finalized"
	OutcomeDuplicate = "duplicate"
	OutcomeReleased  = "released"

	// Overage report outcomes.
	ReportOK     = "ok"
	ReportFailed = "failed"
)

// Config carries the constant labels stamped on every metric.
type Config struct {
	ServiceName string
	Environment string
}

// WorkerMetrics captures queue worker and billing reconciliation signals.
type WorkerMetrics struct {
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runErrors   *prometheus.CounterVec

	itemsProcessed *prometheus.CounterVec
	claimRaces     *prometheus.CounterVec

	accountsReconciled prometheus.Counter
	overageReports     *prometheus.CounterVec
	billingAdvances    prometheus.Counter
}

// New registers the worker metrics on the given registerer.
func New(registerer prometheus.Registerer, cfg Config) *WorkerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "seaport"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &WorkerMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "seaport_worker_runs_total",
			Help:        "Drain passes started, by job.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "seaport_worker_run_duration_seconds",
			Help:        "Duration of drain passes, by job.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"job"}),
		runErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "seaport_worker_run_errors_total",
			Help:        "Drain passes that ended with an error, by job.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		itemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "seaport_queue_items_processed_total",
			Help:        "Work items handled, by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		claimRaces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "seaport_claim_races_total",
			Help:        "Conditional claim updates lost to a concurrent worker, by store.",
			ConstLabels: constLabels,
		}, []string{"store"}),
		accountsReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "seaport_accounts_reconciled_total",
			Help:        "Accounts claimed and reconciled against their seat limit.",
			ConstLabels: constLabels,
		}),
		overageReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "seaport_overage_reports_total",
			Help:        "Metered overage submissions, by status.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		billingAdvances: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "seaport_billing_date_advances_total",
			Help:        "Billing dates rolled to the next cycle.",
			ConstLabels: constLabels,
		}),
	}
	registerer.MustRegister(
		m.runs, m.runDuration, m.runErrors,
		m.itemsProcessed, m.claimRaces,
		m.accountsReconciled, m.overageReports, m.billingAdvances,
	)
	return m
}

func (m *WorkerMetrics) IncRun(job string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
}

func (m *WorkerMetrics) ObserveRunDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *WorkerMetrics) IncRunError(job string) {
	if m == nil {
		return
	}
	m.runErrors.WithLabelValues(job).Inc()
}

func (m *WorkerMetrics) IncItemProcessed(outcome string) {
	if m == nil {
		return
	}
	m.itemsProcessed.WithLabelValues(outcome).Inc()
}

func (m *WorkerMetrics) IncClaimRace(store string) {
	if m == nil {
		return
	}
	m.claimRaces.WithLabelValues(store).Inc()
}

func (m *WorkerMetrics) IncAccountReconciled() {
	if m == nil {
		return
	}
	m.accountsReconciled.Inc()
}

func (m *WorkerMetrics) IncOverageReport(status string) {
	if m == nil {
		return
	}
	m.overageReports.WithLabelValues(status).Inc()
}

func (m *WorkerMetrics) IncBillingAdvance() {
	if m == nil {
		return
	}
	m.billingAdvances.Inc()
}
