package observability

import (
	"time"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// File outcomes used as the "outcome" label of cei_files_total.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
)

// Metrics holds the Prometheus metrics of the engine and its HTTP surface.
type Metrics struct {
	// Registry owns these metrics and backs the /metrics endpoint.
	Registry *prometheus.Registry

	files         *prometheus.CounterVec
	sheetsSkipped *prometheus.CounterVec
	rowsEmitted   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	requestsTotal *prometheus.CounterVec
}

// NewMetrics registers every metric in a private registry, so it can be
// called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		files: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cei_files_total",
				Help: "Statement files seen by a processor, by outcome.",
			},
			[]string{"kind", "outcome"},
		),
		sheetsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cei_sheets_skipped_total",
				Help: "Sheets skipped, by reason.",
			},
			[]string{"kind", "reason"},
		),
		rowsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cei_rows_emitted_total",
				Help: "Canonical rows emitted.",
			},
			[]string{"kind"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cei_consolidation_duration_seconds",
				Help:    "Duration of one consolidation by kind.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cei_requests_total",
				Help: "Total consolidation requests processed.",
			},
			[]string{"status"},
		),
	}
}

// AddFiles adds n files with the given outcome.
func (m *Metrics) AddFiles(kind domain.Kind, outcome string, n int) {
	m.files.WithLabelValues(string(kind), outcome).Add(float64(n))
}

// AddSheetsSkipped adds n skipped sheets for reason.
func (m *Metrics) AddSheetsSkipped(kind domain.Kind, reason string, n int) {
	m.sheetsSkipped.WithLabelValues(string(kind), reason).Add(float64(n))
}

// AddRows adds n emitted rows.
func (m *Metrics) AddRows(kind domain.Kind, n int) {
	m.rowsEmitted.WithLabelValues(string(kind)).Add(float64(n))
}

// RecordDuration records how long one consolidation of kind took.
func (m *Metrics) RecordDuration(kind domain.Kind, d time.Duration) {
	m.duration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// Snapshot returns the cumulative per-kind counters served by
// GET /v1/metrics/engine.
func (m *Metrics) Snapshot() *domain.EngineMetrics {
	out := &domain.EngineMetrics{Period: "all_time"}
	for _, kind := range domain.Kinds {
		k := string(kind)
		processed := getCounterValue(m.files, k, OutcomeProcessed)
		skipped := getCounterValue(m.files, k, OutcomeSkipped)

		skipRate := float64(0)
		if processed+skipped > 0 {
			skipRate = skipped / (processed + skipped)
		}

		out.Kinds = append(out.Kinds, domain.KindMetrics{
			Kind:           kind,
			FilesProcessed: int64(processed),
			FilesSkipped:   int64(skipped),
			RowsEmitted:    int64(getCounterValue(m.rowsEmitted, k)),
			SheetsSkipped:  int64(sumCounter(m.sheetsSkipped, "kind", k)),
			SkipRate:       skipRate,
		})
	}
	return out
}

// getCounterValue extracts the current value of a CounterVec child.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounter adds every child of cv whose label name equals value.
func sumCounter(cv *prometheus.CounterVec, name, value string) float64 {
	ch := make(chan prometheus.Metric)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil || m.Counter == nil {
			continue
		}
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == value {
				total += m.GetCounter().GetValue()
				break
			}
		}
	}
	return total
}
