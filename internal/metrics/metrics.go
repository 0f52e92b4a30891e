package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "chargefinder"

// Recorder counts provider outcomes, dropped records, persistence failures
// and search results on its own registry.
type Recorder struct {
	registry            *prometheus.Registry
	providerFetches     *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	droppedRecords      *prometheus.CounterVec
	persistenceFailures prometheus.Counter
	searches            *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		providerFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetches_total",
			Help:      "Provider fetches by outcome (ok, empty, error).",
		}, []string{"provider", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_fetch_duration_seconds",
			Help:      "Provider fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		droppedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_records_total",
			Help:      "Raw records that failed normalization.",
		}, []string{"source"}),
		persistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Station upserts that failed and were ignored.",
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Completed searches by terminal state.",
		}, []string{"state"}),
	}

	r.registry.MustRegister(
		r.providerFetches,
		r.fetchDuration,
		r.droppedRecords,
		r.persistenceFailures,
		r.searches,
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ProviderFetched(provider, outcome string, d time.Duration) {
	r.providerFetches.WithLabelValues(provider, outcome).Inc()
	r.fetchDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (r *Recorder) RecordDropped(source string) {
	r.droppedRecords.WithLabelValues(source).Inc()
}

func (r *Recorder) PersistenceFailed() {
	r.persistenceFailures.Inc()
}

func (r *Recorder) SearchCompleted(state string) {
	r.searches.WithLabelValues(state).Inc()
}

// WriteText writes every metric in the Prometheus text exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
