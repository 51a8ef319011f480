package observability

import (
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	tasksComputed    *prometheus.CounterVec
	risksAssessed    *prometheus.CounterVec
	visibility       *prometheus.CounterVec
	quotesEvaluated  *prometheus.CounterVec
	validationErrors prometheus.Counter
	eventsPublished  *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carcare_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcare_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcare_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcare_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tasksComputed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcare_tasks_computed_total",
				Help: "Maintenance tasks derived, by resulting state.",
			},
			[]string{"state"},
		),
		risksAssessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcare_risk_assessments_total",
				Help: "Risk assessments, by level.",
			},
			[]string{"level"},
		),
		visibility: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcare_visibility_decisions_total",
				Help: "Entitlement gate decisions, by verdict.",
			},
			[]string{"verdict"},
		),
		quotesEvaluated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcare_quotes_evaluated_total",
				Help: "Quotes evaluated, by aggregate verdict.",
			},
			[]string{"verdict"},
		),
		validationErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "carcare_validation_errors_total",
				Help: "Requests rejected as invalid input.",
			},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcare_events_published_total",
				Help: "Domain events published, by subject.",
			},
			[]string{"subject"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTasks counts derived tasks by state.
func (m *Metrics) RecordTasks(tasks []domain.MaintenanceTask) {
	for _, t := range tasks {
		m.tasksComputed.WithLabelValues(string(t.State)).Inc()
	}
}

// RecordRisk counts one assessment.
func (m *Metrics) RecordRisk(level domain.RiskLevel) {
	m.risksAssessed.WithLabelValues(string(level)).Inc()
}

// RecordVisibility counts gate decisions.
func (m *Metrics) RecordVisibility(items []domain.ItemVisibility) {
	for _, it := range items {
		m.visibility.WithLabelValues(string(it.Visibility)).Inc()
	}
}

// RecordQuote counts one evaluated quote.
func (m *Metrics) RecordQuote(verdict domain.PriceVerdict) {
	m.quotesEvaluated.WithLabelValues(string(verdict)).Inc()
}

// IncrValidationError counts one rejected request.
func (m *Metrics) IncrValidationError() {
	m.validationErrors.Inc()
}

// IncrEventPublished counts one published event.
func (m *Metrics) IncrEventPublished(subject string) {
	m.eventsPublished.WithLabelValues(subject).Inc()
}

// Snapshot returns the counters behind GET /v1/engine/metrics/snapshot.
// Prometheus counters are cumulative, so the period is the process lifetime.
func (m *Metrics) Snapshot() *domain.EngineMetrics {
	states := []domain.TaskState{domain.StateScheduled, domain.StateDueSoon, domain.StateOverdue}
	levels := []domain.RiskLevel{domain.RiskLow, domain.RiskModerate, domain.RiskHigh}
	verdicts := []domain.Visibility{domain.Visible, domain.BlurredPreview, domain.Hidden}
	priceVerdicts := []domain.PriceVerdict{
		domain.VerdictWithinRange, domain.VerdictAboveRange, domain.VerdictBelowRange,
		domain.VerdictMixed, domain.VerdictUnknown,
	}

	snap := &domain.EngineMetrics{
		TasksByState:      make(map[string]int64, len(states)),
		RiskByLevel:       make(map[string]int64, len(levels)),
		VisibilityVerdict: make(map[string]int64, len(verdicts)),
		QuotesByVerdict:   make(map[string]int64, len(priceVerdicts)),
		ValidationErrors:  int64(counterValue(m.validationErrors)),
		Period:            "all_time",
	}
	for _, s := range states {
		n := int64(getCounterValue(m.tasksComputed, string(s)))
		snap.TasksByState[string(s)] = n
		snap.TasksComputed += n
	}
	for _, l := range levels {
		snap.RiskByLevel[string(l)] = int64(getCounterValue(m.risksAssessed, string(l)))
	}
	for _, v := range verdicts {
		snap.VisibilityVerdict[string(v)] = int64(getCounterValue(m.visibility, string(v)))
	}
	for _, v := range priceVerdicts {
		snap.QuotesByVerdict[string(v)] = int64(getCounterValue(m.quotesEvaluated, string(v)))
	}

	hits := getCounterValue(m.cacheHits, "vehicle")
	misses := getCounterValue(m.cacheMisses, "vehicle")
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
