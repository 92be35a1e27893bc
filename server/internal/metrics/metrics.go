package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "ranking"

// Breaker state values exported by the breaker_state gauge.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// Metrics groups every collector the server exports.
type Metrics struct {
	reg *prometheus.Registry

	requests      *prometheus.CounterVec
	requestTime   *prometheus.HistogramVec
	fetches       *prometheus.CounterVec
	fetchTime     *prometheus.HistogramVec
	aggregations  *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	breakerState  prometheus.Gauge
	discarded     prometheus.Counter
	corrections   prometheus.Gauge
	lastRefreshed prometheus.Gauge
}

// New registers all collectors, plus the Go runtime and process collectors,
// on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "status"}),
		requestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Source fetches by backend and result (ok, error, rejected).",
		}, []string{"source", "result"}),
		fetchTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Source fetch latency by backend.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		aggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregations_total",
			Help:      "Leaderboards built, by period.",
		}, []string{"period"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_records_total",
			Help:      "Raw entries rejected during normalisation, by reason.",
		}, []string{"reason"}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Source circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "board_superseded_total",
			Help:      "Recomputes of the current selection dropped because a newer one was issued.",
		}),
		corrections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "correction_rules",
			Help:      "Names in the active score correction table.",
		}),
		lastRefreshed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "board_last_refresh_timestamp_seconds",
			Help:      "Unix time of the last committed current-selection board.",
		}),
	}
	m.reg.MustRegister(
		m.requests, m.requestTime,
		m.fetches, m.fetchTime,
		m.aggregations, m.skipped,
		m.breakerState, m.discarded, m.corrections, m.lastRefreshed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestTime.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveFetch records one source fetch. result is ok, error or rejected
// (short-circuited by the breaker).
func (m *Metrics) ObserveFetch(source, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(source, result).Inc()
	if result != "rejected" {
		m.fetchTime.WithLabelValues(source).Observe(d.Seconds())
	}
}

// ObserveAggregation records a built leaderboard and its skipped entries.
func (m *Metrics) ObserveAggregation(period string, skipped map[string]int) {
	if m == nil {
		return
	}
	m.aggregations.WithLabelValues(period).Inc()
	for reason, n := range skipped {
		m.skipped.WithLabelValues(reason).Add(float64(n))
	}
}

// SetBreakerState exports the breaker state.
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.breakerState.Set(float64(state))
}

// BoardSuperseded counts a dropped recompute.
func (m *Metrics) BoardSuperseded() {
	if m == nil {
		return
	}
	m.discarded.Inc()
}

// BoardRefreshed stamps the last committed board.
func (m *Metrics) BoardRefreshed(at time.Time) {
	if m == nil {
		return
	}
	m.lastRefreshed.Set(float64(at.Unix()))
}

// SetCorrections exports the size of the correction table.
func (m *Metrics) SetCorrections(n int) {
	if m == nil {
		return
	}
	m.corrections.Set(float64(n))
}

// Counters gathers the registry and returns the total of every counter
// family in this namespace, keyed by family name without the namespace.
func (m *Metrics) Counters() (map[string]float64, error) {
	out := make(map[string]float64)
	if m == nil {
		return out, nil
	}
	mfs, err := m.reg.Gather()
	if err != nil {
		return nil, err
	}
	prefix := namespace + "_"
	for _, mf := range mfs {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		name := mf.GetName()
		if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		out[name[len(prefix):]] = sumCounters(mf)
	}
	return out, nil
}

func sumCounters(mf *dto.MetricFamily) float64 {
	var total float64
	for _, m := range mf.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return total
}
