package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace        = "askcache"
	subsystemCache   = "cache"
	subsystemHTTP    = "http"
	subsystemPersist = "persist"
)

// Recorder owns a private registry with the service's collectors.
type Recorder struct {
	registry *prometheus.Registry

	answers      *prometheus.CounterVec
	answerTime   *prometheus.HistogramVec
	degraded     *prometheus.CounterVec
	persists     *prometheus.CounterVec
	httpRequests *prometheus.HistogramVec
}

// NewRecorder registers every collector on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}
	r.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}))
	r.registry.MustRegister(collectors.NewGoCollector())

	r.answers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemCache,
		Name:      "answers_total",
		Help:      "Answered questions by resolution mode.",
	}, []string{"mode", "cached"})
	r.answerTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystemCache,
		Name:      "answer_seconds",
		Help:      "Time to resolve a question by mode.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mode"})
	r.degraded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemCache,
		Name:      "degraded_total",
		Help:      "Lookup tiers that failed and were treated as a miss.",
	}, []string{"tier"})
	r.persists = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystemPersist,
		Name:      "writes_total",
		Help:      "Cache entry writes by result.",
	}, []string{"result"})
	r.httpRequests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystemHTTP,
		Name:      "request_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	r.registry.MustRegister(r.answers, r.answerTime, r.degraded, r.persists, r.httpRequests)
	return r
}

// Registry exposes the underlying registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveAnswer counts a resolved question.
func (r *Recorder) ObserveAnswer(mode string, cached bool, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.answers.WithLabelValues(mode, strconv.FormatBool(cached)).Inc()
	r.answerTime.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveDegraded counts a lookup tier that failed.
func (r *Recorder) ObserveDegraded(tier string) {
	if r == nil {
		return
	}
	r.degraded.WithLabelValues(tier).Inc()
}

// ObservePersist counts a cache write.
func (r *Recorder) ObservePersist(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.persists.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request.
func (r *Recorder) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
