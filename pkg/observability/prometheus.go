package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsNamespace prefixes every metric name.
const MetricsNamespace = "spacegraph"

// PromHooks records pipeline, cache and HTTP events as Prometheus metrics.
// It implements [PipelineHooks], [CacheHooks] and [HTTPHooks].
type PromHooks struct {
	loads           *prometheus.CounterVec
	analyses        *prometheus.CounterVec
	analysisSeconds *prometheus.HistogramVec
	renders         *prometheus.CounterVec
	cacheEvents     *prometheus.CounterVec
	cacheBytes      prometheus.Counter
	requests        *prometheus.CounterVec
	requestSeconds  *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
}

// NewPromHooks creates the metrics and registers them with reg.
func NewPromHooks(reg prometheus.Registerer) (*PromHooks, error) {
	h := &PromHooks{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "documents_loaded_total",
			Help:      "Graph files loaded, by result.",
		}, []string{"result"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "analyses_total",
			Help:      "Analysis runs, by mode and result.",
		}, []string{"mode", "result"}),
		analysisSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "analysis_duration_seconds",
			Help:      "Analysis run time, by mode.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"mode"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "renders_total",
			Help:      "Render runs, by result.",
		}, []string{"result"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "cache_events_total",
			Help:      "Cache lookups and writes, by key type and event.",
		}, []string{"key_type", "event"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "code"}),
		requestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "http_request_errors_total",
			Help:      "HTTP handler failures, by route.",
		}, []string{"route"}),
	}
	for _, c := range h.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *PromHooks) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		h.loads, h.analyses, h.analysisSeconds, h.renders,
		h.cacheEvents, h.cacheBytes,
		h.requests, h.requestSeconds, h.requestErrors,
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (h *PromHooks) OnLoadStart(context.Context, string) {}

func (h *PromHooks) OnLoadComplete(_ context.Context, _ string, _ int, _ time.Duration, err error) {
	h.loads.WithLabelValues(result(err)).Inc()
}

func (h *PromHooks) OnAnalysisStart(context.Context, string, string, int) {}

func (h *PromHooks) OnAnalysisComplete(_ context.Context, mode, _ string, d time.Duration, err error) {
	h.analyses.WithLabelValues(mode, result(err)).Inc()
	if err == nil {
		h.analysisSeconds.WithLabelValues(mode).Observe(d.Seconds())
	}
}

func (h *PromHooks) OnRenderStart(context.Context, []string) {}

func (h *PromHooks) OnRenderComplete(_ context.Context, _ []string, _ time.Duration, err error) {
	h.renders.WithLabelValues(result(err)).Inc()
}

func (h *PromHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *PromHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *PromHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.Add(float64(size))
}

func (h *PromHooks) OnRequest(context.Context, string, string) {}

func (h *PromHooks) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	h.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	h.requestSeconds.WithLabelValues(route).Observe(d.Seconds())
}

func (h *PromHooks) OnError(_ context.Context, _, route string, _ error) {
	h.requestErrors.WithLabelValues(route).Inc()
}

var (
	_ PipelineHooks = (*PromHooks)(nil)
	_ CacheHooks    = (*PromHooks)(nil)
	_ HTTPHooks     = (*PromHooks)(nil)
)
