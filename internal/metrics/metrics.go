// Package metrics exposes Prometheus instruments for the pipeline, caches, upstream calls and HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crude_outlook"

// Recorder owns its registry so tests can create independent instances. A nil *Recorder is a
// valid no-op.
type Recorder struct {
	registry     *prometheus.Registry
	pipelineRuns *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	upstream     *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	reliability  *prometheus.GaugeVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		pipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Forecast pipeline runs by page and outcome",
			},
			[]string{"page", "outcome"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_step_duration_seconds",
				Help:      "Duration of each pipeline step",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"step"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Session cache lookups by artifact kind and result",
			},
			[]string{"kind", "result"},
		),
		upstream: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_fetches_total",
				Help:      "Upstream data fetches by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_price",
				Help:      "Last observed close per ticker",
			},
			[]string{"ticker"},
		),
		reliability: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "forecast_reliability",
				Help:      "Reliability score (100 - MAPE, floored at 0) of the latest run per page",
			},
			[]string{"page"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"route", "method"},
		),
	}
}

func (r *Recorder) RecordRun(page, outcome string) {
	if r == nil {
		return
	}
	r.pipelineRuns.WithLabelValues(page, outcome).Inc()
}

func (r *Recorder) ObserveStep(step string, d time.Duration) {
	if r == nil {
		return
	}
	r.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

func (r *Recorder) RecordCache(kind string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (r *Recorder) RecordUpstream(source string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.upstream.WithLabelValues(source, outcome).Inc()
}

func (r *Recorder) SetLastPrice(ticker string, price float64) {
	if r == nil {
		return
	}
	r.lastPrice.WithLabelValues(ticker).Set(price)
}

func (r *Recorder) SetReliability(page string, score float64) {
	if r == nil {
		return
	}
	r.reliability.WithLabelValues(page).Set(score)
}

// Middleware records request counts and latency labelled by the matched gin route.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		r.httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
