package kuvaserver

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsController struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec

	// using (totalRequests, errors) instead of (successes, errors) b/c:
	//   https://promcon.io/2017-munich/slides/best-practices-and-beastly-pitfalls.pdf
	cacheHits      prometheus.Counter
	generated      prometheus.Counter
	generateErrors prometheus.Counter
	sweptRecords   prometheus.Counter
}

func newMetricsController() *metricsController {
	registry := prometheus.NewRegistry()

	// shorthand for new'ing and registering
	counter := func(name string, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		registry.MustRegister(c)
		return c
	}

	m := &metricsController{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kuvasto_http_requests_total",
			Help: "HTTP server's handled requests",
		}, []string{"code", "method"}),
		cacheHits:      counter("kuvasto_cache_hits_total", "Requests served from the thumbnail cache"),
		generated:      counter("kuvasto_generated_total", "Thumbnails rendered (incl. errors)"),
		generateErrors: counter("kuvasto_generate_errors_total", "Failed thumbnail renders"),
		sweptRecords:   counter("kuvasto_swept_records_total", "Stale cache records removed by the sweep job"),
	}

	registry.MustRegister(m.httpRequests)

	return m
}

func (m *metricsController) MetricsHTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instruments a HTTP handler
func (m *metricsController) WrapHTTPServer(actual http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats := httpsnoop.CaptureMetrics(actual, w, r)

		m.httpRequests.With(prometheus.Labels{
			"code":   strconv.Itoa(stats.Code),
			"method": r.Method,
		}).Inc()
	})
}
