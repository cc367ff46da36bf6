// Package metrics exposes Prometheus instrumentation for the tile service.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pointtiles",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pointtiles",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})

	// TilesRendered counts successfully rendered tiles per output format.
	TilesRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pointtiles",
		Subsystem: "tiles",
		Name:      "rendered_total",
		Help:      "Total tiles rendered",
	}, []string{"format"})

	// FeaturesAggregated counts upstream features that made it into a tile.
	FeaturesAggregated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pointtiles",
		Subsystem: "tiles",
		Name:      "features_aggregated_total",
		Help:      "Total upstream features folded into pixel aggregates",
	})

	// UpstreamResponses counts upstream answers by result code class.
	UpstreamResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pointtiles",
		Subsystem: "upstream",
		Name:      "responses_total",
		Help:      "Total upstream query responses",
	}, []string{"status"})
)

// Middleware records request count and latency per route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		// the response status is not final yet when the handler returned an
		// error; the fiber error handler runs after this middleware
		code := c.Response().StatusCode()
		if err != nil {
			code = fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			}
		}
		status := strconv.Itoa(code)
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
