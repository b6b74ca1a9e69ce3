package serveio

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics keeps its own registry, so several servers can live in one
// process.
type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	entries  *prometheus.GaugeVec
}

func newMetrics() *metrics {
	res := metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "csdoptimade_requests_total",
				Help: "Number of API requests by route and status.",
			},
			[]string{"route", "status"},
		),
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "csdoptimade_entries",
				Help: "Number of served entries by type.",
			},
			[]string{"type"},
		),
	}
	res.registry.MustRegister(res.requests, res.entries)
	return &res
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
