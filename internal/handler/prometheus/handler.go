package prometheus

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the series gathered from g in the Prometheus text format.
func Handler(g prometheus.Gatherer) gin.HandlerFunc {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
