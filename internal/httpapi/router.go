// Package httpapi wires the ops HTTP surface: health and Prometheus
// metrics. The bot has no public REST API; this server exists for probes,
// scraping, and tracing of the ops endpoints themselves.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/cryverse/telegram-30leads-bot-new/internal/config"
	"github.com/cryverse/telegram-30leads-bot-new/internal/httpapi/middleware"
)

// NewRouter builds the ops router. Middleware order: tracing first, then
// correlation IDs, logging, recovery, metrics.
func NewRouter(cfg config.Config) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
