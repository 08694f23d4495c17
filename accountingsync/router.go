package accountingsync

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/mailroom_backend/middlewares"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter mounts the sync surface. Both sync paths run the same handler; the first
// matches the URL existing CRM clients already call.
func NewRouter(svc *Service, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationId())
	r.Use(cors.New(corsConfig()))
	r.Use(middlewares.RequestLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/", middlewares.AuthMiddleware())
	api.POST("/functions/v1/sync-accounting-data", SyncHandler(svc))
	api.POST("/api/integrations/accounting/sync", SyncHandler(svc))
	api.GET("/api/integrations/accounting/:id/status", StatusHandler(svc))
	api.GET("/api/integrations/accounting/:id/logs", LogsHandler(svc))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

// corsConfig answers every origin with "*". CRM browser clients call from their own
// hosts and the bearer token, not the origin, is what authorises a request.
func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type", "x-correlation-id"}
	cfg.AddExposeHeaders("Content-Length", "x-correlation-id")
	return cfg
}
