package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unpackeat/backend/config"
)

// SetupRouter creates and configures the Gin router.
// metricsHandler is served on /metrics when not nil.
func SetupRouter(cfg *config.Config, handler *Handler, metricsHandler http.Handler) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	v1 := router.Group("/api/v1")
	{
		limited := v1.Group("", RateLimitMiddleware(cfg.RateLimit.PerIP))

		products := limited.Group("/products")
		{
			products.GET("", handler.GetProduct)
			products.GET("/:barcode", handler.GetProduct)
		}

		scans := limited.Group("/scan/sessions")
		{
			scans.POST("", handler.CreateScanSession)
			scans.DELETE("/:id", handler.DeleteScanSession)
		}

		// Observations arrive once per decoded frame and get their own budget
		v1.POST("/scan/sessions/:id/observations", RateLimitMiddleware(cfg.RateLimit.ScanPerIP), handler.ObserveScan)
	}

	return router
}
