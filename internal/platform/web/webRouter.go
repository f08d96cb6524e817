package web

import (
	"net/http"
	"time"

	"digestCracker/internal/pkg/logging"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the API on r. metrics may be nil, in which case
// /metrics is not served.
func SetupRoutes(r *gin.Engine, handler *WebHandler, metrics http.Handler) {
	api := r.Group("/api")
	{
		api.POST("/crack", handler.Crack)
		api.POST("/jobs", handler.StartCracking)
		api.GET("/jobs", handler.ListJobs)
		api.GET("/jobs/:jobId", handler.GetJob)
		api.DELETE("/jobs/:jobId", handler.DeleteJob)
		api.POST("/jobs/:jobId/stop", handler.StopCracking)
		api.GET("/progress/:jobId", handler.GetProgress)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
}

// NewEngine builds a gin engine with recovery and the API routes.
func NewEngine(handler *WebHandler, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	SetupRoutes(r, handler, metrics)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.L.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
