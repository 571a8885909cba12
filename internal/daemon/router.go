package daemon

import (
	"github.com/gin-gonic/gin"
	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterConfig mirrors the teacher's internal/http/router.RouterConfig
// shape, trimmed to what this daemon's routes need.
type RouterConfig struct {
	BearerToken string
	ServiceName string
}

// SetupRoutes wires the daemon's gin routes, following the teacher's
// cmd/server/main.go ordering: otelgin creates the span, Recovery catches
// panics inside it, Logger logs with the span's trace context, then Auth
// gates everything but /health.
func (d *Daemon) SetupRoutes(router *gin.Engine, cfg RouterConfig) {
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(Recovery())
	router.Use(Logger())
	router.Use(Auth(cfg.BearerToken))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/tasks", d.handleCreateTask)
		v1.GET("/tasks", d.handleListTasks)
		v1.GET("/tasks/:id", d.handleGetTask)
		v1.POST("/tasks/:id/cancel", d.handleCancelTask)
		v1.GET("/status", d.handleStatus)
		v1.GET("/cost", d.handleCost)
		v1.GET("/health", d.handleHealth)
	}
}
