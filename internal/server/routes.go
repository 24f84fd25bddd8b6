package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mantonx/sonar/internal/apiroutes"
	"github.com/mantonx/sonar/internal/events"
)

// setupRoutes configures the system-level API routes. Module routes are
// registered by the modules themselves.
func setupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "sonar",
			})
		})

		api.GET("", handleListRoutes)
		api.GET("/routes", handleListRoutes)

		api.GET("/events/recent", func(c *gin.Context) {
			bus := GetEventBus()
			if bus == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus not running"})
				return
			}
			evts, total, err := bus.GetEvents(events.EventFilter{}, 50, 0)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"events": evts, "total": total})
		})
	}

	apiroutes.Register("/api", "GET", "List registered API routes")
	apiroutes.Register("/api/health", "GET", "Service health check")
	apiroutes.Register("/api/routes", "GET", "List registered API routes")
	apiroutes.Register("/api/events/recent", "GET", "Recent system events")
}

func handleListRoutes(c *gin.Context) {
	routes := apiroutes.Get()
	c.JSON(http.StatusOK, gin.H{"routes": routes, "count": len(routes)})
}
