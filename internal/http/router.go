package http

import (
	"github.com/gin-gonic/gin"
	"github.com/omnilogix/freight-bridge/internal/config"
	"github.com/omnilogix/freight-bridge/internal/http/controller"
	"github.com/omnilogix/freight-bridge/internal/http/middleware"
)

// InitRouter wires the operations API: health check, attempt inspection and
// manual retriggering, and read-only reference lookups.
func InitRouter(_ *config.Config, server *gin.Engine, ctr *controller.Controller, attemptCtr *controller.AttemptController, refCtr *controller.ReferenceController) *gin.Engine {
	// Apply recovery middleware globally to prevent panics from crashing the server
	server.Use(middleware.Recovery())
	server.Use(middleware.Logger())

	server.GET("/ping", ctr.Ping)

	orders := server.Group("/orders")
	{
		orders.GET("/:orderNo/attempts", attemptCtr.ListAttempts)
		orders.GET("/:orderNo/references", refCtr.ListReferences)
	}
	server.POST("/retrigger", attemptCtr.Retrigger)

	return server
}
