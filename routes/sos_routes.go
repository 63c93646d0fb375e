package routes

import (
	"github.com/gin-gonic/gin"

	handlers "shakti-shield/internal/handlers/shared"
)

// SetupSOSRoutes mounts the SOS lifecycle endpoints. auth must run before
// triggerLimit so the limiter can key on the caller.
func SetupSOSRoutes(r *gin.RouterGroup, h *handlers.SOSHandler, auth, triggerLimit gin.HandlerFunc) {
	sos := r.Group("/sos")
	sos.Use(auth)
	{
		sos.POST("/trigger", triggerLimit, h.Trigger)
		sos.GET("/active", h.GetActive)
		sos.GET("/history", h.GetHistory)
		sos.GET("/:id", h.GetByID)
		sos.PUT("/:id/resolve", h.Resolve)
		sos.PUT("/:id/cancel", h.Cancel)
		sos.PUT("/:id/false-alarm", h.MarkFalseAlarm)
		sos.POST("/:id/note", h.AddNote)
	}
}
