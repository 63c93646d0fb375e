package routes

import (
	"github.com/gin-gonic/gin"

	handlers "shakti-shield/internal/handlers/shared"
)

func SetupNotificationRoutes(r *gin.RouterGroup, h *handlers.NotificationHandler, auth gin.HandlerFunc) {
	notifications := r.Group("/notifications")
	notifications.Use(auth)
	{
		notifications.PUT("/token", h.RegisterPushToken)
		notifications.DELETE("/token", h.ClearPushToken)
		notifications.POST("/test-push", h.SendTestPush)
		notifications.POST("/test-contact", h.SendTestContact)
	}
}
