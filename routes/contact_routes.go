package routes

import (
	"github.com/gin-gonic/gin"

	handlers "shakti-shield/internal/handlers/shared"
)

func SetupContactRoutes(r *gin.RouterGroup, h *handlers.ContactHandler, auth gin.HandlerFunc) {
	contacts := r.Group("/contacts")
	contacts.Use(auth)
	{
		contacts.GET("", h.List)
		contacts.POST("", h.Add)
		contacts.GET("/primary", h.GetPrimary)
		contacts.POST("/import", h.Import)
		contacts.PUT("/:contactId", h.Update)
		contacts.DELETE("/:contactId", h.Delete)
		contacts.PUT("/:contactId/primary", h.SetPrimary)
	}
}
