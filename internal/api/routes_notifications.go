package api

import (
	"github.com/gin-gonic/gin"

	"github.com/athlos-app/athlos/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	notifications := api.Group("/notifications")
	{
		notifications.GET("", handler.List)
		notifications.GET("/stream", handler.Stream)
		notifications.POST("/read-all", handler.MarkAllRead)
		notifications.POST("/:notificationId/read", handler.MarkRead)
		notifications.POST("/:notificationId/unread", handler.MarkUnread)
		notifications.DELETE("/:notificationId", handler.Delete)
	}
}
