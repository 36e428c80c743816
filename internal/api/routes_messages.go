package api

import (
	"github.com/gin-gonic/gin"

	"github.com/athlos-app/athlos/internal/handlers"
)

func registerMessageRoutes(api *gin.RouterGroup, handler *handlers.MessageHandler) {
	messages := api.Group("/conversations/:conversationId/messages")
	{
		messages.GET("", handler.List)
		messages.POST("", handler.Post)
	}

	api.DELETE("/messages/:messageId", handler.Delete)
}
