package api

import (
	"github.com/gin-gonic/gin"

	"github.com/athlos-app/athlos/internal/handlers"
)

func registerConversationRoutes(api *gin.RouterGroup, handler *handlers.ConversationHandler) {
	conversations := api.Group("/conversations")
	{
		conversations.GET("", handler.List)
		conversations.POST("/direct", handler.ResolveDirect)
		conversations.GET("/:conversationId", handler.Get)
		conversations.POST("/:conversationId/sync", handler.SyncParticipants)
	}

	// Team conversations resolve under the team they belong to.
	api.POST("/teams/:teamId/conversations", handler.ResolveTeam)
}
