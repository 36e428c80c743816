package api

import (
	"github.com/gin-gonic/gin"

	"github.com/athlos-app/athlos/internal/handlers"
)

func registerTeamRoutes(api *gin.RouterGroup, handler *handlers.TeamHandler) {
	teams := api.Group("/teams")
	{
		teams.POST("", handler.Create)
		teams.GET("/:teamId", handler.Get)
		teams.POST("/:teamId/join", handler.Join)
		teams.POST("/:teamId/leave", handler.Leave)
		teams.GET("/:teamId/members", handler.ListMembers)
	}
}
