package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/athlos-app/athlos/internal/handlers"
	"github.com/athlos-app/athlos/internal/identity"
	"github.com/athlos-app/athlos/internal/middleware"
	"github.com/athlos-app/athlos/internal/notifications"
	"github.com/athlos-app/athlos/internal/services"
)

// Services groups the domain services the router depends on.
type Services struct {
	Teams         *services.TeamService
	Conversations *services.ConversationService
	Participants  *services.ParticipantService
	Messages      *services.MessageService
	Notifier      *services.NotificationService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(
	db *gorm.DB,
	verifier identity.TokenVerifier,
	users *identity.Service,
	provider *identity.OIDCProvider,
	hub *notifications.Hub,
	svc Services,
) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if verifier == nil {
		return nil, fmt.Errorf("token verifier must be provided")
	}
	if users == nil {
		return nil, fmt.Errorf("identity service must be provided")
	}
	if svc.Teams == nil || svc.Conversations == nil || svc.Participants == nil || svc.Messages == nil || svc.Notifier == nil {
		return nil, fmt.Errorf("all domain services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.NoRoute(middleware.NotFoundHandler)

	// Public endpoints
	r.GET("/health", healthHandler(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(users, provider)

	auth := r.Group("/api/auth")
	{
		auth.GET("/login", authHandler.Login)
		auth.GET("/callback", authHandler.Callback)
	}

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(verifier, users))

	api.GET("/auth/me", authHandler.Me)

	registerTeamRoutes(api, handlers.NewTeamHandler(svc.Teams))
	registerConversationRoutes(api, handlers.NewConversationHandler(svc.Conversations, svc.Participants))
	registerMessageRoutes(api, handlers.NewMessageHandler(svc.Messages))
	registerNotificationRoutes(api, handlers.NewNotificationHandler(svc.Notifier, hub))

	return r, nil
}
