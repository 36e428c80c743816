package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/athlos-app/athlos/internal/middleware"
	"github.com/athlos-app/athlos/internal/models"
	"github.com/athlos-app/athlos/internal/services"
	appErrors "github.com/athlos-app/athlos/pkg/errors"
	"github.com/athlos-app/athlos/pkg/response"
)

// ConversationHandler exposes conversation resolution and listing endpoints.
// Conversations are resolved, never created directly: the same request always
// lands on the same conversation row.
type ConversationHandler struct {
	conversations *services.ConversationService
	participants  *services.ParticipantService
}

// NewConversationHandler constructs a ConversationHandler.
func NewConversationHandler(conversations *services.ConversationService, participants *services.ParticipantService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, participants: participants}
}

type resolveDirectRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// ResolveDirect returns the direct conversation between the caller and the
// requested user, creating it on first use.
func (h *ConversationHandler) ResolveDirect(c *gin.Context) {
	var req resolveDirectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	conversation, err := h.conversations.GetOrCreateDirect(requestContext(c), c.GetString(middleware.CtxUserIDKey), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, conversation)
}

type resolveTeamRequest struct {
	Kind string `json:"kind" validate:"required,oneof=team_chat team_announcement"`
}

// ResolveTeam returns the team's chat or announcement conversation, creating
// it on first use. The caller must be entitled to the team.
func (h *ConversationHandler) ResolveTeam(c *gin.Context) {
	var req resolveTeamRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	conversation, err := h.conversations.GetOrCreateTeamConversation(ctx, c.Param("teamId"), models.ConversationKind(req.Kind))
	if err != nil {
		response.Error(c, err)
		return
	}

	// Entitlement gate: resolving a team conversation also joins the caller,
	// so outsiders are rejected here rather than on the first message.
	if err := h.participants.EnsureParticipant(ctx, conversation.ID, c.GetString(middleware.CtxUserIDKey)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, conversation)
}

// Get returns a conversation the caller takes part in.
func (h *ConversationHandler) Get(c *gin.Context) {
	ctx := requestContext(c)
	conversationID := c.Param("conversationId")
	callerID := c.GetString(middleware.CtxUserIDKey)

	if err := h.participants.EnsureParticipant(ctx, conversationID, callerID); err != nil {
		response.Error(c, err)
		return
	}

	conversation, err := h.conversations.GetByID(ctx, conversationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, conversation)
}

// List returns the caller's conversations.
func (h *ConversationHandler) List(c *gin.Context) {
	conversations, err := h.conversations.ListForUser(requestContext(c), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, conversations)
}

// SyncParticipants reseeds a team conversation's participant rows from the
// current roster. Restricted to conversation admins.
func (h *ConversationHandler) SyncParticipants(c *gin.Context) {
	ctx := requestContext(c)
	conversationID := c.Param("conversationId")

	admin, err := h.participants.IsAdmin(ctx, conversationID, c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !admin {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	if err := h.participants.SyncTeamParticipants(ctx, conversationID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"synced": true})
}
