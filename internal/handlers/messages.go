package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/athlos-app/athlos/internal/middleware"
	"github.com/athlos-app/athlos/internal/services"
	appErrors "github.com/athlos-app/athlos/pkg/errors"
	"github.com/athlos-app/athlos/pkg/response"
)

// MessageHandler exposes message history and posting endpoints.
type MessageHandler struct {
	messages *services.MessageService
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// List returns a page of the conversation's visible history.
func (h *MessageHandler) List(c *gin.Context) {
	input := services.ListMessagesInput{
		ConversationID: c.Param("conversationId"),
		CallerID:       c.GetString(middleware.CtxUserIDKey),
		Limit:          parseIntQuery(c, "limit", 0),
		NewestFirst:    parseBoolQuery(c, "newest_first"),
	}

	if raw := strings.TrimSpace(c.Query("before")); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.NewBadRequest("before must be an RFC 3339 timestamp"))
			return
		}
		input.Before = before
	}

	messages, err := h.messages.ListMessages(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, messages, &response.Meta{
		Limit:   input.Limit,
		HasMore: input.Limit > 0 && len(messages) == input.Limit,
	})
}

type postMessageRequest struct {
	Content  string `json:"content" validate:"required,max=4000"`
	Type     string `json:"type" validate:"omitempty,oneof=text announcement"`
	Priority string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

// Post appends a message to the conversation.
func (h *MessageHandler) Post(c *gin.Context) {
	var req postMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, err := h.messages.PostMessage(requestContext(c), services.PostMessageInput{
		ConversationID: c.Param("conversationId"),
		SenderID:       c.GetString(middleware.CtxUserIDKey),
		Content:        req.Content,
		Type:           req.Type,
		Priority:       req.Priority,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, message)
}

// Delete soft-deletes a message.
func (h *MessageHandler) Delete(c *gin.Context) {
	if err := h.messages.DeleteMessage(requestContext(c), c.Param("messageId"), c.GetString(middleware.CtxUserIDKey)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
