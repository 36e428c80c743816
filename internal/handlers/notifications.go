package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/athlos-app/athlos/internal/middleware"
	"github.com/athlos-app/athlos/internal/notifications"
	"github.com/athlos-app/athlos/internal/services"
	"github.com/athlos-app/athlos/pkg/response"
)

// NotificationHandler exposes the caller's notification feed and the realtime
// stream endpoint.
type NotificationHandler struct {
	notifier *services.NotificationService
	hub      *notifications.Hub
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(notifier *services.NotificationService, hub *notifications.Hub) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, hub: hub}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	input := services.ListNotificationsInput{
		UserID:     c.GetString(middleware.CtxUserIDKey),
		Limit:      parseIntQuery(c, "limit", 0),
		Offset:     parseIntQuery(c, "offset", 0),
		UnreadOnly: parseBoolQuery(c, "unread_only"),
	}

	items, err := h.notifier.ListForUser(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{
		Limit:   input.Limit,
		Offset:  input.Offset,
		HasMore: input.Limit > 0 && len(items) == input.Limit,
	})
}

// MarkRead marks one notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	item, err := h.notifier.MarkRead(requestContext(c), c.GetString(middleware.CtxUserIDKey), c.Param("notificationId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, item)
}

// MarkUnread marks one notification as unread.
func (h *NotificationHandler) MarkUnread(c *gin.Context) {
	item, err := h.notifier.MarkUnread(requestContext(c), c.GetString(middleware.CtxUserIDKey), c.Param("notificationId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, item)
}

// MarkAllRead marks every unread notification for the caller as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notifier.MarkAllRead(requestContext(c), c.GetString(middleware.CtxUserIDKey)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"read": true})
}

// Delete removes one notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.notifier.Delete(requestContext(c), c.GetString(middleware.CtxUserIDKey), c.Param("notificationId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Stream upgrades the request to a WebSocket and pushes notification events
// as they are fanned out.
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		c.AbortWithStatus(http.StatusNotImplemented)
		return
	}

	h.hub.Serve(c.GetString(middleware.CtxUserIDKey), c.Writer, c.Request)
}
