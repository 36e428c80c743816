package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/athlos-app/athlos/internal/models"
	"github.com/athlos-app/athlos/internal/notifications"
	apperrors "github.com/athlos-app/athlos/pkg/errors"
	"github.com/athlos-app/athlos/pkg/logger"
	"github.com/athlos-app/athlos/pkg/metrics"
)

// FanoutInput describes the notification written for every recipient of a
// fan-out. The recipient set is computed by the caller, which also excludes
// the acting user.
type FanoutInput struct {
	Type      string
	Title     string
	Body      string
	Payload   map[string]any
	Link      string
	ExpiresAt *time.Time
}

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UserID     string
	Limit      int
	Offset     int
	UnreadOnly bool
}

// NotificationService persists in-app notifications and streams them to
// connected clients.
type NotificationService struct {
	db  *gorm.DB
	hub *notifications.Hub
	log *zap.Logger
}

// NewNotificationService constructs a NotificationService. The hub is
// optional; without it notifications are persisted but not streamed.
func NewNotificationService(db *gorm.DB, hub *notifications.Hub) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{
		db:  db,
		hub: hub,
		log: logger.WithModule("fanout"),
	}, nil
}

// Fanout writes one notification row per recipient. It is best-effort by
// contract: a failed write is logged and counted but never aborts the
// remaining recipients, and no error reaches the caller — the triggering
// state change has already been committed. Returns the number of rows
// written.
func (s *NotificationService) Fanout(ctx context.Context, recipientIDs []string, input FanoutInput) int {
	ctx = ensureContext(ctx)

	recipients := normaliseIDs(recipientIDs)
	if len(recipients) == 0 {
		return 0
	}

	notificationType := strings.TrimSpace(input.Type)
	if notificationType == "" {
		s.log.Warn("fanout skipped: notification type is required")
		return 0
	}

	var payload datatypes.JSON
	if input.Payload != nil {
		data, err := json.Marshal(input.Payload)
		if err != nil {
			s.log.Warn("fanout payload not serialisable; continuing without it", zap.Error(err))
		} else {
			payload = datatypes.JSON(data)
		}
	}

	created := 0
	var failures error
	for _, recipientID := range recipients {
		notification := models.Notification{
			UserID:    recipientID,
			Type:      notificationType,
			Title:     strings.TrimSpace(input.Title),
			Body:      strings.TrimSpace(input.Body),
			Payload:   payload,
			Link:      strings.TrimSpace(input.Link),
			ExpiresAt: input.ExpiresAt,
		}

		if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
			failures = multierr.Append(failures, fmt.Errorf("recipient %s: %w", recipientID, err))
			metrics.NotificationsFanned.WithLabelValues("error").Inc()
			continue
		}

		created++
		metrics.NotificationsFanned.WithLabelValues("created").Inc()

		if s.hub != nil {
			s.hub.Broadcast(recipientID, notifications.Event{
				Event:        "notification.created",
				Notification: notification,
			})
		}
	}

	if failures != nil {
		s.log.Warn("fanout completed with failures",
			zap.String("type", notificationType),
			zap.Int("created", created),
			zap.Int("recipients", len(recipients)),
			zap.Error(failures),
		)
	}

	return created
}

// ListForUser returns notifications for the supplied user ordered by recency,
// excluding expired rows.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]models.Notification, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("expires_at IS NULL OR expires_at > ?", time.Now().UTC()).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)

	if input.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var rows []models.Notification
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	return rows, nil
}

// MarkRead sets the notification read flag for a user.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	return s.setReadState(ctx, userID, notificationID, true)
}

// MarkUnread unsets the notification read flag.
func (s *NotificationService) MarkUnread(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	return s.setReadState(ctx, userID, notificationID, false)
}

func (s *NotificationService) setReadState(ctx context.Context, userID, notificationID string, read bool) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	updates := map[string]any{"is_read": read, "read_at": nil}
	notification.IsRead = read
	notification.ReadAt = nil
	if read {
		now := time.Now().UTC()
		updates["read_at"] = now
		notification.ReadAt = &now
	}

	if err := s.db.WithContext(ctx).Model(&notification).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("notification service: update read state: %w", err)
	}

	return &notification, nil
}

// MarkAllRead marks all unread notifications for the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperrors.NewBadRequest("user id is required")
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
		return fmt.Errorf("notification service: mark all read: %w", err)
	}

	return nil
}

// Delete removes a notification owned by the supplied user.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
