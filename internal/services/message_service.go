package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/athlos-app/athlos/internal/models"
	apperrors "github.com/athlos-app/athlos/pkg/errors"
	"github.com/athlos-app/athlos/pkg/metrics"
)

const maxMessageLength = 4000

// PostMessageInput carries the payload required to post a message.
type PostMessageInput struct {
	ConversationID string
	SenderID       string
	Content        string
	Type           string
	Priority       string
}

// ListMessagesInput defines filters for reading a conversation's history.
type ListMessagesInput struct {
	ConversationID string
	CallerID       string
	Limit          int
	Before         time.Time
	// NewestFirst returns descending creation-time order, used by
	// announcement feeds. Default is ascending for chat display.
	NewestFirst bool
}

// MessageService persists messages and enforces that only participants may
// read or write a conversation. Team conversations transparently auto-join
// entitled callers through the participant synchroniser.
type MessageService struct {
	db            *gorm.DB
	conversations *ConversationService
	participants  *ParticipantService
	membership    *MembershipService
	notifier      *NotificationService
	timeNow       func() time.Time
}

// NewMessageService constructs a MessageService instance.
func NewMessageService(
	db *gorm.DB,
	conversations *ConversationService,
	participants *ParticipantService,
	membership *MembershipService,
	notifier *NotificationService,
) (*MessageService, error) {
	if db == nil {
		return nil, errors.New("message service: db is required")
	}
	if conversations == nil {
		return nil, errors.New("message service: conversation service is required")
	}
	if participants == nil {
		return nil, errors.New("message service: participant service is required")
	}
	if membership == nil {
		return nil, errors.New("message service: membership service is required")
	}
	return &MessageService{
		db:            db,
		conversations: conversations,
		participants:  participants,
		membership:    membership,
		notifier:      notifier,
		timeNow:       time.Now,
	}, nil
}

// ListMessages returns a bounded page of the conversation's history,
// excluding soft-deleted rows. The caller must be (or become) a participant.
func (s *MessageService) ListMessages(ctx context.Context, input ListMessagesInput) ([]models.Message, error) {
	ctx = ensureContext(ctx)

	conversationID := strings.TrimSpace(input.ConversationID)
	callerID := strings.TrimSpace(input.CallerID)
	if conversationID == "" || callerID == "" {
		return nil, apperrors.NewBadRequest("conversation id and caller id are required")
	}

	if err := s.participants.EnsureParticipant(ctx, conversationID, callerID); err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	order := "created_at ASC, id ASC"
	if input.NewestFirst {
		order = "created_at DESC, id DESC"
	}

	query := s.db.WithContext(ctx).
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Order(order).
		Limit(limit)

	if !input.Before.IsZero() {
		query = query.Where("created_at < ?", input.Before)
	}

	var rows []models.Message
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("message service: list messages: %w", err)
	}

	return rows, nil
}

// PostMessage validates, persists, and fans out a message. Announcements are
// a captain-exclusive broadcast checked against team membership, not the
// participant cache, so a stale auto-joined row grants no extra authority.
func (s *MessageService) PostMessage(ctx context.Context, input PostMessageInput) (*models.Message, error) {
	ctx = ensureContext(ctx)

	conversationID := strings.TrimSpace(input.ConversationID)
	senderID := strings.TrimSpace(input.SenderID)
	if conversationID == "" || senderID == "" {
		return nil, apperrors.NewBadRequest("conversation id and sender id are required")
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewBadRequest("message content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, apperrors.NewBadRequest("message content exceeds maximum length")
	}

	messageType := strings.TrimSpace(input.Type)
	if messageType == "" {
		messageType = models.MessageTypeText
	}
	if messageType != models.MessageTypeText && messageType != models.MessageTypeAnnouncement {
		return nil, apperrors.NewBadRequest("unsupported message type")
	}

	if err := s.participants.EnsureParticipant(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if messageType == models.MessageTypeAnnouncement {
		if !conversation.Kind.IsTeamKind() || conversation.TeamID == nil {
			return nil, apperrors.NewBadRequest("announcements require a team conversation")
		}
		captain, err := s.membership.IsCaptain(ctx, senderID, *conversation.TeamID)
		if err != nil {
			return nil, err
		}
		if !captain {
			return nil, apperrors.ErrForbidden
		}
	}

	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           messageType,
	}
	if priority := strings.TrimSpace(input.Priority); priority != "" {
		message.Priority = &priority
	}

	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("message service: create message: %w", err)
	}

	metrics.MessagesPosted.WithLabelValues(messageType).Inc()

	s.fanoutMessage(ctx, conversation, message)

	return message, nil
}

// DeleteMessage soft-deletes a message. Allowed for the sender and for
// conversation admins.
func (s *MessageService) DeleteMessage(ctx context.Context, messageID, callerID string) error {
	ctx = ensureContext(ctx)

	messageID = strings.TrimSpace(messageID)
	callerID = strings.TrimSpace(callerID)
	if messageID == "" || callerID == "" {
		return apperrors.NewBadRequest("message id and caller id are required")
	}

	var message models.Message
	err := s.db.WithContext(ctx).
		First(&message, "id = ? AND is_deleted = ?", messageID, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("message service: load message: %w", err)
	}

	if message.SenderID != callerID {
		admin, err := s.participants.IsAdmin(ctx, message.ConversationID, callerID)
		if err != nil {
			return err
		}
		if !admin {
			return apperrors.ErrForbidden
		}
	}

	if err := s.db.WithContext(ctx).
		Model(&message).
		UpdateColumn("is_deleted", true).Error; err != nil {
		return fmt.Errorf("message service: delete message: %w", err)
	}

	return nil
}

// fanoutMessage computes the recipient set and hands off to the notifier.
// Chat messages notify the other participants; announcements notify all
// other active team members, a superset since not every member is
// necessarily a participant yet.
func (s *MessageService) fanoutMessage(ctx context.Context, conversation *models.Conversation, message *models.Message) {
	if s.notifier == nil {
		return
	}

	var recipientIDs []string
	var err error
	if message.Type == models.MessageTypeAnnouncement && conversation.TeamID != nil {
		recipientIDs, err = s.membership.ActiveMemberIDs(ctx, *conversation.TeamID)
	} else {
		recipientIDs, err = s.participants.ParticipantIDs(ctx, conversation.ID)
	}
	if err != nil {
		// Fan-out is fire-and-forget; the message is already committed.
		return
	}

	recipients := make([]string, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if id != message.SenderID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}

	notificationType := "message.created"
	title := conversation.Title
	if title == "" {
		title = "New message"
	}
	if message.Type == models.MessageTypeAnnouncement {
		notificationType = "announcement.created"
	}

	s.notifier.Fanout(ctx, recipients, FanoutInput{
		Type:  notificationType,
		Title: title,
		Body:  truncate(message.Content, 140),
		Payload: map[string]any{
			"conversation_id": conversation.ID,
			"message_id":      message.ID,
			"sender_id":       message.SenderID,
		},
		Link: fmt.Sprintf("/conversations/%s", conversation.ID),
	})
}

func truncate(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit]) + "…"
}
