package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/athlos-app/athlos/internal/models"
	apperrors "github.com/athlos-app/athlos/pkg/errors"
	"github.com/athlos-app/athlos/pkg/logger"
	"github.com/athlos-app/athlos/pkg/metrics"
)

// ConversationService owns get-or-create resolution for the conversation
// shapes. "Search then create" runs as two separate statements with no
// uniqueness constraint backing it, so concurrent callers can both create;
// duplicates are tolerated and every read path prefers the earliest row.
type ConversationService struct {
	db         *gorm.DB
	membership *MembershipService
	notifier   *NotificationService
	log        *zap.Logger
}

// NewConversationService constructs a ConversationService instance.
func NewConversationService(db *gorm.DB, membership *MembershipService, notifier *NotificationService) (*ConversationService, error) {
	if db == nil {
		return nil, errors.New("conversation service: db is required")
	}
	if membership == nil {
		return nil, errors.New("conversation service: membership service is required")
	}
	return &ConversationService{
		db:         db,
		membership: membership,
		notifier:   notifier,
		log:        logger.WithModule("conversations"),
	}, nil
}

// GetOrCreateDirect returns the active direct conversation between the two
// users, creating it when absent. The get path is idempotent; under races the
// earliest-created conversation wins.
func (s *ConversationService) GetOrCreateDirect(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	ctx = ensureContext(ctx)

	userA = strings.TrimSpace(userA)
	userB = strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return nil, apperrors.NewBadRequest("both user ids are required")
	}
	if userA == userB {
		return nil, apperrors.NewBadRequest("cannot start a conversation with yourself")
	}

	for _, id := range []string{userA, userB} {
		var count int64
		if err := s.db.WithContext(ctx).
			Model(&models.User{}).
			Where("id = ? AND is_active = ?", id, true).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("conversation service: check user: %w", err)
		}
		if count == 0 {
			return nil, ErrUserNotFound
		}
	}

	if existing, err := s.findDirect(ctx, userA, userB); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	conversation := &models.Conversation{
		Kind:      models.ConversationKindDirect,
		CreatorID: userA,
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(conversation).Error; err != nil {
		return nil, fmt.Errorf("conversation service: create conversation: %w", err)
	}

	participants := []models.ConversationParticipant{
		{ConversationID: conversation.ID, UserID: userA, Role: models.ParticipantRoleAdmin},
		{ConversationID: conversation.ID, UserID: userB, Role: models.ParticipantRoleMember},
	}
	if err := s.db.WithContext(ctx).Create(&participants).Error; err != nil {
		// The store offers no multi-statement transaction; roll the
		// conversation back so no participant-less direct thread remains.
		if delErr := s.db.WithContext(ctx).Delete(&models.Conversation{}, "id = ?", conversation.ID).Error; delErr != nil {
			s.log.Warn("rollback of participant-less conversation failed",
				zap.String("conversation_id", conversation.ID),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("conversation service: create participants: %w", err)
	}

	metrics.ConversationsCreated.WithLabelValues(string(models.ConversationKindDirect)).Inc()

	if s.notifier != nil {
		s.notifier.Fanout(ctx, []string{userB}, FanoutInput{
			Type:  "conversation.created",
			Title: "New conversation",
			Body:  "You have a new direct conversation",
			Payload: map[string]any{
				"conversation_id": conversation.ID,
			},
			Link: fmt.Sprintf("/conversations/%s", conversation.ID),
		})
	}

	return conversation, nil
}

// GetOrCreateTeamConversation returns the team's chat or announcement
// conversation, creating and seeding it when absent. kind must be a team
// kind. Seeding is a best-effort bulk insert; missing rows are healed by the
// participant synchroniser on next access.
func (s *ConversationService) GetOrCreateTeamConversation(ctx context.Context, teamID string, kind models.ConversationKind) (*models.Conversation, error) {
	ctx = ensureContext(ctx)

	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, apperrors.NewBadRequest("team id is required")
	}
	if !kind.IsTeamKind() {
		return nil, apperrors.NewBadRequest("kind must be team_chat or team_announcement")
	}

	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, "id = ?", teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("conversation service: load team: %w", err)
	}

	if existing, err := s.findTeamConversation(ctx, teamID, kind); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	title := fmt.Sprintf("%s Chat", team.Name)
	if kind == models.ConversationKindTeamAnnouncement {
		title = fmt.Sprintf("%s Announcements", team.Name)
	}

	conversation := &models.Conversation{
		Kind:      kind,
		Title:     title,
		TeamID:    &team.ID,
		CreatorID: team.CreatorID,
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(conversation).Error; err != nil {
		return nil, fmt.Errorf("conversation service: create conversation: %w", err)
	}

	metrics.ConversationsCreated.WithLabelValues(string(kind)).Inc()

	seeded := s.seedParticipants(ctx, conversation, &team)

	if s.notifier != nil && len(seeded) > 0 {
		recipients := make([]string, 0, len(seeded))
		for _, id := range seeded {
			if id != team.CreatorID {
				recipients = append(recipients, id)
			}
		}
		s.notifier.Fanout(ctx, recipients, FanoutInput{
			Type:  "conversation.created",
			Title: title,
			Body:  fmt.Sprintf("%s now has a conversation", team.Name),
			Payload: map[string]any{
				"conversation_id": conversation.ID,
				"team_id":         team.ID,
			},
			Link: fmt.Sprintf("/conversations/%s", conversation.ID),
		})
	}

	return conversation, nil
}

// GetByID loads an active conversation.
func (s *ConversationService) GetByID(ctx context.Context, conversationID string) (*models.Conversation, error) {
	ctx = ensureContext(ctx)

	var conversation models.Conversation
	err := s.db.WithContext(ctx).
		First(&conversation, "id = ? AND is_active = ?", strings.TrimSpace(conversationID), true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("conversation service: load conversation: %w", err)
	}
	return &conversation, nil
}

// ListForUser returns the active conversations the user participates in,
// most recently created first.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	var conversationIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("user_id = ?", userID).
		Pluck("conversation_id", &conversationIDs).Error; err != nil {
		return nil, fmt.Errorf("conversation service: list participation: %w", err)
	}
	if len(conversationIDs) == 0 {
		return []models.Conversation{}, nil
	}

	var conversations []models.Conversation
	if err := s.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", conversationIDs, true).
		Order("created_at DESC").
		Find(&conversations).Error; err != nil {
		return nil, fmt.Errorf("conversation service: list conversations: %w", err)
	}

	return conversations, nil
}

// findDirect locates the earliest active direct conversation whose
// participant set is exactly the unordered pair.
func (s *ConversationService) findDirect(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	var candidateIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("user_id = ?", userA).
		Pluck("conversation_id", &candidateIDs).Error; err != nil {
		return nil, fmt.Errorf("conversation service: find participation: %w", err)
	}
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	var candidates []models.Conversation
	if err := s.db.WithContext(ctx).
		Preload("Participants").
		Where("id IN ? AND kind = ? AND is_active = ?", candidateIDs, models.ConversationKindDirect, true).
		Order("created_at ASC").
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("conversation service: find direct: %w", err)
	}

	for i := range candidates {
		if hasExactParticipants(&candidates[i], userA, userB) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func (s *ConversationService) findTeamConversation(ctx context.Context, teamID string, kind models.ConversationKind) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND kind = ? AND is_active = ?", teamID, kind, true).
		Order("created_at ASC").
		First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation service: find team conversation: %w", err)
	}
	return &conversation, nil
}

// seedParticipants bulk-inserts participant rows for every active membership.
// Partial failure is tolerated; returns the user ids it attempted to seed.
func (s *ConversationService) seedParticipants(ctx context.Context, conversation *models.Conversation, team *models.Team) []string {
	var memberships []models.TeamMembership
	if err := s.db.WithContext(ctx).
		Where("team_id = ? AND status = ?", team.ID, models.MembershipStatusActive).
		Find(&memberships).Error; err != nil {
		s.log.Warn("participant seeding skipped: memberships unavailable",
			zap.String("conversation_id", conversation.ID),
			zap.Error(err),
		)
		return nil
	}

	rows := make([]models.ConversationParticipant, 0, len(memberships)+1)
	seeded := make([]string, 0, len(memberships)+1)
	creatorSeeded := false
	for _, membership := range memberships {
		role := models.ParticipantRoleMember
		if membership.Role == models.MembershipRoleCaptain || membership.UserID == team.CreatorID {
			role = models.ParticipantRoleAdmin
		}
		if membership.UserID == team.CreatorID {
			creatorSeeded = true
		}
		rows = append(rows, models.ConversationParticipant{
			ConversationID: conversation.ID,
			UserID:         membership.UserID,
			Role:           role,
		})
		seeded = append(seeded, membership.UserID)
	}

	// A creator whose captain membership row was never written still gets a
	// participant row; the creator field alone entitles them.
	if !creatorSeeded && team.CreatorID != "" {
		rows = append(rows, models.ConversationParticipant{
			ConversationID: conversation.ID,
			UserID:         team.CreatorID,
			Role:           models.ParticipantRoleAdmin,
		})
		seeded = append(seeded, team.CreatorID)
	}

	if len(rows) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error; err != nil {
		s.log.Warn("participant seeding incomplete; synchroniser heals on next access",
			zap.String("conversation_id", conversation.ID),
			zap.Error(err),
		)
	}

	return seeded
}

func hasExactParticipants(conversation *models.Conversation, userA, userB string) bool {
	if len(conversation.Participants) != 2 {
		return false
	}
	foundA, foundB := false, false
	for _, p := range conversation.Participants {
		switch p.UserID {
		case userA:
			foundA = true
		case userB:
			foundB = true
		}
	}
	return foundA && foundB
}
