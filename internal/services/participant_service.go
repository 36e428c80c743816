package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/athlos-app/athlos/internal/models"
	apperrors "github.com/athlos-app/athlos/pkg/errors"
	"github.com/athlos-app/athlos/pkg/metrics"
)

// ParticipantService keeps the participant rows of a conversation in step
// with the entitled user set. For team conversations the participant table is
// a cache of TeamMembership that self-heals on access; for direct and group
// conversations it is authoritative and never auto-populated here.
type ParticipantService struct {
	db         *gorm.DB
	membership *MembershipService
	timeNow    func() time.Time
}

// NewParticipantService constructs a ParticipantService instance.
func NewParticipantService(db *gorm.DB, membership *MembershipService) (*ParticipantService, error) {
	if db == nil {
		return nil, errors.New("participant service: db is required")
	}
	if membership == nil {
		return nil, errors.New("participant service: membership service is required")
	}
	return &ParticipantService{
		db:         db,
		membership: membership,
		timeNow:    time.Now,
	}, nil
}

// EnsureParticipant guarantees the user holds a participant row for the
// conversation before any read or write. Existing rows make it a no-op;
// entitled users of team conversations are auto-joined with a role derived
// from their team membership; everyone else is rejected.
func (s *ParticipantService) EnsureParticipant(ctx context.Context, conversationID, userID string) error {
	ctx = ensureContext(ctx)

	conversationID = strings.TrimSpace(conversationID)
	userID = strings.TrimSpace(userID)
	if conversationID == "" || userID == "" {
		return apperrors.NewBadRequest("conversation id and user id are required")
	}

	var existing int64
	if err := s.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&existing).Error; err != nil {
		return fmt.Errorf("participant service: check participant: %w", err)
	}
	if existing > 0 {
		return nil
	}

	var conversation models.Conversation
	err := s.db.WithContext(ctx).
		First(&conversation, "id = ? AND is_active = ?", conversationID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrConversationNotFound
	}
	if err != nil {
		return fmt.Errorf("participant service: load conversation: %w", err)
	}

	if !conversation.Kind.IsTeamKind() || conversation.TeamID == nil {
		return apperrors.ErrForbidden
	}

	entitled, err := s.membership.IsEntitled(ctx, userID, *conversation.TeamID)
	if err != nil {
		return err
	}
	if !entitled {
		return apperrors.ErrForbidden
	}

	role := models.ParticipantRoleMember
	if membershipRole, roleErr := s.membership.MembershipRole(ctx, userID, *conversation.TeamID); roleErr == nil &&
		membershipRole == models.MembershipRoleCaptain {
		role = models.ParticipantRoleAdmin
	}

	participant := models.ConversationParticipant{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		JoinedAt:       s.timeNow().UTC(),
	}

	// A concurrent auto-join may have inserted the row between the check and
	// now; treat that as success.
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&participant).Error; err != nil {
		return fmt.Errorf("participant service: auto-join: %w", err)
	}

	metrics.ParticipantAutoJoins.Inc()
	return nil
}

// SyncTeamParticipants re-seeds missing participant rows for a team
// conversation from the authoritative membership relation. Used by repair
// paths; partial seeding from creation heals here.
func (s *ParticipantService) SyncTeamParticipants(ctx context.Context, conversationID string) error {
	ctx = ensureContext(ctx)

	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return apperrors.NewBadRequest("conversation id is required")
	}

	var conversation models.Conversation
	err := s.db.WithContext(ctx).
		First(&conversation, "id = ? AND is_active = ?", conversationID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrConversationNotFound
	}
	if err != nil {
		return fmt.Errorf("participant service: load conversation: %w", err)
	}

	if !conversation.Kind.IsTeamKind() || conversation.TeamID == nil {
		return apperrors.NewBadRequest("conversation is not team-backed")
	}

	memberIDs, err := s.membership.ActiveMemberIDs(ctx, *conversation.TeamID)
	if err != nil {
		return err
	}

	now := s.timeNow().UTC()
	rows := make([]models.ConversationParticipant, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		role := models.ParticipantRoleMember
		if membershipRole, roleErr := s.membership.MembershipRole(ctx, memberID, *conversation.TeamID); roleErr == nil &&
			membershipRole == models.MembershipRoleCaptain {
			role = models.ParticipantRoleAdmin
		}
		rows = append(rows, models.ConversationParticipant{
			ConversationID: conversationID,
			UserID:         memberID,
			Role:           role,
			JoinedAt:       now,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error; err != nil {
		return fmt.Errorf("participant service: sync participants: %w", err)
	}

	return nil
}

// ParticipantIDs returns the user ids currently materialised for the
// conversation.
func (s *ParticipantService) ParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	ctx = ensureContext(ctx)

	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", strings.TrimSpace(conversationID)).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("participant service: list participants: %w", err)
	}
	return ids, nil
}

// IsAdmin reports whether the user holds the admin role in the conversation.
func (s *ParticipantService) IsAdmin(ctx context.Context, conversationID, userID string) (bool, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ? AND role = ?",
			strings.TrimSpace(conversationID), strings.TrimSpace(userID), models.ParticipantRoleAdmin).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("participant service: check admin: %w", err)
	}
	return count > 0, nil
}
