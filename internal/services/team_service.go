package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/athlos-app/athlos/internal/models"
	apperrors "github.com/athlos-app/athlos/pkg/errors"
	"github.com/athlos-app/athlos/pkg/logger"
)

// CreateTeamInput captures new team metadata.
type CreateTeamInput struct {
	Name      string
	Sport     string
	Capacity  int
	CreatorID string
}

// TeamService handles team lifecycle and membership management.
type TeamService struct {
	db       *gorm.DB
	notifier *NotificationService
	log      *zap.Logger
}

// NewTeamService constructs a TeamService instance. The notifier is optional;
// without it membership events simply emit no notifications.
func NewTeamService(db *gorm.DB, notifier *NotificationService) (*TeamService, error) {
	if db == nil {
		return nil, errors.New("team service: db is required")
	}
	return &TeamService{
		db:       db,
		notifier: notifier,
		log:      logger.WithModule("teams"),
	}, nil
}

// Create registers a new team and writes the captain membership row for its
// creator. The two writes are separate statements: when the membership insert
// fails the team row is kept and the inconsistency is logged, since the
// entitlement check treats the creator field as sufficient on its own.
func (s *TeamService) Create(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("team name is required")
	}
	creatorID := strings.TrimSpace(input.CreatorID)
	if creatorID == "" {
		return nil, apperrors.NewBadRequest("team creator is required")
	}
	if input.Capacity < 0 {
		return nil, apperrors.NewBadRequest("team capacity cannot be negative")
	}

	var creator models.User
	if err := s.db.WithContext(ctx).First(&creator, "id = ? AND is_active = ?", creatorID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("team service: load creator: %w", err)
	}

	team := &models.Team{
		Name:        name,
		Sport:       strings.TrimSpace(input.Sport),
		CreatorID:   creatorID,
		Capacity:    input.Capacity,
		MemberCount: 1,
	}

	if err := s.db.WithContext(ctx).Create(team).Error; err != nil {
		return nil, fmt.Errorf("team service: create team: %w", err)
	}

	membership := &models.TeamMembership{
		TeamID: team.ID,
		UserID: creatorID,
		Role:   models.MembershipRoleCaptain,
		Status: models.MembershipStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(membership).Error; err != nil {
		s.log.Warn("captain membership write failed; creator check covers entitlement",
			zap.String("team_id", team.ID),
			zap.String("user_id", creatorID),
			zap.Error(err),
		)
	}

	return team, nil
}

// GetByID loads a team with its memberships.
func (s *TeamService) GetByID(ctx context.Context, teamID string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team models.Team
	err := s.db.WithContext(ctx).
		Preload("Memberships.User").
		First(&team, "id = ?", strings.TrimSpace(teamID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team service: load team: %w", err)
	}
	return &team, nil
}

// Join attaches a user to a team as an active member.
func (s *TeamService) Join(ctx context.Context, teamID, userID string) (*models.TeamMembership, error) {
	ctx = ensureContext(ctx)

	teamID = strings.TrimSpace(teamID)
	userID = strings.TrimSpace(userID)
	if teamID == "" || userID == "" {
		return nil, apperrors.NewBadRequest("team id and user id are required")
	}

	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, "id = ?", teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("team service: load team: %w", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ? AND is_active = ?", userID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("team service: load user: %w", err)
	}

	var existing int64
	if err := s.db.WithContext(ctx).
		Model(&models.TeamMembership{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("team service: check membership: %w", err)
	}
	if existing > 0 {
		return nil, ErrTeamMemberAlreadyExists
	}

	if team.Capacity > 0 && team.MemberCount >= team.Capacity {
		return nil, ErrTeamFull
	}

	membership := &models.TeamMembership{
		TeamID: teamID,
		UserID: userID,
		Role:   models.MembershipRoleMember,
		Status: models.MembershipStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(membership).Error; err != nil {
		return nil, fmt.Errorf("team service: create membership: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("id = ?", teamID).
		UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error; err != nil {
		s.log.Warn("member count update failed", zap.String("team_id", teamID), zap.Error(err))
	}

	if s.notifier != nil && team.CreatorID != "" && team.CreatorID != userID {
		s.notifier.Fanout(ctx, []string{team.CreatorID}, FanoutInput{
			Type:  "team.member_joined",
			Title: "New team member",
			Body:  fmt.Sprintf("%s joined %s", user.DisplayName, team.Name),
			Payload: map[string]any{
				"team_id": teamID,
				"user_id": userID,
			},
			Link: fmt.Sprintf("/teams/%s", teamID),
		})
	}

	return membership, nil
}

// Leave removes the user's membership row outright. Participant rows in team
// conversations are left behind and reconciled by the maintenance pass.
func (s *TeamService) Leave(ctx context.Context, teamID, userID string) error {
	ctx = ensureContext(ctx)

	teamID = strings.TrimSpace(teamID)
	userID = strings.TrimSpace(userID)
	if teamID == "" || userID == "" {
		return apperrors.NewBadRequest("team id and user id are required")
	}

	result := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMembership{})
	if result.Error != nil {
		return fmt.Errorf("team service: delete membership: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTeamMemberNotFound
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("id = ? AND member_count > 0", teamID).
		UpdateColumn("member_count", gorm.Expr("member_count - 1")).Error; err != nil {
		s.log.Warn("member count update failed", zap.String("team_id", teamID), zap.Error(err))
	}

	return nil
}

// ListMembers returns the active memberships of a team.
func (s *TeamService) ListMembers(ctx context.Context, teamID string) ([]models.TeamMembership, error) {
	ctx = ensureContext(ctx)

	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, apperrors.NewBadRequest("team id is required")
	}

	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, "id = ?", teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("team service: load team: %w", err)
	}

	var memberships []models.TeamMembership
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ? AND status = ?", teamID, models.MembershipStatusActive).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("team service: list members: %w", err)
	}

	return memberships, nil
}
