package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/athlos-app/athlos/internal/models"
	apperrors "github.com/athlos-app/athlos/pkg/errors"
)

// MembershipService answers whether a user is entitled to a team's
// conversations. It is a pure read over the team row and the membership
// relation and never mutates state.
type MembershipService struct {
	db *gorm.DB
}

// NewMembershipService constructs a MembershipService instance.
func NewMembershipService(db *gorm.DB) (*MembershipService, error) {
	if db == nil {
		return nil, errors.New("membership service: db is required")
	}
	return &MembershipService{db: db}, nil
}

// IsEntitled reports whether the user may participate in the team's
// conversations: the user is the team creator OR holds an active membership
// row. The creator field and the captain membership row are written by two
// separate statements at team creation and either may be missing, so the two
// signals are checked independently.
func (s *MembershipService) IsEntitled(ctx context.Context, userID, teamID string) (bool, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	teamID = strings.TrimSpace(teamID)
	if userID == "" || teamID == "" {
		return false, apperrors.NewBadRequest("user id and team id are required")
	}

	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return false, err
	}

	if team.CreatorID == userID {
		return true, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.TeamMembership{}).
		Where("team_id = ? AND user_id = ? AND status = ?", teamID, userID, models.MembershipStatusActive).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("membership service: check membership: %w", err)
	}

	return count > 0, nil
}

// MembershipRole returns the role used to derive conversation participant
// roles: team creators and captain memberships map to captain, active members
// to member. ErrTeamMemberNotFound is returned when neither signal holds.
func (s *MembershipService) MembershipRole(ctx context.Context, userID, teamID string) (string, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	teamID = strings.TrimSpace(teamID)
	if userID == "" || teamID == "" {
		return "", apperrors.NewBadRequest("user id and team id are required")
	}

	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return "", err
	}

	var membership models.TeamMembership
	err = s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ? AND status = ?", teamID, userID, models.MembershipStatusActive).
		First(&membership).Error
	switch {
	case err == nil:
		if team.CreatorID == userID {
			return models.MembershipRoleCaptain, nil
		}
		return membership.Role, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if team.CreatorID == userID {
			return models.MembershipRoleCaptain, nil
		}
		return "", ErrTeamMemberNotFound
	default:
		return "", fmt.Errorf("membership service: load membership: %w", err)
	}
}

// IsCaptain reports whether the user holds captain authority over the team.
func (s *MembershipService) IsCaptain(ctx context.Context, userID, teamID string) (bool, error) {
	role, err := s.MembershipRole(ctx, userID, teamID)
	if errors.Is(err, ErrTeamMemberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == models.MembershipRoleCaptain, nil
}

// ActiveMemberIDs returns the user ids of all active team members. The team
// creator is included even when the captain membership row is missing.
func (s *MembershipService) ActiveMemberIDs(ctx context.Context, teamID string) ([]string, error) {
	ctx = ensureContext(ctx)

	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, apperrors.NewBadRequest("team id is required")
	}

	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := s.db.WithContext(ctx).
		Model(&models.TeamMembership{}).
		Where("team_id = ? AND status = ?", teamID, models.MembershipStatusActive).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("membership service: list members: %w", err)
	}

	if team.CreatorID != "" && !containsString(ids, team.CreatorID) {
		ids = append(ids, team.CreatorID)
	}

	return ids, nil
}

func (s *MembershipService) loadTeam(ctx context.Context, teamID string) (*models.Team, error) {
	var team models.Team
	err := s.db.WithContext(ctx).First(&team, "id = ?", teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: load team: %w", err)
	}
	return &team, nil
}
