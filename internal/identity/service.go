package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/athlos-app/athlos/internal/models"
	apperrors "github.com/athlos-app/athlos/pkg/errors"
)

// Claims carries the profile attributes supplied by the identity provider.
type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Service maps external identity-provider subjects onto internal users.
type Service struct {
	db      *gorm.DB
	timeNow func() time.Time
}

// NewService constructs an identity Service.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("identity service: db is required")
	}
	return &Service{db: db, timeNow: time.Now}, nil
}

// ResolveInternalUser returns the active internal user for the external
// subject. Unknown subjects and deactivated users both resolve to NotFound.
func (s *Service) ResolveInternalUser(ctx context.Context, externalID string) (*models.User, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, apperrors.NewBadRequest("external id is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).
		First(&user, "external_id = ? AND is_active = ?", externalID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity service: resolve user: %w", err)
	}

	return &user, nil
}

// SyncUser upserts the internal user from provider claims: created on first
// sight, profile fields refreshed afterwards. Deactivated users stay
// deactivated; syncing does not resurrect them.
func (s *Service) SyncUser(ctx context.Context, claims Claims) (*models.User, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, apperrors.NewBadRequest("subject claim is required")
	}
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email claim is required")
	}

	now := s.timeNow().UTC()

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "external_id = ?", subject).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			ExternalID:    subject,
			Email:         email,
			EmailVerified: claims.EmailVerified,
			DisplayName:   displayName(claims),
			Avatar:        strings.TrimSpace(claims.Picture),
			IsActive:      true,
			LastSyncedAt:  &now,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("identity service: create user: %w", err)
		}
		return &user, nil
	case err != nil:
		return nil, fmt.Errorf("identity service: load user: %w", err)
	}

	updates := map[string]any{
		"email":          email,
		"email_verified": claims.EmailVerified,
		"display_name":   displayName(claims),
		"last_synced_at": now,
	}
	if picture := strings.TrimSpace(claims.Picture); picture != "" {
		updates["avatar"] = picture
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("identity service: update user: %w", err)
	}

	if err := s.db.WithContext(ctx).First(&user, "id = ?", user.ID).Error; err != nil {
		return nil, fmt.Errorf("identity service: reload user: %w", err)
	}

	return &user, nil
}

// Deactivate soft-deletes the user by clearing the active flag, preserving
// referential integrity for teams and conversations they took part in.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_active = ?", strings.TrimSpace(userID), true).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("identity service: deactivate user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func displayName(claims Claims) string {
	if name := strings.TrimSpace(claims.Name); name != "" {
		return name
	}
	email := strings.TrimSpace(claims.Email)
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
