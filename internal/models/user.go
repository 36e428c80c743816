package models

import "time"

// User describes a platform user synchronised from the identity provider.
// Users are never deleted, only deactivated, so teams and events keep
// valid references to past participants.
type User struct {
	BaseModel

	// ExternalID is the stable subject issued by the identity provider.
	ExternalID string `gorm:"uniqueIndex;not null" json:"external_id"`

	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`

	DisplayName string `gorm:"not null" json:"display_name"`
	Avatar      string `json:"avatar"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`

	LastSyncedAt *time.Time `json:"last_synced_at"`

	Memberships []TeamMembership `gorm:"foreignKey:UserID" json:"-"`
}
