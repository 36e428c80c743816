package models

import "time"

// Participant roles within a conversation.
const (
	ParticipantRoleAdmin  = "admin"
	ParticipantRoleMember = "member"
)

// ConversationParticipant materialises a user's membership in a conversation.
// For team conversations it is a lazily synchronised cache of TeamMembership;
// for direct and group conversations it is the sole source of truth.
type ConversationParticipant struct {
	BaseModel

	ConversationID string `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_user" json:"conversation_id"`
	UserID         string `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_user" json:"user_id"`

	Role     string    `gorm:"type:varchar(32);not null;default:'member'" json:"role"`
	JoinedAt time.Time `json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
