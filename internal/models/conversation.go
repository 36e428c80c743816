package models

// ConversationKind is stored as an explicit enumerated column rather than
// being inferred from nullable marker fields.
type ConversationKind string

const (
	ConversationKindDirect           ConversationKind = "direct"
	ConversationKindTeamChat         ConversationKind = "team_chat"
	ConversationKindTeamAnnouncement ConversationKind = "team_announcement"
	ConversationKindGroup            ConversationKind = "group"
)

// IsTeamKind reports whether the kind derives its membership from a team.
func (k ConversationKind) IsTeamKind() bool {
	return k == ConversationKindTeamChat || k == ConversationKindTeamAnnouncement
}

// Conversation is a message thread. No uniqueness constraint backs the
// one-active-conversation-per-(team, kind) convention; concurrent creation
// can leave duplicates and readers resolve them by preferring the earliest.
type Conversation struct {
	BaseModel

	Kind      ConversationKind `gorm:"type:varchar(32);not null;index" json:"kind"`
	Title     string           `json:"title"`
	TeamID    *string          `gorm:"type:uuid;index" json:"team_id,omitempty"`
	CreatorID string           `gorm:"type:uuid" json:"creator_id"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
	Messages     []Message                 `gorm:"foreignKey:ConversationID" json:"-"`
}
