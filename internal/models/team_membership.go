package models

// Membership roles and statuses.
const (
	MembershipRoleCaptain = "captain"
	MembershipRoleMember  = "member"

	MembershipStatusActive   = "active"
	MembershipStatusInactive = "inactive"
)

// TeamMembership links a user to a team. It is the authoritative source for
// team conversation access; rows are removed outright when a user leaves.
type TeamMembership struct {
	BaseModel

	TeamID string `gorm:"type:uuid;not null;uniqueIndex:idx_team_user" json:"team_id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_team_user" json:"user_id"`

	Role   string `gorm:"type:varchar(32);not null;default:'member'" json:"role"`
	Status string `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
