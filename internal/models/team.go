package models

// Team groups players around a sport. The creator is conceptually the
// captain, but the creator field and the captain membership row are written
// by two separate statements and either may be missing; entitlement checks
// must treat them as independent signals.
type Team struct {
	BaseModel

	Name      string `gorm:"not null" json:"name"`
	Sport     string `json:"sport"`
	CreatorID string `gorm:"type:uuid;index" json:"creator_id"`
	Creator   *User  `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`

	Capacity    int `gorm:"default:0" json:"capacity"`
	MemberCount int `gorm:"default:0" json:"member_count"`

	Memberships []TeamMembership `gorm:"foreignKey:TeamID" json:"memberships,omitempty"`
}
