package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification represents an in-app notification for a user. The core only
// ever inserts rows; marking read is a concern of the notification read API.
type Notification struct {
	BaseModel

	UserID string `gorm:"type:uuid;index" json:"user_id"`
	Type   string `gorm:"type:varchar(64);not null" json:"type"`
	Title  string `gorm:"type:varchar(255);not null" json:"title"`
	Body   string `gorm:"type:text" json:"body"`

	Payload datatypes.JSON `json:"payload"`
	Link    string         `gorm:"type:text" json:"link"`

	IsRead    bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt    *time.Time `json:"read_at"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at"`
}
