package models

// Message types.
const (
	MessageTypeText         = "text"
	MessageTypeAnnouncement = "announcement"
)

// Message is immutable once created except for the soft-delete flag.
// Ordering within a conversation is by creation time, ties broken by
// insertion order.
type Message struct {
	BaseModel

	ConversationID string `gorm:"type:uuid;not null;index:idx_conversation_created" json:"conversation_id"`
	SenderID       string `gorm:"type:uuid;not null" json:"sender_id"`

	Content  string  `gorm:"type:text;not null" json:"content"`
	Type     string  `gorm:"type:varchar(32);not null;default:'text'" json:"type"`
	Priority *string `gorm:"type:varchar(32)" json:"priority,omitempty"`

	IsDeleted bool `gorm:"default:false;index" json:"-"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
