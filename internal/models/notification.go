package models

import (
	"time"
)

// ActionType is the social action that produced a notification.
type ActionType string

const (
	ActionLike    ActionType = "like"
	ActionComment ActionType = "comment"
	ActionClone   ActionType = "clone"
)

// Notification is a one-way fan-out record. Only IsRead ever changes.
type Notification struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	RecipientID uint       `gorm:"not null;index:idx_notifications_recipient_created,priority:1" json:"recipient_id"`
	SenderID    uint       `gorm:"not null" json:"sender_id"`
	SenderName  string     `gorm:"size:150" json:"sender_name"`
	ActionType  ActionType `gorm:"size:20;not null" json:"action_type"`
	TargetType  TargetKind `gorm:"size:20" json:"target_type,omitempty"`
	TargetID    uint       `json:"target_id,omitempty"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	IsRead      bool       `gorm:"not null;default:false" json:"is_read"`
	CreatedAt   time.Time  `gorm:"index:idx_notifications_recipient_created,priority:2" json:"created_at"`
}
