// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User is an account. Username and email are unique; the password column
// holds a bcrypt hash and is never serialized.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Username    string     `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email       string     `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UserProfile is the 1:1 companion of a User. Username and email are
// denormalized copies kept in step by profile updates.
type UserProfile struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Username  string    `gorm:"size:150;not null;index" json:"username"`
	Email     string    `gorm:"size:254" json:"email"`
	Bio       string    `gorm:"type:text" json:"bio"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Follow is one directed edge of the follow graph. A user's followers are
// the rows where they are the followee; their following set is the rows
// where they are the follower.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FolloweeID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}
