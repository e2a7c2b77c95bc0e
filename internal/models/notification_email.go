package models

import "time"

// NotificationEmail is a staff recipient for new-sale notifications.
// Only verified addresses receive mail.
type NotificationEmail struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Verified bool   `gorm:"not null;default:false" json:"verified"`

	CreatedAt time.Time `json:"created_at"`
}

func (NotificationEmail) TableName() string { return "notification_emails" }
