package models

import (
	"time"
)

// User is a customer identity keyed by email, or a staff admin account.
// Customers created through checkout have no password; they may register
// one later without losing order history.
type User struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Email          string  `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName       *string `gorm:"size:255" json:"full_name"`
	HashedPassword *string `gorm:"size:255" json:"-"`
	Role           string  `gorm:"size:20;not null;default:'CUSTOMER';index" json:"role"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
