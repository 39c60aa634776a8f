package models

import "time"

// User is the author recorded on invoices.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name         string `gorm:"size:255" json:"name"`
	Username     string `gorm:"size:100;not null;uniqueIndex" json:"username"`
	PasswordHash string `gorm:"size:255;not null" json:"-"` // bcrypt, never exposed in JSON
}
