package models

import "time"

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:100;not null"`
	Email        string `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	// OwnerSlot is always 1; its unique index allows a single account.
	OwnerSlot int `gorm:"not null;default:1;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
