package models

import (
	"time"

	"github.com/google/uuid"
)

type RefreshToken struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt      time.Time
	UserID         uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	Token          string    `json:"token" gorm:"uniqueIndex;not null"`
	ExpirationDate time.Time `json:"expiry" gorm:"not null"`
}
