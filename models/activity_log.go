package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit actions written to the logs table.
const (
	ActionSignupSuccess           = "USER_SIGNUP_SUCCESS"
	ActionSignupFailure           = "USER_SIGNUP_FAILURE"
	ActionLoginSuccess            = "USER_LOGIN_SUCCESS"
	ActionLoginFailure            = "USER_LOGIN_FAILURE"
	ActionLogout                  = "USER_LOGOUT"
	ActionUploadSuccess           = "MEDIA_UPLOAD_SUCCESS"
	ActionUploadFailureDB         = "MEDIA_UPLOAD_FAILURE_DB"
	ActionUploadFailureStorage    = "MEDIA_UPLOAD_FAILURE_STORAGE"
	ActionCustomizationUpdated    = "SITE_CUSTOMIZATION_UPDATED"
	ActionMaintenanceModeEnabled  = "MAINTENANCE_MODE_ENABLED"
	ActionMaintenanceModeDisabled = "MAINTENANCE_MODE_DISABLED"
)

// LogEntry is an append-only audit record.
type LogEntry struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Action    string         `gorm:"type:varchar(64);not null;index" json:"action"`
	Details   datatypes.JSON `json:"details"`
	UserID    *uuid.UUID     `gorm:"type:uuid" json:"user_id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`

	ActorEmail string `gorm:"->;-:migration" json:"actor_email,omitempty"`
}

func (LogEntry) TableName() string { return "logs" }
