package models

import "time"

// SiteSettingsID is the primary key of the only settings row.
const SiteSettingsID = 1

type SiteSettings struct {
	ID              int       `gorm:"primaryKey" json:"id"`
	MaintenanceMode bool      `gorm:"not null;default:false" json:"maintenance_mode"`
	CustomCSS       string    `gorm:"type:text;not null;default:''" json:"custom_css"`
	FooterText      string    `gorm:"type:text;not null;default:''" json:"footer_text"`
	LogoURL         string    `gorm:"type:text;not null;default:''" json:"logo_url"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (SiteSettings) TableName() string { return "settings" }

// DefaultSiteSettings is what visitors see when the row cannot be read.
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{ID: SiteSettingsID}
}
