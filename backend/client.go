// Package backend is the single handle the application holds on its data
// services: authentication, relational tables, object storage and realtime
// change notifications.
package backend

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/snap-point/gallery/models"
)

// SettingsChannel carries changes to the settings row.
const SettingsChannel = "site_settings"

type Client struct {
	Auth     *Auth
	Tables   *Tables
	Storage  *Storage
	Realtime *Realtime

	log *zap.Logger
}

func New(db *gorm.DB, auth *Auth, storage *Storage, realtime *Realtime, log *zap.Logger) *Client {
	return &Client{
		Auth:     auth,
		Tables:   NewTables(db),
		Storage:  storage,
		Realtime: realtime,
		log:      log,
	}
}

// UpdateSettings writes the settings row and fans the stored row out to
// every subscriber of SettingsChannel. A failed notification is logged; the
// write itself already succeeded.
func (c *Client) UpdateSettings(ctx context.Context, update SettingsUpdate) (*models.SiteSettings, error) {
	settings, err := c.Tables.UpdateSettings(ctx, update)
	if err != nil {
		return nil, err
	}

	change, err := NewChange("settings", "UPDATE", settings)
	if err == nil {
		err = c.Realtime.Publish(ctx, SettingsChannel, change)
	}
	if err != nil {
		c.log.Warn("settings change not broadcast", zap.Error(err))
	}
	return settings, nil
}
