package session

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/snap-point/gallery/backend"
	"github.com/snap-point/gallery/models"
)

type clientBackend struct {
	c *backend.Client
}

// FromClient adapts the backend client to the store.
func FromClient(c *backend.Client) Backend {
	return clientBackend{c: c}
}

func (b clientBackend) GetSession(ctx context.Context, accessToken string) (*backend.AuthSession, error) {
	return b.c.Auth.GetSession(ctx, accessToken)
}

func (b clientBackend) AuthEvents() (<-chan backend.AuthEvent, func()) {
	return b.c.Auth.Events()
}

func (b clientBackend) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return b.c.Tables.GetProfile(ctx, id)
}

func (b clientBackend) GetSettings(ctx context.Context) (*models.SiteSettings, error) {
	return b.c.Tables.GetSettings(ctx)
}

func (b clientBackend) UpdateSettings(ctx context.Context, update backend.SettingsUpdate) (*models.SiteSettings, error) {
	return b.c.UpdateSettings(ctx, update)
}

func (b clientBackend) SettingsChanges() (<-chan backend.Change, func()) {
	return b.c.Realtime.Subscribe(backend.SettingsChannel, backend.Filter{
		Table: "settings",
		Event: "UPDATE",
		ID:    strconv.Itoa(models.SiteSettingsID),
	})
}
