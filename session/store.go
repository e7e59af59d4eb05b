// Package session holds the process-wide view of who is signed in, with what
// role, and the current site settings. A Store is built once in main and
// passed to every component that needs it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/backend"
	"github.com/snap-point/gallery/models"
)

// Backend is what the store needs from the data services.
type Backend interface {
	GetSession(ctx context.Context, accessToken string) (*backend.AuthSession, error)
	AuthEvents() (<-chan backend.AuthEvent, func())
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetSettings(ctx context.Context) (*models.SiteSettings, error)
	UpdateSettings(ctx context.Context, update backend.SettingsUpdate) (*models.SiteSettings, error)
	SettingsChanges() (<-chan backend.Change, func())
}

// Notifier receives the user-visible effects of settings changes.
type Notifier interface {
	Toast(level, message string)
	SettingsChanged(settings models.SiteSettings)
}

// Session is a resolved, signed-in visitor.
type Session struct {
	UserID    uuid.UUID   `json:"user_id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Customization is the admin-editable look of the site.
type Customization struct {
	CSS        string `json:"custom_css"`
	FooterText string `json:"footer_text"`
	LogoURL    string `json:"logo_url"`
}

// DefaultTokenTTL is how long a sign-out is remembered when no access
// token lifetime is configured.
const DefaultTokenTTL = time.Hour

type Store struct {
	backend  Backend
	notify   Notifier
	log      *zap.Logger
	now      func() time.Time
	tokenTTL time.Duration

	mu        sync.RWMutex
	settings  models.SiteSettings
	roles     map[uuid.UUID]models.Role
	signedOut map[uuid.UUID]time.Time
	ready     bool

	initOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithTokenTTL sets the access token lifetime. A sign-out is forgotten once
// every token issued before it has expired.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.tokenTTL = d
		}
	}
}

func New(b Backend, n Notifier, log *zap.Logger, opts ...Option) *Store {
	if n == nil {
		n = discard{}
	}
	s := &Store{
		backend:   b,
		notify:    n,
		log:       log,
		now:       time.Now,
		tokenTTL:  DefaultTokenTTL,
		settings:  models.DefaultSiteSettings(),
		roles:     make(map[uuid.UUID]models.Role),
		signedOut: make(map[uuid.UUID]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads the settings row and starts following auth and settings
// changes. Only the first call does anything. A failed settings read leaves
// the defaults in place.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		settings, err := s.backend.GetSettings(ctx)
		if err != nil {
			s.log.Warn("using default site settings", zap.Error(err))
		} else {
			s.mu.Lock()
			s.settings = *settings
			s.mu.Unlock()
		}

		authEvents, stopAuth := s.backend.AuthEvents()
		changes, stopChanges := s.backend.SettingsChanges()

		loopCtx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		go func() {
			defer close(s.done)
			defer stopAuth()
			defer stopChanges()
			s.loop(loopCtx, authEvents, changes)
		}()

		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
	})
}

// Ready reports whether Initialize has completed.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Close stops the subscription loop and releases both subscriptions.
func (s *Store) Close() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Settings returns a copy of the current site settings.
func (s *Store) Settings() models.SiteSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Resolve validates accessToken and returns the session it belongs to. The
// role is looked up once per user and kept until the next auth event.
func (s *Store) Resolve(ctx context.Context, accessToken string) (*Session, error) {
	auth, err := s.backend.GetSession(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !auth.Valid(s.now()) {
		return nil, fmt.Errorf("session expired: %w", apperrors.ErrUnauthenticated)
	}

	s.mu.RLock()
	role, cached := s.roles[auth.UserID]
	out, hasSignedOut := s.signedOut[auth.UserID]
	s.mu.RUnlock()

	// iat has second precision, so tokens issued in the sign-out second survive.
	if hasSignedOut && auth.IssuedAt.Unix() < out.Unix() {
		return nil, fmt.Errorf("signed out: %w", apperrors.ErrUnauthenticated)
	}
	if !cached {
		role = s.lookupRole(ctx, auth.UserID)
	}

	return &Session{
		UserID:    auth.UserID,
		Email:     auth.Email,
		Role:      role,
		ExpiresAt: auth.ExpiresAt,
	}, nil
}

// lookupRole reads the role from the profile. A missing profile caches
// RoleNone; a failed read returns RoleNone without caching it.
func (s *Store) lookupRole(ctx context.Context, userID uuid.UUID) models.Role {
	profile, err := s.backend.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		s.cacheRole(userID, models.RoleNone)
		return models.RoleNone
	case err != nil:
		s.log.Warn("profile lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		return models.RoleNone
	}

	role := models.ParseRole(string(profile.Role))
	s.cacheRole(userID, role)
	return role
}

func (s *Store) cacheRole(userID uuid.UUID, role models.Role) {
	s.mu.Lock()
	s.roles[userID] = role
	s.mu.Unlock()
}

// SetMaintenanceMode turns maintenance mode on or off.
func (s *Store) SetMaintenanceMode(ctx context.Context, on bool) (models.SiteSettings, error) {
	return s.update(ctx, "set maintenance mode", backend.SettingsUpdate{MaintenanceMode: &on})
}

// UpdateCustomization replaces the custom CSS, footer text and logo URL.
func (s *Store) UpdateCustomization(ctx context.Context, c Customization) (models.SiteSettings, error) {
	return s.update(ctx, "update customization", backend.SettingsUpdate{
		CustomCSS:  &c.CSS,
		FooterText: &c.FooterText,
		LogoURL:    &c.LogoURL,
	})
}

// update writes once and, on success, adopts the row the backend returned.
func (s *Store) update(ctx context.Context, op string, u backend.SettingsUpdate) (models.SiteSettings, error) {
	row, err := s.backend.UpdateSettings(ctx, u)
	if err != nil {
		return s.Settings(), fmt.Errorf("%s: %w", op, err)
	}
	s.apply(*row)
	return *row, nil
}

func (s *Store) loop(ctx context.Context, authEvents <-chan backend.AuthEvent, changes <-chan backend.Change) {
	prune := time.NewTicker(s.tokenTTL)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-prune.C:
			s.pruneSignedOut()
		case ev, ok := <-authEvents:
			if !ok {
				authEvents = nil
				continue
			}
			s.handleAuth(ctx, ev)
		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			s.handleChange(ctx, change)
		}
	}
}

func (s *Store) handleAuth(ctx context.Context, ev backend.AuthEvent) {
	switch ev.Type {
	case backend.SignedOut:
		s.mu.Lock()
		delete(s.roles, ev.UserID)
		s.signedOut[ev.UserID] = ev.At
		s.mu.Unlock()
		s.pruneSignedOut()
	case backend.SignedIn, backend.TokenRefreshed:
		s.mu.Lock()
		delete(s.roles, ev.UserID)
		s.mu.Unlock()
		s.lookupRole(ctx, ev.UserID)
	}
}

// pruneSignedOut drops sign-outs older than the token lifetime. Every token
// they could reject has expired by then.
func (s *Store) pruneSignedOut() {
	cutoff := s.now().Add(-s.tokenTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, at := range s.signedOut {
		if at.Before(cutoff) {
			delete(s.signedOut, id)
		}
	}
}

func (s *Store) handleChange(ctx context.Context, change backend.Change) {
	if change.Truncated {
		row, err := s.backend.GetSettings(ctx)
		if err != nil {
			s.log.Warn("settings refetch failed", zap.Error(err))
			return
		}
		s.apply(*row)
		return
	}

	merged, err := merge(s.Settings(), change.New)
	if err != nil {
		s.log.Warn("dropping malformed settings change", zap.Error(err))
		return
	}
	s.apply(merged)
}

// merge overwrites only the columns present in cols.
func merge(current models.SiteSettings, cols map[string]json.RawMessage) (models.SiteSettings, error) {
	for name, raw := range cols {
		var dst interface{}
		switch name {
		case "maintenance_mode":
			dst = &current.MaintenanceMode
		case "custom_css":
			dst = &current.CustomCSS
		case "footer_text":
			dst = &current.FooterText
		case "logo_url":
			dst = &current.LogoURL
		case "updated_at":
			dst = &current.UpdatedAt
		default:
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return current, fmt.Errorf("column %s: %w", name, err)
		}
	}
	return current, nil
}

// apply is the only writer of settings. Its own writes and the realtime echo
// of them produce a single notification because the echo changes nothing.
func (s *Store) apply(next models.SiteSettings) {
	next.ID = models.SiteSettingsID

	s.mu.Lock()
	prev := s.settings
	s.settings = next
	s.mu.Unlock()

	if sameContent(prev, next) {
		return
	}
	if prev.MaintenanceMode != next.MaintenanceMode {
		s.notify.Toast("info", MaintenanceNotice(next.MaintenanceMode))
	}
	s.notify.SettingsChanged(next)
}

func sameContent(a, b models.SiteSettings) bool {
	return a.MaintenanceMode == b.MaintenanceMode &&
		a.CustomCSS == b.CustomCSS &&
		a.FooterText == b.FooterText &&
		a.LogoURL == b.LogoURL
}

// MaintenanceNotice is the message shown when maintenance mode flips.
func MaintenanceNotice(on bool) string {
	if on {
		return "Maintenance mode is now ON."
	}
	return "Maintenance mode is now OFF."
}

type discard struct{}

func (discard) Toast(string, string)                {}
func (discard) SettingsChanged(models.SiteSettings) {}
