package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/models"
)

const minPasswordLength = 6

type AuthEventType string

const (
	SignedIn       AuthEventType = "SIGNED_IN"
	SignedOut      AuthEventType = "SIGNED_OUT"
	TokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent reports a change in a user's authentication state.
type AuthEvent struct {
	Type   AuthEventType
	UserID uuid.UUID
	Email  string
	At     time.Time
}

// AuthSession is an authenticated identity. RefreshToken is only set when
// the session was issued by sign in, sign up or refresh.
type AuthSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	IssuedAt     time.Time `json:"-"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
}

// Valid reports whether the access token has not expired at now.
func (s *AuthSession) Valid(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

type Auth struct {
	db         *gorm.DB
	tables     *Tables
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	events     *broker[AuthEvent]
	now        func() time.Time
}

func NewAuth(db *gorm.DB, secret string, accessTTL, refreshTTL time.Duration) *Auth {
	return &Auth{
		db:         db,
		tables:     NewTables(db),
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		events:     newBroker[AuthEvent](),
		now:        time.Now,
	}
}

// Events subscribes to authentication state changes.
func (a *Auth) Events() (<-chan AuthEvent, func()) {
	return a.events.subscribe(32, nil)
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (*AuthSession, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, apperrors.Invalid("email", "A valid email address is required.")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.Invalid("password", fmt.Sprintf("Password must be at least %d characters.", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	profile := models.Profile{
		Email:        email,
		PasswordHash: string(hash),
		Provider:     "email",
		Role:         models.RoleUser,
	}
	if err := a.db.WithContext(ctx).Create(&profile).Error; err != nil {
		err = translate("sign up", err)
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("email already registered: %w", apperrors.ErrConflict)
		}
		return nil, err
	}

	return a.issue(ctx, &profile, SignedIn)
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (*AuthSession, error) {
	profile, err := a.tables.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if profile.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return a.issue(ctx, profile, SignedIn)
}

// SignInWithProvider signs in the account for a verified provider email,
// creating it on first use.
func (a *Auth) SignInWithProvider(ctx context.Context, provider, email string) (*AuthSession, error) {
	profile, err := a.tables.GetProfileByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		profile = &models.Profile{
			Email:    normalizeEmail(email),
			Provider: provider,
			Role:     models.RoleUser,
		}
		err = translate("create profile", a.db.WithContext(ctx).Create(profile).Error)
	}
	if err != nil {
		return nil, err
	}

	return a.issue(ctx, profile, SignedIn)
}

// SignOut ends every session of the user: all refresh tokens are revoked
// and subscribers reject access tokens issued before now.
func (a *Auth) SignOut(ctx context.Context, userID uuid.UUID) error {
	err := a.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
	if err != nil {
		return translate("sign out", err)
	}

	a.events.publish(AuthEvent{Type: SignedOut, UserID: userID, At: a.now()})
	return nil
}

// Refresh exchanges a refresh token for a new session. The old token is
// revoked.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*AuthSession, error) {
	var stored models.RefreshToken
	err := a.db.WithContext(ctx).Where("token = ?", refreshToken).Take(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid refresh token: %w", apperrors.ErrUnauthenticated)
		}
		return nil, translate("refresh", err)
	}
	if a.now().After(stored.ExpirationDate) {
		if err := a.db.WithContext(ctx).Delete(&stored).Error; err != nil {
			return nil, translate("revoke expired refresh token", err)
		}
		return nil, fmt.Errorf("refresh token expired: %w", apperrors.ErrUnauthenticated)
	}

	profile, err := a.tables.GetProfile(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if err := a.db.WithContext(ctx).Delete(&stored).Error; err != nil {
		return nil, translate("revoke refresh token", err)
	}

	return a.issue(ctx, profile, TokenRefreshed)
}

// GetSession validates an access token.
func (a *Auth) GetSession(ctx context.Context, accessToken string) (*AuthSession, error) {
	if accessToken == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", apperrors.ErrUnauthenticated)
	}
	if typ, _ := claims["typ"].(string); typ != "access" {
		return nil, fmt.Errorf("not an access token: %w", apperrors.ErrUnauthenticated)
	}

	sub, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid token subject: %w", apperrors.ErrUnauthenticated)
	}
	exp, _ := claims["exp"].(float64)
	iat, _ := claims["iat"].(float64)
	email, _ := claims["email"].(string)

	return &AuthSession{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresAt:   time.Unix(int64(exp), 0),
		IssuedAt:    time.Unix(int64(iat), 0),
		UserID:      userID,
		Email:       email,
	}, nil
}

func (a *Auth) issue(ctx context.Context, profile *models.Profile, event AuthEventType) (*AuthSession, error) {
	now := a.now()
	expiresAt := now.Add(a.accessTTL)

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": profile.ID.String(),
		"email":   profile.Email,
		"typ":     "access",
		"iat":     now.Unix(),
		"exp":     expiresAt.Unix(),
	}).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshExpiry := now.Add(a.refreshTTL)
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": profile.ID.String(),
		"typ":     "refresh",
		"jti":     uuid.NewString(),
		"exp":     refreshExpiry.Unix(),
	}).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	stored := models.RefreshToken{
		UserID:         profile.ID,
		Token:          refreshToken,
		ExpirationDate: refreshExpiry,
	}
	if err := a.db.WithContext(ctx).Create(&stored).Error; err != nil {
		return nil, translate("store refresh token", err)
	}

	a.events.publish(AuthEvent{Type: event, UserID: profile.ID, Email: profile.Email, At: now})

	return &AuthSession{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
		IssuedAt:     now,
		UserID:       profile.ID,
		Email:        profile.Email,
	}, nil
}
