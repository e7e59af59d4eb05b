package middleware

import (
	"context"
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/backend"
	"github.com/snap-point/gallery/session"
	"github.com/snap-point/gallery/utils"
)

// Cookie session keys holding the browser's tokens.
const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"
)

type Resolver interface {
	Resolve(ctx context.Context, accessToken string) (*session.Session, error)
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*backend.AuthSession, error)
}

// Authenticate resolves the visitor from a bearer token or, for browsers,
// from the session cookie. An expired cookie token is refreshed once. It
// never rejects a request; guards decide what anonymous visitors may do.
func Authenticate(resolver Resolver, refresher Refresher, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := utils.BearerToken(c.GetHeader("Authorization")); token != "" {
			if sess, err := resolver.Resolve(c.Request.Context(), token); err == nil {
				utils.SetSession(c, sess)
			}
			c.Next()
			return
		}

		cookie := sessions.Default(c)
		access, _ := cookie.Get(accessTokenKey).(string)
		if access == "" {
			c.Next()
			return
		}

		sess, err := resolver.Resolve(c.Request.Context(), access)
		if errors.Is(err, apperrors.ErrUnauthenticated) {
			sess, err = refreshCookie(c, resolver, refresher)
		}
		if err != nil {
			log.Debug("cookie session not resolved", zap.Error(err))
			ClearTokens(c)
		} else {
			utils.SetSession(c, sess)
		}
		c.Next()
	}
}

func refreshCookie(c *gin.Context, resolver Resolver, refresher Refresher) (*session.Session, error) {
	refresh, _ := sessions.Default(c).Get(refreshTokenKey).(string)
	if refresh == "" || refresher == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	auth, err := refresher.Refresh(c.Request.Context(), refresh)
	if err != nil {
		return nil, err
	}
	if err := SaveTokens(c, auth); err != nil {
		return nil, err
	}
	return resolver.Resolve(c.Request.Context(), auth.AccessToken)
}

// SaveTokens stores an issued session in the browser cookie.
func SaveTokens(c *gin.Context, auth *backend.AuthSession) error {
	cookie := sessions.Default(c)
	cookie.Set(accessTokenKey, auth.AccessToken)
	if auth.RefreshToken != "" {
		cookie.Set(refreshTokenKey, auth.RefreshToken)
	}
	return cookie.Save()
}

// RefreshTokenFromCookie returns the browser's refresh token, if any.
func RefreshTokenFromCookie(c *gin.Context) string {
	token, _ := sessions.Default(c).Get(refreshTokenKey).(string)
	return token
}

// ClearTokens removes the tokens from the browser cookie.
func ClearTokens(c *gin.Context) {
	cookie := sessions.Default(c)
	cookie.Delete(accessTokenKey)
	cookie.Delete(refreshTokenKey)
	_ = cookie.Save()
}

// Flashes pops the flash messages queued for the browser.
func Flashes(c *gin.Context) []string {
	cookie := sessions.Default(c)
	raw := cookie.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = cookie.Save()
	out := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
