package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/snap-point/gallery/audit"
	"github.com/snap-point/gallery/backend"
	"github.com/snap-point/gallery/config"
	"github.com/snap-point/gallery/middleware"
	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/utils"
)

const oauthStateKey = "oauth_state"

type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (*backend.AuthSession, error)
	SignIn(ctx context.Context, email, password string) (*backend.AuthSession, error)
	SignInWithProvider(ctx context.Context, provider, email string) (*backend.AuthSession, error)
	SignOut(ctx context.Context, userID uuid.UUID) error
	Refresh(ctx context.Context, refreshToken string) (*backend.AuthSession, error)
}

// GoogleOAuth is the code flow used by the Google sign-in button.
type GoogleOAuth interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	GetUserInfo(ctx context.Context, accessToken string) (*config.GoogleUserInfo, error)
}

type AuthController struct {
	Auth   Authenticator
	Google GoogleOAuth
	Audit  *audit.Recorder
	Log    *zap.Logger
}

// NewAuthController leaves Google sign-in disabled when google is nil.
func NewAuthController(auth Authenticator, google *config.GoogleConfig, recorder *audit.Recorder, log *zap.Logger) *AuthController {
	ac := &AuthController{Auth: auth, Audit: recorder, Log: log}
	if google != nil {
		ac.Google = google
	}
	return ac
}

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (ac *AuthController) SignUp(c *gin.Context) {
	var input credentials
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Email and password are required.")
		return
	}

	auth, err := ac.Auth.SignUp(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		ac.Audit.Record(c.Request.Context(), models.ActionSignupFailure, uuid.Nil, audit.Details{
			"email": input.Email,
			"error": err.Error(),
		})
		respondError(c, err)
		return
	}

	ac.Audit.Record(c.Request.Context(), models.ActionSignupSuccess, auth.UserID, audit.Details{"email": auth.Email})
	ac.issue(c, http.StatusCreated, auth)
}

func (ac *AuthController) Login(c *gin.Context) {
	var input credentials
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Email and password are required.")
		return
	}

	auth, err := ac.Auth.SignIn(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		ac.Audit.Record(c.Request.Context(), models.ActionLoginFailure, uuid.Nil, audit.Details{
			"email": input.Email,
			"error": err.Error(),
		})
		if errors.Is(err, backend.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, StandardResponse{Success: false, Message: "Invalid email or password."})
			return
		}
		respondError(c, err)
		return
	}

	ac.Audit.Record(c.Request.Context(), models.ActionLoginSuccess, auth.UserID, audit.Details{"email": auth.Email})
	ac.issue(c, http.StatusOK, auth)
}

// Refresh accepts the refresh token in the body or, for browsers, from the
// session cookie.
func (ac *AuthController) Refresh(c *gin.Context) {
	var input struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&input)
	if input.RefreshToken == "" {
		input.RefreshToken = middleware.RefreshTokenFromCookie(c)
	}
	if input.RefreshToken == "" {
		badRequest(c, "Refresh token is required.")
		return
	}

	auth, err := ac.Auth.Refresh(c.Request.Context(), input.RefreshToken)
	if err != nil {
		middleware.ClearTokens(c)
		respondError(c, err)
		return
	}
	ac.issue(c, http.StatusOK, auth)
}

func (ac *AuthController) Logout(c *gin.Context) {
	sess := utils.GetSession(c)
	if sess == nil {
		middleware.ClearTokens(c)
		c.JSON(http.StatusOK, StandardResponse{Success: true, Message: "Logged out successfully"})
		return
	}

	if err := ac.Auth.SignOut(c.Request.Context(), sess.UserID); err != nil {
		respondError(c, err)
		return
	}
	middleware.ClearTokens(c)
	ac.Audit.Record(c.Request.Context(), models.ActionLogout, sess.UserID, audit.Details{"email": sess.Email})
	c.JSON(http.StatusOK, StandardResponse{Success: true, Message: "Logged out successfully"})
}

// Session returns the visitor's resolved session, or null when anonymous.
func (ac *AuthController) Session(c *gin.Context) {
	c.JSON(http.StatusOK, StandardResponse{Success: true, Data: utils.GetSession(c)})
}

func (ac *AuthController) GoogleRedirect(c *gin.Context) {
	if ac.Google == nil {
		c.JSON(http.StatusNotFound, StandardResponse{Success: false, Message: "Google sign-in is not enabled."})
		return
	}
	state := uuid.New().String()
	cookie := sessions.Default(c)
	cookie.Set(oauthStateKey, state)
	if err := cookie.Save(); err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, ac.Google.AuthCodeURL(state))
}

// GoogleCallback finishes the code exchange and returns the browser to the
// gallery. Failures are flashed on the login page.
func (ac *AuthController) GoogleCallback(c *gin.Context) {
	if ac.Google == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	cookie := sessions.Default(c)
	want, _ := cookie.Get(oauthStateKey).(string)
	cookie.Delete(oauthStateKey)

	fail := func(reason string, err error) {
		ac.Log.Warn("google sign-in failed", zap.String("reason", reason), zap.Error(err))
		ac.Audit.Record(c.Request.Context(), models.ActionLoginFailure, uuid.Nil, audit.Details{
			"provider": "google",
			"error":    reason,
		})
		cookie.AddFlash("Google sign-in failed. Please try again.")
		_ = cookie.Save()
		c.Redirect(http.StatusFound, "/login")
	}

	if want == "" || c.Query("state") != want {
		fail("state mismatch", nil)
		return
	}
	code := c.Query("code")
	if code == "" {
		fail("missing code", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := ac.Google.ExchangeCode(ctx, code)
	if err != nil {
		fail("code exchange", err)
		return
	}
	info, err := ac.Google.GetUserInfo(ctx, token.AccessToken)
	if err != nil {
		fail("user info", err)
		return
	}
	auth, err := ac.Auth.SignInWithProvider(ctx, "google", info.Email)
	if err != nil {
		fail("sign in", err)
		return
	}
	if err := middleware.SaveTokens(c, auth); err != nil {
		fail("save session", err)
		return
	}

	ac.Audit.Record(ctx, models.ActionLoginSuccess, auth.UserID, audit.Details{
		"email":    auth.Email,
		"provider": "google",
	})
	c.Redirect(http.StatusFound, "/")
}

// issue stores the tokens for the browser and returns them to API clients.
func (ac *AuthController) issue(c *gin.Context, status int, auth *backend.AuthSession) {
	if err := middleware.SaveTokens(c, auth); err != nil {
		ac.Log.Warn("session cookie not saved", zap.Error(err))
	}
	c.JSON(status, gin.H{
		"success":       true,
		"token_type":    "Bearer",
		"access_token":  auth.AccessToken,
		"refresh_token": auth.RefreshToken,
		"expires_at":    auth.ExpiresAt,
		"user":          gin.H{"id": auth.UserID, "email": auth.Email},
	})
}
