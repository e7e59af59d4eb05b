package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/backend"
	"github.com/snap-point/gallery/config"
	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/session"
)

type fakeAuth struct {
	accounts map[string]string
	signOuts []uuid.UUID
	refresh  map[string]bool
	failWith error
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{accounts: map[string]string{}, refresh: map[string]bool{}}
}

func (f *fakeAuth) session(email string) *backend.AuthSession {
	token := uuid.NewString()
	f.refresh[token] = true
	return &backend.AuthSession{
		AccessToken:  "access-" + email,
		RefreshToken: token,
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
		UserID:       uuid.New(),
		Email:        email,
	}
}

func (f *fakeAuth) SignUp(_ context.Context, email, password string) (*backend.AuthSession, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if _, ok := f.accounts[email]; ok {
		return nil, apperrors.ErrConflict
	}
	if len(password) < 6 {
		return nil, apperrors.Invalid("password", "Password must be at least 6 characters.")
	}
	f.accounts[email] = password
	return f.session(email), nil
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (*backend.AuthSession, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if pw, ok := f.accounts[email]; !ok || pw != password {
		return nil, backend.ErrInvalidCredentials
	}
	return f.session(email), nil
}

func (f *fakeAuth) SignInWithProvider(_ context.Context, _, email string) (*backend.AuthSession, error) {
	return f.session(email), nil
}

func (f *fakeAuth) SignOut(_ context.Context, userID uuid.UUID) error {
	f.signOuts = append(f.signOuts, userID)
	return nil
}

func (f *fakeAuth) Refresh(_ context.Context, token string) (*backend.AuthSession, error) {
	if !f.refresh[token] {
		return nil, apperrors.ErrUnauthenticated
	}
	delete(f.refresh, token)
	return f.session("refreshed@example.com"), nil
}

func authRoutes(ac *AuthController, sess *session.Session) *gin.Engine {
	r := newRouter(sess)
	r.POST("/api/auth/signup", ac.SignUp)
	r.POST("/api/auth/login", ac.Login)
	r.POST("/api/auth/refresh", ac.Refresh)
	r.POST("/api/auth/logout", ac.Logout)
	r.GET("/api/auth/session", ac.Session)
	r.GET("/api/auth/google", ac.GoogleRedirect)
	r.GET("/api/auth/callback", ac.GoogleCallback)
	return r
}

func TestSignUp(t *testing.T) {
	auth := newFakeAuth()
	recorder, logs := newRecorder()
	r := authRoutes(NewAuthController(auth, nil, recorder, zap.NewNop()), nil)

	w := do(r, http.MethodPost, "/api/auth/signup", gin.H{"email": "new@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Bearer", body["token_type"])
	assert.NotEmpty(t, body["refresh_token"])
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"))

	w = do(r, http.MethodPost, "/api/auth/signup", gin.H{"email": "new@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/api/auth/signup", gin.H{"email": "short@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Password must be at least 6 characters.", decode(t, w)["message"])

	assert.Equal(t, []string{
		models.ActionSignupSuccess,
		models.ActionSignupFailure,
		models.ActionSignupFailure,
	}, logs.actions())
}

func TestSignUp_MissingFields(t *testing.T) {
	recorder, logs := newRecorder()
	r := authRoutes(NewAuthController(newFakeAuth(), nil, recorder, zap.NewNop()), nil)

	w := do(r, http.MethodPost, "/api/auth/signup", gin.H{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, logs.actions())
}

func TestLogin(t *testing.T) {
	auth := newFakeAuth()
	auth.accounts["user@example.com"] = "hunter22"
	recorder, logs := newRecorder()
	r := authRoutes(NewAuthController(auth, nil, recorder, zap.NewNop()), nil)

	tests := []struct {
		name       string
		password   string
		failWith   error
		wantStatus int
		wantMsg    string
	}{
		{name: "valid", password: "hunter22", wantStatus: http.StatusOK},
		{name: "wrong password", password: "nope", wantStatus: http.StatusUnauthorized, wantMsg: "Invalid email or password."},
		{name: "backend down", password: "hunter22", failWith: apperrors.Backend("sign in", errors.New("dial tcp")), wantStatus: http.StatusBadGateway, wantMsg: "The service is temporarily unavailable."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth.failWith = tt.failWith
			w := do(r, http.MethodPost, "/api/auth/login", gin.H{"email": "user@example.com", "password": tt.password})
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decode(t, w)["message"])
			}
		})
	}
	assert.Equal(t, []string{models.ActionLoginSuccess, models.ActionLoginFailure, models.ActionLoginFailure}, logs.actions())
}

func TestRefresh(t *testing.T) {
	auth := newFakeAuth()
	recorder, _ := newRecorder()
	r := authRoutes(NewAuthController(auth, nil, recorder, zap.NewNop()), nil)

	issued := auth.session("user@example.com")
	w := do(r, http.MethodPost, "/api/auth/refresh", gin.H{"refresh_token": issued.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "access-refreshed@example.com", decode(t, w)["access_token"])

	w = do(r, http.MethodPost, "/api/auth/refresh", gin.H{"refresh_token": issued.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/auth/refresh", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout(t *testing.T) {
	auth := newFakeAuth()
	recorder, logs := newRecorder()
	sess := signedIn(models.RoleUser)
	r := authRoutes(NewAuthController(auth, nil, recorder, zap.NewNop()), sess)

	w := do(r, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uuid.UUID{sess.UserID}, auth.signOuts)
	assert.Equal(t, []string{models.ActionLogout}, logs.actions())
}

func TestLogout_Anonymous(t *testing.T) {
	auth := newFakeAuth()
	recorder, logs := newRecorder()
	r := authRoutes(NewAuthController(auth, nil, recorder, zap.NewNop()), nil)

	w := do(r, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, auth.signOuts)
	assert.Empty(t, logs.actions())
}

func TestSessionEndpoint(t *testing.T) {
	recorder, _ := newRecorder()
	sess := signedIn(models.RoleModerator)

	w := do(authRoutes(NewAuthController(newFakeAuth(), nil, recorder, zap.NewNop()), sess), http.MethodGet, "/api/auth/session", nil)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "moderator", data["role"])

	w = do(authRoutes(NewAuthController(newFakeAuth(), nil, recorder, zap.NewNop()), nil), http.MethodGet, "/api/auth/session", nil)
	assert.Nil(t, decode(t, w)["data"])
}

type fakeGoogle struct {
	email       string
	exchangeErr error
}

func (g *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (g *fakeGoogle) ExchangeCode(_ context.Context, code string) (*oauth2.Token, error) {
	if g.exchangeErr != nil {
		return nil, g.exchangeErr
	}
	return &oauth2.Token{AccessToken: "google-" + code}, nil
}

func (g *fakeGoogle) GetUserInfo(_ context.Context, _ string) (*config.GoogleUserInfo, error) {
	return &config.GoogleUserInfo{Email: g.email, VerifiedEmail: true}, nil
}

// startGoogle follows the redirect endpoint and returns the issued state and
// the cookies carrying it.
func startGoogle(t *testing.T, r *gin.Engine) (string, []*http.Cookie) {
	t.Helper()
	w := do(r, http.MethodGet, "/api/auth/google", nil)
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	return loc.Query().Get("state"), w.Result().Cookies()
}

func callback(r *gin.Engine, query string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?"+query, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGoogleCallback(t *testing.T) {
	recorder, logs := newRecorder()
	ac := NewAuthController(newFakeAuth(), nil, recorder, zap.NewNop())
	ac.Google = &fakeGoogle{email: "g@example.com"}
	r := authRoutes(ac, nil)

	state, cookies := startGoogle(t, r)
	require.NotEmpty(t, state)

	w := callback(r, "code=abc&state="+url.QueryEscape(state), cookies)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, []string{models.ActionLoginSuccess}, logs.actions())
}

func TestGoogleCallback_Failures(t *testing.T) {
	tests := []struct {
		name   string
		google *fakeGoogle
		query  func(state string) string
	}{
		{name: "state mismatch", google: &fakeGoogle{email: "g@example.com"}, query: func(string) string { return "code=abc&state=forged" }},
		{name: "missing code", google: &fakeGoogle{email: "g@example.com"}, query: func(s string) string { return "state=" + url.QueryEscape(s) }},
		{name: "exchange fails", google: &fakeGoogle{exchangeErr: errors.New("bad code")}, query: func(s string) string { return "code=abc&state=" + url.QueryEscape(s) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder, logs := newRecorder()
			ac := NewAuthController(newFakeAuth(), nil, recorder, zap.NewNop())
			ac.Google = tt.google
			r := authRoutes(ac, nil)

			state, cookies := startGoogle(t, r)
			w := callback(r, tt.query(state), cookies)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/login", w.Header().Get("Location"))
			assert.Equal(t, []string{models.ActionLoginFailure}, logs.actions())
		})
	}
}

func TestGoogleDisabled(t *testing.T) {
	recorder, _ := newRecorder()
	r := authRoutes(NewAuthController(newFakeAuth(), nil, recorder, zap.NewNop()), nil)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/auth/google", nil).Code)
	w := do(r, http.MethodGet, "/api/auth/callback?code=x", nil)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

type emailSet map[string]bool

func (s emailSet) EmailExists(_ context.Context, email string) (bool, error) {
	if email == "down@example.com" {
		return false, apperrors.Backend("email exists", errors.New("timeout"))
	}
	return s[email], nil
}

func TestValidateEmail(t *testing.T) {
	vc := NewValidationController(emailSet{"taken@example.com": true})
	r := newRouter(nil)
	r.GET("/api/auth/email/:email", vc.ValidateEmail)

	w := do(r, http.MethodGet, "/api/auth/email/taken@example.com", nil)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["exists"])
	assert.Equal(t, false, data["available"])

	w = do(r, http.MethodGet, "/api/auth/email/free@example.com", nil)
	assert.Equal(t, true, decode(t, w)["data"].(map[string]interface{})["available"])

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/auth/email/not-an-email", nil).Code)
	assert.Equal(t, http.StatusBadGateway, do(r, http.MethodGet, "/api/auth/email/down@example.com", nil).Code)
}
