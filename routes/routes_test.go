package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/audit"
	"github.com/snap-point/gallery/backend"
	"github.com/snap-point/gallery/comments"
	"github.com/snap-point/gallery/config"
	"github.com/snap-point/gallery/controllers"
	"github.com/snap-point/gallery/likes"
	"github.com/snap-point/gallery/live"
	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/session"
	"github.com/snap-point/gallery/uploads"
	"github.com/snap-point/gallery/web"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSessions struct {
	ready    bool
	tokens   map[string]*session.Session
	settings models.SiteSettings
}

func (f *fakeSessions) Resolve(_ context.Context, token string) (*session.Session, error) {
	if s, ok := f.tokens[token]; ok {
		return s, nil
	}
	return nil, apperrors.ErrUnauthenticated
}

func (f *fakeSessions) Settings() models.SiteSettings { return f.settings }
func (f *fakeSessions) Ready() bool                  { return f.ready }

func (f *fakeSessions) SetMaintenanceMode(_ context.Context, on bool) (models.SiteSettings, error) {
	f.settings.MaintenanceMode = on
	return f.settings, nil
}

func (f *fakeSessions) UpdateCustomization(_ context.Context, c session.Customization) (models.SiteSettings, error) {
	f.settings.CustomCSS, f.settings.FooterText, f.settings.LogoURL = c.CSS, c.FooterText, c.LogoURL
	return f.settings, nil
}

// emptyStore answers every read with no rows.
type emptyStore struct{}

func (emptyStore) ListMedia(context.Context, int, int) ([]models.Media, error) {
	return []models.Media{}, nil
}
func (emptyStore) SearchMedia(context.Context, string, int, int) ([]models.Media, error) {
	return []models.Media{}, nil
}
func (emptyStore) GetMedia(context.Context, uuid.UUID) (*models.Media, error) {
	return nil, apperrors.ErrNotFound
}
func (emptyStore) ListComments(context.Context, uuid.UUID) ([]models.Comment, error) {
	return nil, apperrors.ErrEmptyResult
}
func (emptyStore) InsertComment(context.Context, *models.Comment) error      { return nil }
func (emptyStore) InsertLike(context.Context, uuid.UUID, uuid.UUID) error     { return nil }
func (emptyStore) CountLikes(context.Context, uuid.UUID) (int64, error)       { return 0, nil }
func (emptyStore) InsertMedia(context.Context, *models.Media) error           { return nil }
func (emptyStore) EmailExists(context.Context, string) (bool, error)          { return false, nil }
func (emptyStore) InsertLog(context.Context, *models.LogEntry) error          { return nil }
func (emptyStore) Upload(context.Context, string, []byte, string) error       { return nil }
func (emptyStore) Remove(context.Context, string) error                       { return nil }
func (emptyStore) PublicURL(path string) string                               { return "/" + path }
func (emptyStore) DeleteLike(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}
func (emptyStore) HasLiked(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}
func (emptyStore) ListLogs(context.Context, int, int) ([]models.LogEntry, int64, error) {
	return []models.LogEntry{}, 0, nil
}

type noAuth struct{}

func (noAuth) SignUp(context.Context, string, string) (*backend.AuthSession, error) {
	return nil, apperrors.ErrBackend
}
func (noAuth) SignIn(context.Context, string, string) (*backend.AuthSession, error) {
	return nil, backend.ErrInvalidCredentials
}
func (noAuth) SignInWithProvider(context.Context, string, string) (*backend.AuthSession, error) {
	return nil, apperrors.ErrBackend
}
func (noAuth) SignOut(context.Context, uuid.UUID) error { return nil }
func (noAuth) Refresh(context.Context, string) (*backend.AuthSession, error) {
	return nil, apperrors.ErrUnauthenticated
}

func newEngine(t *testing.T, store *fakeSessions) *gin.Engine {
	t.Helper()
	log := zap.NewNop()
	var db emptyStore
	recorder := audit.NewRecorder(db, log)
	commentSvc := comments.NewService(db)
	renderer, err := web.New()
	require.NoError(t, err)

	r := gin.New()
	r.Use(sessions.Sessions("gallery", cookie.NewStore([]byte("secret"))))
	SetupRoutes(r, Dependencies{
		Sessions:    store,
		Auth:        controllers.NewAuthController(noAuth{}, nil, recorder, log),
		Validation:  controllers.NewValidationController(db),
		Media:       controllers.NewMediaController(db, commentSvc, 10),
		Interaction: controllers.NewInteractionController(commentSvc, likes.NewToggler(db), db),
		Upload:      controllers.NewUploadController(uploads.NewService(db, db, recorder, 0, log), 0),
		Admin:       controllers.NewAdminController(store, recorder),
		Settings:    controllers.NewSettingsController(store),
		Pages: &controllers.PageController{
			Renderer: renderer,
			Settings: store,
			Media:    db,
			Audit:    recorder,
			PageSize: 10,
			Log:      log,
		},
		Live:      controllers.NewLiveController(context.Background(), live.NewHub(log), live.Deps{}, nil, log),
		RateLimit: config.RateLimitConfig{Requests: 1000, Window: time.Minute},
		Log:       log,
	})
	return r
}

func request(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func fixture() *fakeSessions {
	return &fakeSessions{
		ready: true,
		tokens: map[string]*session.Session{
			"user":  {UserID: uuid.New(), Role: models.RoleUser},
			"mod":   {UserID: uuid.New(), Role: models.RoleModerator},
			"admin": {UserID: uuid.New(), Role: models.RoleAdmin},
		},
	}
}

func TestRouteGuards(t *testing.T) {
	r := newEngine(t, fixture())

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
		wantLoc    string
	}{
		{name: "public feed", method: http.MethodGet, path: "/api/media", wantStatus: http.StatusOK},
		{name: "home page", method: http.MethodGet, path: "/", wantStatus: http.StatusOK},
		{name: "account needs login", method: http.MethodGet, path: "/account", wantStatus: http.StatusFound, wantLoc: "/login"},
		{name: "account signed in", method: http.MethodGet, path: "/account", token: "user", wantStatus: http.StatusOK},
		{name: "moderator page as user", method: http.MethodGet, path: "/moderator", token: "user", wantStatus: http.StatusFound, wantLoc: "/"},
		{name: "moderator page as moderator", method: http.MethodGet, path: "/moderator", token: "mod", wantStatus: http.StatusOK},
		{name: "admin page as moderator", method: http.MethodGet, path: "/admin", token: "mod", wantStatus: http.StatusFound, wantLoc: "/"},
		{name: "admin page as admin", method: http.MethodGet, path: "/admin", token: "admin", wantStatus: http.StatusOK},
		{name: "admin api anonymous", method: http.MethodGet, path: "/api/admin/logs", wantStatus: http.StatusUnauthorized},
		{name: "admin api as user", method: http.MethodGet, path: "/api/admin/logs", token: "user", wantStatus: http.StatusForbidden},
		{name: "admin api as admin", method: http.MethodGet, path: "/api/admin/logs", token: "admin", wantStatus: http.StatusOK},
		{name: "upload as user", method: http.MethodPost, path: "/api/uploads", token: "user", wantStatus: http.StatusForbidden},
		{name: "like anonymous", method: http.MethodPost, path: "/api/media/" + uuid.NewString() + "/like", wantStatus: http.StatusUnauthorized},
		{name: "static asset", method: http.MethodGet, path: "/static/app.js", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(r, tt.method, tt.path, tt.token)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, w.Header().Get("Location"))
			}
		})
	}
}

func TestRoutes_NotReady(t *testing.T) {
	store := fixture()
	store.ready = false
	r := newEngine(t, store)

	w := request(r, http.MethodGet, "/admin", "admin")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
}

func TestRoutes_Maintenance(t *testing.T) {
	store := fixture()
	store.settings.MaintenanceMode = true
	r := newEngine(t, store)

	w := request(r, http.MethodGet, "/", "user")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "undergoing maintenance")

	assert.Equal(t, http.StatusServiceUnavailable, request(r, http.MethodGet, "/api/media", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/login", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/settings", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/", "admin").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/admin", "admin").Code)
}
