package controllers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/session"
	"github.com/snap-point/gallery/web"
)

func pageRoutes(t *testing.T, sess *session.Session, cat *catalog, settings *settingsStore) (*gin.Engine, *logStore) {
	t.Helper()
	renderer, err := web.New()
	require.NoError(t, err)
	recorder, logs := newRecorder()
	pc := &PageController{
		Renderer:      renderer,
		Settings:      settings,
		Media:         cat,
		Audit:         recorder,
		PageSize:      10,
		MaxUploadSize: 5 << 20,
		Log:           zap.NewNop(),
	}
	r := newRouter(sess)
	r.GET("/", pc.Index)
	r.GET("/search", pc.Search)
	r.GET("/login", pc.Login)
	r.GET("/signup", pc.Signup)
	r.GET("/account", pc.Account)
	r.GET("/moderator", pc.Moderator)
	r.GET("/admin", pc.Admin)
	r.GET("/maintenance", pc.Maintenance)
	return r, logs
}

func TestPages(t *testing.T) {
	settings := &settingsStore{current: models.SiteSettings{FooterText: "Made with care"}}
	r, _ := pageRoutes(t, signedIn(models.RoleAdmin), newCatalog(2), settings)

	for _, path := range []string{"/", "/search?q=item", "/account", "/moderator", "/admin", "/maintenance"} {
		t.Run(path, func(t *testing.T) {
			w := do(r, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "Made with care")
		})
	}
}

func TestLoginPage_RedirectsSignedIn(t *testing.T) {
	r, _ := pageRoutes(t, signedIn(models.RoleUser), newCatalog(0), &settingsStore{})
	w := do(r, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	anon, _ := pageRoutes(t, nil, newCatalog(0), &settingsStore{})
	assert.Equal(t, http.StatusOK, do(anon, http.MethodGet, "/signup", nil).Code)
}

func TestSearchPage_Failure(t *testing.T) {
	cat := newCatalog(2)
	cat.err = apperrors.Backend("search", errors.New("timeout"))
	r, _ := pageRoutes(t, nil, cat, &settingsStore{})

	w := do(r, http.MethodGet, "/search?q=item", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Oops! an error occurred, refresh page")
}

func TestAdminPage_LogsUnavailable(t *testing.T) {
	r, logs := pageRoutes(t, signedIn(models.RoleAdmin), newCatalog(0), &settingsStore{})
	logs.listErr = apperrors.Backend("list logs", errors.New("timeout"))

	w := do(r, http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Could not load activity.")
	assert.Contains(t, w.Body.String(), `id="maintenance-toggle"`)
}
