package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/audit"
	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/session"
	"github.com/snap-point/gallery/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newRouter returns an engine with cookie sessions and, when sess is set,
// a signed-in visitor.
func newRouter(sess *session.Session) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("gallery", cookie.NewStore([]byte("secret"))))
	r.Use(func(c *gin.Context) {
		if sess != nil {
			utils.SetSession(c, sess)
		}
		c.Next()
	})
	return r
}

func do(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func signedIn(role models.Role) *session.Session {
	return &session.Session{UserID: uuid.New(), Email: "someone@example.com", Role: role}
}

// logStore is an in-memory audit store.
type logStore struct {
	mu      sync.Mutex
	entries []models.LogEntry
	listErr error
}

func (s *logStore) InsertLog(_ context.Context, e *models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uint(len(s.entries) + 1)
	s.entries = append(s.entries, *e)
	return nil
}

func (s *logStore) ListLogs(_ context.Context, from, to int) ([]models.LogEntry, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	sorted := append([]models.LogEntry(nil), s.entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })
	total := int64(len(sorted))
	if from >= len(sorted) {
		return []models.LogEntry{}, total, nil
	}
	if to > len(sorted) {
		to = len(sorted)
	}
	return sorted[from:to], total, nil
}

func (s *logStore) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Action
	}
	return out
}

func newRecorder() (*audit.Recorder, *logStore) {
	store := &logStore{}
	return audit.NewRecorder(store, zap.NewNop()), store
}

// catalog is an in-memory media, comment and like store.
type catalog struct {
	mu       sync.Mutex
	media    []models.Media
	comments map[uuid.UUID][]models.Comment
	likes    map[uuid.UUID]map[uuid.UUID]bool
	err      error
}

func newCatalog(n int) *catalog {
	c := &catalog{
		comments: make(map[uuid.UUID][]models.Comment),
		likes:    make(map[uuid.UUID]map[uuid.UUID]bool),
	}
	for i := 0; i < n; i++ {
		c.media = append(c.media, models.Media{ID: uuid.New(), FileType: "image/png", AltText: "item"})
	}
	return c
}

func (c *catalog) ListMedia(_ context.Context, from, to int) ([]models.Media, error) {
	if c.err != nil {
		return nil, c.err
	}
	if from >= len(c.media) {
		return []models.Media{}, nil
	}
	if to > len(c.media) {
		to = len(c.media)
	}
	return c.media[from:to], nil
}

func (c *catalog) SearchMedia(ctx context.Context, q string, from, to int) ([]models.Media, error) {
	if q == "none" {
		return []models.Media{}, c.err
	}
	return c.ListMedia(ctx, from, to)
}

func (c *catalog) GetMedia(_ context.Context, id uuid.UUID) (*models.Media, error) {
	if c.err != nil {
		return nil, c.err
	}
	for _, m := range c.media {
		if m.ID == id {
			m := m
			return &m, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (c *catalog) ListComments(_ context.Context, mediaID uuid.UUID) ([]models.Comment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.comments[mediaID]) == 0 {
		return nil, apperrors.ErrEmptyResult
	}
	return append([]models.Comment(nil), c.comments[mediaID]...), nil
}

func (c *catalog) InsertComment(_ context.Context, cm *models.Comment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cm.ID = uuid.New()
	c.comments[cm.MediaID] = append(c.comments[cm.MediaID], *cm)
	return nil
}

func (c *catalog) InsertLike(_ context.Context, mediaID, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.likes[mediaID] == nil {
		c.likes[mediaID] = make(map[uuid.UUID]bool)
	}
	if c.likes[mediaID][userID] {
		return apperrors.ErrConflict
	}
	c.likes[mediaID][userID] = true
	return nil
}

func (c *catalog) DeleteLike(_ context.Context, mediaID, userID uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.likes[mediaID][userID] {
		return false, nil
	}
	delete(c.likes[mediaID], userID)
	return true, nil
}

func (c *catalog) CountLikes(_ context.Context, mediaID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.likes[mediaID])), nil
}

func (c *catalog) HasLiked(_ context.Context, mediaID, userID uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.likes[mediaID][userID], nil
}

// settingsStore mimics session.Store's settings API.
type settingsStore struct {
	current models.SiteSettings
	err     error
}

func (s *settingsStore) Settings() models.SiteSettings { return s.current }

func (s *settingsStore) SetMaintenanceMode(_ context.Context, on bool) (models.SiteSettings, error) {
	if s.err != nil {
		return s.current, s.err
	}
	s.current.MaintenanceMode = on
	return s.current, nil
}

func (s *settingsStore) UpdateCustomization(_ context.Context, c session.Customization) (models.SiteSettings, error) {
	if s.err != nil {
		return s.current, s.err
	}
	s.current.CustomCSS = c.CSS
	s.current.FooterText = c.FooterText
	s.current.LogoURL = c.LogoURL
	return s.current, nil
}
