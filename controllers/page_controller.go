package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/snap-point/gallery/audit"
	"github.com/snap-point/gallery/feed"
	"github.com/snap-point/gallery/middleware"
	"github.com/snap-point/gallery/utils"
	"github.com/snap-point/gallery/web"
)

type PageController struct {
	Renderer      *web.Renderer
	Settings      SettingsReader
	Media         MediaReader
	Audit         *audit.Recorder
	PageSize      int
	MaxUploadSize int64
	GoogleEnabled bool
	Log           *zap.Logger
}

func (pc *PageController) data(c *gin.Context, title string, payload interface{}) web.PageData {
	return web.PageData{
		Title:    title,
		Path:     c.Request.URL.Path,
		Settings: pc.Settings.Settings(),
		Session:  utils.GetSession(c),
		Flashes:  middleware.Flashes(c),
		Data:     payload,
	}
}

func (pc *PageController) render(c *gin.Context, page, title string, payload interface{}) {
	pc.Renderer.HTML(c, http.StatusOK, page, pc.data(c, title, payload))
}

func (pc *PageController) Index(c *gin.Context) {
	pc.render(c, web.PageIndex, "Home", nil)
}

// Search renders the first page of matches for q.
func (pc *PageController) Search(c *gin.Context) {
	data := web.SearchData{Query: strings.TrimSpace(c.Query("q"))}
	if data.Query != "" {
		r := feed.PageRange(1, pc.PageSize)
		items, err := pc.Media.SearchMedia(c.Request.Context(), data.Query, r.From, r.To)
		if err != nil {
			pc.Log.Warn("search failed", zap.String("query", data.Query), zap.Error(err))
			data.Failed = true
		}
		data.Items = items
	}
	pc.render(c, web.PageSearch, "Search", data)
}

func (pc *PageController) Login(c *gin.Context) {
	if utils.GetSession(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	pc.render(c, web.PageLogin, "Log in", web.LoginData{GoogleEnabled: pc.GoogleEnabled})
}

func (pc *PageController) Signup(c *gin.Context) {
	if utils.GetSession(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	pc.render(c, web.PageSignup, "Sign up", nil)
}

func (pc *PageController) Account(c *gin.Context) {
	pc.render(c, web.PageAccount, "Account", nil)
}

func (pc *PageController) Moderator(c *gin.Context) {
	pc.render(c, web.PageModerator, "Upload", web.ModeratorData{MaxMB: pc.MaxUploadSize >> 20})
}

// Admin renders the settings forms and one page of the activity log. A
// failed log read still renders the settings.
func (pc *PageController) Admin(c *gin.Context) {
	view := web.LogsView{Page: 1, TotalPages: 1}
	page, err := pc.Audit.List(c.Request.Context(), utils.QueryInt(c, "page", 1))
	if err != nil {
		pc.Log.Warn("activity log unavailable", zap.Error(err))
		view.Failed = true
	} else {
		view.Entries = page.Entries
		view.Page = page.Page
		if page.TotalPages > 1 {
			view.TotalPages = page.TotalPages
		}
	}
	pc.render(c, web.PageAdmin, "Admin", web.AdminData{Logs: view})
}

// Maintenance renders the maintenance page with the status already set by
// the caller, or 200 when visited directly.
func (pc *PageController) Maintenance(c *gin.Context) {
	pc.Renderer.HTML(c, c.Writer.Status(), web.PageMaintenance, pc.data(c, "Maintenance", nil))
}
