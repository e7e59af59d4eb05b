// Package web renders the HTML pages and serves the browser assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names accepted by Render.
const (
	PageIndex       = "index"
	PageSearch      = "search"
	PageLogin       = "login"
	PageSignup      = "signup"
	PageAccount     = "account"
	PageModerator   = "moderator"
	PageAdmin       = "admin"
	PageMaintenance = "maintenance"
)

var pages = []string{
	PageIndex, PageSearch, PageLogin, PageSignup,
	PageAccount, PageModerator, PageAdmin, PageMaintenance,
}

// PageData is what every page template receives. Data holds the
// page-specific payload.
type PageData struct {
	Title    string
	Path     string
	Settings models.SiteSettings
	Session  *session.Session
	Flashes  []string
	Data     interface{}
}

type Renderer struct {
	templates map[string]*template.Template
}

var funcs = template.FuncMap{
	// Custom CSS and footer markup are written by admins only.
	"css":    func(s string) template.CSS { return template.CSS(s) },
	"footer": func(s string) template.HTML { return template.HTML(s) },
	"isRole": func(sess *session.Session, roles ...string) bool {
		if sess == nil {
			return false
		}
		for _, r := range roles {
			if string(sess.Role) == r {
				return true
			}
		}
		return false
	},
	"category": models.MediaCategory,
}

// New parses every page together with the shared layout.
func New() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render writes page to w. Nothing is written when the template fails.
func (r *Renderer) Render(w io.Writer, page string, data PageData) error {
	t, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// HTML renders page as the response.
func (r *Renderer) HTML(c *gin.Context, status int, page string, data PageData) {
	var buf bytes.Buffer
	if err := r.Render(&buf, page, data); err != nil {
		c.Error(err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// Static serves the embedded browser assets.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
