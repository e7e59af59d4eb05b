package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/snap-point/gallery/config"
	"github.com/snap-point/gallery/controllers"
	"github.com/snap-point/gallery/middleware"
	"github.com/snap-point/gallery/web"
)

// jsonBodyLimit caps request bodies on every API route but uploads.
const jsonBodyLimit = 1 << 20

// SessionStore is what the routes need from the session store.
type SessionStore interface {
	middleware.Resolver
	middleware.SettingsSource
	Ready() bool
}

type Dependencies struct {
	Sessions    SessionStore
	Refresher   middleware.Refresher
	Auth        *controllers.AuthController
	Validation  *controllers.ValidationController
	Media       *controllers.MediaController
	Interaction *controllers.InteractionController
	Upload      *controllers.UploadController
	Admin       *controllers.AdminController
	Settings    *controllers.SettingsController
	Pages       *controllers.PageController
	Live        *controllers.LiveController
	RateLimit   config.RateLimitConfig
	Log         *zap.Logger
}

// SetupRoutes registers every page and API route on r. The cookie session
// middleware must already be installed.
func SetupRoutes(r *gin.Engine, d Dependencies) {
	r.Use(middleware.Authenticate(d.Sessions, d.Refresher, d.Log))
	r.Use(middleware.Maintenance(d.Sessions, d.Pages.Maintenance))

	r.StaticFS("/static", web.Static())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ready": d.Sessions.Ready()})
	})
	r.GET("/ws", d.Live.Connect)

	SetupPageRoutes(r, d)

	api := r.Group("/api")
	api.Use(middleware.RateLimit(d.RateLimit.Requests, d.RateLimit.Window))
	{
		SetupUploadRoutes(api, d)

		limited := api.Group("")
		limited.Use(middleware.RequestSizeLimit(jsonBodyLimit))
		SetupAuthRoutes(limited, d)
		SetupMediaRoutes(limited, d)
		SetupInteractionRoutes(limited, d)
		SetupAdminRoutes(limited, d)
	}
}
