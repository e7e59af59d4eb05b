package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/snap-point/gallery/audit"
	"github.com/snap-point/gallery/backend"
	"github.com/snap-point/gallery/comments"
	"github.com/snap-point/gallery/config"
	"github.com/snap-point/gallery/controllers"
	"github.com/snap-point/gallery/feed"
	"github.com/snap-point/gallery/likes"
	"github.com/snap-point/gallery/live"
	"github.com/snap-point/gallery/logger"
	"github.com/snap-point/gallery/middleware"
	"github.com/snap-point/gallery/routes"
	"github.com/snap-point/gallery/session"
	"github.com/snap-point/gallery/uploads"
	"github.com/snap-point/gallery/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()
	lg := logger.Logger

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg, lg)
	if err != nil {
		lg.Fatal("Failed to connect to database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := backend.New(db,
		backend.NewAuth(db, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry),
		backend.NewStorage(
			backend.NewS3Client(cfg.Storage.Endpoint, cfg.Storage.AccessKeyID, cfg.Storage.SecretAccessKey, cfg.Storage.Region),
			cfg.Storage.BucketName,
			cfg.Storage.PublicURL,
		),
		backend.NewRealtime(db, lg),
		lg,
	)
	go client.Realtime.Run(ctx, backend.PGDialer(cfg.DSN()), backend.SettingsChannel)

	hub := live.NewHub(lg)
	go hub.Run(ctx)

	store := session.New(session.FromClient(client), hub, lg, session.WithTokenTTL(cfg.JWT.AccessTokenExpiry))
	store.Initialize(ctx)
	defer store.Close()

	recorder := audit.NewRecorder(client.Tables, lg)
	commentSvc := comments.NewService(client.Tables)
	toggler := likes.NewToggler(client.Tables)
	uploadSvc := uploads.NewService(client.Storage, client.Tables, recorder, cfg.Upload.MaxBytes, lg)
	google := config.NewGoogleConfig(cfg.Google)

	renderer, err := web.New()
	if err != nil {
		lg.Fatal("Failed to parse templates", zap.Error(err))
	}

	r := gin.New()
	r.Use(middleware.Recovery(lg))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(lg))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	cookies := cookie.NewStore([]byte(cfg.Session.CookieSecret))
	cookies.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWT.RefreshTokenExpiry / time.Second),
		HttpOnly: true,
		Secure:   cfg.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(cfg.Session.CookieName, cookies))

	routes.SetupRoutes(r, routes.Dependencies{
		Sessions:    store,
		Refresher:   client.Auth,
		Auth:        controllers.NewAuthController(client.Auth, google, recorder, lg),
		Validation:  controllers.NewValidationController(client.Tables),
		Media:       controllers.NewMediaController(client.Tables, commentSvc, cfg.Feed.PageSize),
		Interaction: controllers.NewInteractionController(commentSvc, toggler, client.Tables),
		Upload:      controllers.NewUploadController(uploadSvc, cfg.Upload.MaxBytes),
		Admin:       controllers.NewAdminController(store, recorder),
		Settings:    controllers.NewSettingsController(store),
		Pages: &controllers.PageController{
			Renderer:      renderer,
			Settings:      store,
			Media:         client.Tables,
			Audit:         recorder,
			PageSize:      cfg.Feed.PageSize,
			MaxUploadSize: cfg.Upload.MaxBytes,
			GoogleEnabled: google != nil,
			Log:           lg,
		},
		Live: controllers.NewLiveController(ctx, hub, live.Deps{
			Fetcher:   client.Tables,
			PageSize:  cfg.Feed.PageSize,
			Threshold: feed.DefaultThreshold,
			Toggler:   toggler,
			Likes:     client.Tables,
			Comments:  commentSvc,
			Settings:  store,
			Log:       lg,
		}, cfg.CORS.AllowedOrigins, lg),
		RateLimit: cfg.RateLimit,
		Log:       lg,
	})

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		lg.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("Server forced to shutdown", zap.Error(err))
	}
	lg.Info("Server exited")
}
