package controllers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/snap-point/gallery/live"
	"github.com/snap-point/gallery/utils"
)

type LiveController struct {
	Hub  *live.Hub
	Deps live.Deps
	// ctx bounds every view; it is cancelled on shutdown.
	ctx      context.Context
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewLiveController(ctx context.Context, hub *live.Hub, deps live.Deps, allowedOrigins []string, log *zap.Logger) *LiveController {
	return &LiveController{
		Hub:  hub,
		Deps: deps,
		ctx:  ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

// Connect upgrades the request and serves the live view of the page in the
// "path" query parameter until the browser disconnects.
func (lc *LiveController) Connect(c *gin.Context) {
	conn, err := lc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		lc.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	path := c.Query("path")
	if path == "" {
		path = "/"
	}
	lc.Hub.Serve(lc.ctx, conn, utils.GetSession(c), path, lc.Deps)
}

// originChecker accepts same-host origins and the configured ones.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}
