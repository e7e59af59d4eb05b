package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/gallery/guard"
	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/utils"
)

type SettingsSource interface {
	Settings() models.SiteSettings
}

// Maintenance answers every non-exempt request with page (HTML routes) or a
// 503 (API routes) while maintenance mode is on.
func Maintenance(settings SettingsSource, page gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !settings.Settings().MaintenanceMode {
			c.Next()
			return
		}
		role := models.RoleNone
		if sess := utils.GetSession(c); sess != nil {
			role = sess.Role
		}
		if guard.MaintenanceExempt(c.Request.URL.Path, role) {
			c.Next()
			return
		}

		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"message": "The site is under maintenance",
			})
			return
		}
		c.Status(http.StatusServiceUnavailable)
		page(c)
		c.Abort()
	}
}
