package guard

import (
	"strings"

	"github.com/snap-point/gallery/models"
)

// MaintenancePath is where visitors are sent while maintenance mode is on.
const MaintenancePath = "/maintenance"

var maintenanceAllowed = []string{
	"/login",
	"/signup",
	"/api/auth/",
	"/api/settings",
	MaintenancePath,
	"/ws",
	"/static/",
	"/health",
}

// MaintenanceExempt reports whether path stays reachable for role while
// maintenance mode is on. Admins keep every route.
func MaintenanceExempt(path string, role models.Role) bool {
	if role == models.RoleAdmin {
		return true
	}
	for _, p := range maintenanceAllowed {
		if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}
