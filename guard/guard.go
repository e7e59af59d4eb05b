// Package guard gates pages and API routes by session and role.
package guard

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/session"
	"github.com/snap-point/gallery/utils"
)

// NotAuthorizedMessage is flashed when a signed-in visitor lacks the role.
const NotAuthorizedMessage = "You are not authorized to view this page."

type Decision int

const (
	Checking Decision = iota
	RedirectLogin
	RedirectHome
	Allowed
)

func (d Decision) String() string {
	switch d {
	case Checking:
		return "checking"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	case Allowed:
		return "allowed"
	}
	return "unknown"
}

// CanAccess reports whether sess may open a view requiring one of required.
// With no required roles any signed-in visitor is accepted.
func CanAccess(sess *session.Session, required ...models.Role) bool {
	if sess == nil {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if sess.Role == r {
			return true
		}
	}
	return false
}

// Evaluate decides what a guarded view does. resolved is false until the
// session store has finished initializing.
func Evaluate(resolved bool, sess *session.Session, required ...models.Role) Decision {
	switch {
	case !resolved:
		return Checking
	case sess == nil:
		return RedirectLogin
	case !CanAccess(sess, required...):
		return RedirectHome
	}
	return Allowed
}

// Readiness reports whether sessions can be resolved yet.
type Readiness interface {
	Ready() bool
}

// Page guards an HTML route. Nothing of the protected page is written until
// the decision is Allowed.
func Page(store Readiness, required ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch Evaluate(store.Ready(), utils.GetSession(c), required...) {
		case Checking:
			c.Header("Retry-After", "1")
			c.Data(http.StatusServiceUnavailable, "text/html; charset=utf-8", []byte(placeholder))
			c.Abort()
		case RedirectLogin:
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
		case RedirectHome:
			flash := sessions.Default(c)
			flash.AddFlash(NotAuthorizedMessage)
			_ = flash.Save()
			c.Redirect(http.StatusFound, "/")
			c.Abort()
		default:
			c.Next()
		}
	}
}

// API guards a JSON route.
func API(store Readiness, required ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch Evaluate(store.Ready(), utils.GetSession(c), required...) {
		case Checking:
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Service is starting"})
		case RedirectLogin:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		case RedirectHome:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": NotAuthorizedMessage})
		default:
			c.Next()
		}
	}
}

const placeholder = `<!DOCTYPE html><html><head><meta http-equiv="refresh" content="1"><title>Loading</title></head><body><p class="checking">Loading...</p></body></html>`
