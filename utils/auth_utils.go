package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snap-point/gallery/session"
)

type contextKey string

const SessionContextKey contextKey = "session"

func SetSession(c *gin.Context, sess *session.Session) {
	c.Set(string(SessionContextKey), sess)
}

// GetSession returns the resolved session, or nil for anonymous visitors.
func GetSession(c *gin.Context) *session.Session {
	v, exists := c.Get(string(SessionContextKey))
	if !exists {
		return nil
	}
	if sess, ok := v.(*session.Session); ok {
		return sess
	}
	return nil
}

// UserID is uuid.Nil for anonymous visitors.
func UserID(c *gin.Context) uuid.UUID {
	if sess := GetSession(c); sess != nil {
		return sess.UserID
	}
	return uuid.Nil
}
