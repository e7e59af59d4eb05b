package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type EmailChecker interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

type ValidationController struct {
	Emails EmailChecker
}

func NewValidationController(emails EmailChecker) *ValidationController {
	return &ValidationController{Emails: emails}
}

// ValidateEmail reports whether an email can still be used to sign up.
func (vc *ValidationController) ValidateEmail(c *gin.Context) {
	email := strings.TrimSpace(c.Param("email"))
	if !strings.Contains(email, "@") {
		badRequest(c, "A valid email address is required.")
		return
	}

	exists, err := vc.Emails.EmailExists(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"exists": exists, "available": !exists})
}
