package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/gallery/apperrors"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, StandardResponse{Success: true, Data: data})
}

// respondError answers with the status and client-safe message for err.
// Server-side failures are attached to the context for the request logger.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		c.Error(err)
	}
	c.JSON(status, StandardResponse{Success: false, Message: apperrors.PublicMessage(err)})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, StandardResponse{Success: false, Message: message})
}
