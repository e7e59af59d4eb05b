package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/gallery/models"
)

type SettingsReader interface {
	Settings() models.SiteSettings
}

type SettingsController struct {
	Settings SettingsReader
}

func NewSettingsController(settings SettingsReader) *SettingsController {
	return &SettingsController{Settings: settings}
}

// Get returns the public site settings.
func (sc *SettingsController) Get(c *gin.Context) {
	respondOK(c, http.StatusOK, sc.Settings.Settings())
}
