package controllers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/audit"
	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/session"
	"github.com/snap-point/gallery/utils"
)

type SettingsStore interface {
	Settings() models.SiteSettings
	SetMaintenanceMode(ctx context.Context, on bool) (models.SiteSettings, error)
	UpdateCustomization(ctx context.Context, c session.Customization) (models.SiteSettings, error)
}

type AdminController struct {
	Settings SettingsStore
	Audit    *audit.Recorder
}

func NewAdminController(settings SettingsStore, recorder *audit.Recorder) *AdminController {
	return &AdminController{Settings: settings, Audit: recorder}
}

func (ac *AdminController) SetMaintenance(c *gin.Context) {
	var input struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "enabled is required.")
		return
	}

	settings, err := ac.Settings.SetMaintenanceMode(c.Request.Context(), *input.Enabled)
	if err != nil {
		respondError(c, err)
		return
	}

	action := models.ActionMaintenanceModeDisabled
	if *input.Enabled {
		action = models.ActionMaintenanceModeEnabled
	}
	ac.Audit.Record(c.Request.Context(), action, utils.UserID(c), nil)
	respondOK(c, http.StatusOK, settings)
}

func (ac *AdminController) UpdateCustomization(c *gin.Context) {
	var input session.Customization
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid customization.")
		return
	}
	input.FooterText = strings.TrimSpace(input.FooterText)
	input.LogoURL = strings.TrimSpace(input.LogoURL)
	if err := validateLogoURL(input.LogoURL); err != nil {
		respondError(c, err)
		return
	}

	before := ac.Settings.Settings()
	settings, err := ac.Settings.UpdateCustomization(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	ac.Audit.Record(c.Request.Context(), models.ActionCustomizationUpdated, utils.UserID(c), audit.Details{
		"changed": changedFields(before, settings),
	})
	respondOK(c, http.StatusOK, settings)
}

func (ac *AdminController) Logs(c *gin.Context) {
	page, err := ac.Audit.List(c.Request.Context(), utils.QueryInt(c, "page", 1))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    page.Entries,
		Pagination: &PaginationMeta{
			CurrentPage: page.Page,
			PageSize:    page.PageSize,
			TotalItems:  page.Total,
			TotalPages:  page.TotalPages,
		},
	})
}

func validateLogoURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.Invalid("logo_url", "Logo URL must be an http or https address.")
	}
	return nil
}

func changedFields(before, after models.SiteSettings) []string {
	changed := []string{}
	if before.CustomCSS != after.CustomCSS {
		changed = append(changed, "custom_css")
	}
	if before.FooterText != after.FooterText {
		changed = append(changed, "footer_text")
	}
	if before.LogoURL != after.LogoURL {
		changed = append(changed, "logo_url")
	}
	return changed
}
