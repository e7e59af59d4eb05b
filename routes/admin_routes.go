package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/snap-point/gallery/guard"
	"github.com/snap-point/gallery/models"
)

func SetupAdminRoutes(api *gin.RouterGroup, d Dependencies) {
	admin := api.Group("/admin")
	admin.Use(guard.API(d.Sessions, models.RoleAdmin))
	{
		admin.PUT("/settings/maintenance", d.Admin.SetMaintenance)
		admin.PUT("/settings/customization", d.Admin.UpdateCustomization)
		admin.GET("/logs", d.Admin.Logs)
	}
}
