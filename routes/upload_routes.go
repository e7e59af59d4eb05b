package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/snap-point/gallery/guard"
	"github.com/snap-point/gallery/models"
)

func SetupUploadRoutes(api *gin.RouterGroup, d Dependencies) {
	api.POST("/uploads", guard.API(d.Sessions, models.RoleModerator, models.RoleAdmin), d.Upload.Upload)
}
