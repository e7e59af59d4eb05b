package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/snap-point/gallery/guard"
	"github.com/snap-point/gallery/models"
)

func SetupPageRoutes(r *gin.Engine, d Dependencies) {
	pages := d.Pages
	r.GET("/", pages.Index)
	r.GET("/search", pages.Search)
	r.GET("/login", pages.Login)
	r.GET("/signup", pages.Signup)
	r.GET(guard.MaintenancePath, pages.Maintenance)

	r.GET("/account", guard.Page(d.Sessions), pages.Account)
	r.GET("/moderator", guard.Page(d.Sessions, models.RoleModerator, models.RoleAdmin), pages.Moderator)
	r.GET("/admin", guard.Page(d.Sessions, models.RoleAdmin), pages.Admin)
}
