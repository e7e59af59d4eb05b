package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/snap-point/gallery/guard"
)

func SetupInteractionRoutes(api *gin.RouterGroup, d Dependencies) {
	media := api.Group("/media/:id")
	{
		media.GET("/comments", d.Interaction.ListComments)
		media.POST("/comments", guard.API(d.Sessions), d.Interaction.AddComment)
		media.GET("/like", d.Interaction.GetLike)
		media.POST("/like", guard.API(d.Sessions), d.Interaction.ToggleLike)
	}
}
