package routes

import "github.com/gin-gonic/gin"

func SetupMediaRoutes(api *gin.RouterGroup, d Dependencies) {
	media := api.Group("/media")
	{
		media.GET("", d.Media.List)
		media.GET("/search", d.Media.Search)
		media.GET("/:id", d.Media.Detail)
	}
}
