package routes

import "github.com/gin-gonic/gin"

func SetupAuthRoutes(api *gin.RouterGroup, d Dependencies) {
	auth := api.Group("/auth")
	{
		auth.POST("/signup", d.Auth.SignUp)
		auth.POST("/login", d.Auth.Login)
		auth.POST("/refresh", d.Auth.Refresh)
		auth.POST("/logout", d.Auth.Logout)
		auth.GET("/session", d.Auth.Session)
		auth.GET("/google", d.Auth.GoogleRedirect)
		auth.GET("/callback", d.Auth.GoogleCallback)
		auth.GET("/email/:email", d.Validation.ValidateEmail)
	}
	api.GET("/settings", d.Settings.Get)
}
