package http

import (
	"github.com/gin-gonic/gin"

	"github.com/panyu/myblog/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	handlers := NewAuthHandlers(authService)

	router.GET("/healthz", handlers.Healthz)

	captcha := router.Group("/captcha")
	{
		captcha.GET("/image", handlers.ImageCaptcha)
		captcha.POST("/send", handlers.SendEmailCode)
	}

	user := router.Group("/user")
	{
		user.POST("/login", handlers.Login)
		user.POST("/admin-login", handlers.AdminLogin)
		user.POST("/register", handlers.Register)
		user.GET("/check-username", handlers.CheckUsername)
		user.GET("/check-email", handlers.CheckEmail)
		user.POST("/forgot-password/send-code", handlers.ForgotPasswordSendCode)
		user.POST("/forgot-password/reset", handlers.ForgotPasswordReset)
	}

	// Protected routes
	protected := router.Group("/user")
	protected.Use(RequireIdentity(authService))
	{
		protected.POST("/logout", handlers.Logout)
		protected.GET("/info", handlers.Info)
		protected.POST("/change-password", handlers.ChangePassword)
	}

	return router
}
