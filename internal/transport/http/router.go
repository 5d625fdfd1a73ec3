package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/ddmitrenko/crossposter/internal/handlers"
)

type Deps struct {
	JWTSecret []byte

	AuthHandler      *handlers.AuthHandler
	ConnectHandler   *handlers.ConnectHandler
	PublishHandler   *handlers.PublishHandler
	AnalyticsHandler *handlers.AnalyticsHandler
	SearchHandler    *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	requireAuth := handlers.RequireAuth(d.JWTSecret)

	auth := e.Group("/auth")

	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout, requireAuth)
	auth.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	auth.POST("/resend-otp", d.AuthHandler.ResendOTP)
	auth.POST("/reset-password", d.AuthHandler.ResetPassword)
	auth.GET("/profile", d.AuthHandler.Profile, requireAuth)

	auth.GET("/google", d.ConnectHandler.GoogleLogin)
	auth.GET("/google/callback", d.ConnectHandler.GoogleCallback)
	auth.GET("/facebook", d.ConnectHandler.FacebookLogin)
	auth.GET("/facebook/callback", d.ConnectHandler.FacebookCallback)
	auth.GET("/linkedin", d.ConnectHandler.LinkedInLogin)
	auth.GET("/linkedin/callback", d.ConnectHandler.LinkedInCallback)

	auth.GET("/youtube", d.ConnectHandler.YouTubeConnect, requireAuth)
	auth.GET("/youtube/callback", d.ConnectHandler.YouTubeCallback)
	auth.GET("/twitter", d.ConnectHandler.TwitterConnect, requireAuth)
	auth.GET("/twitter/callback", d.ConnectHandler.TwitterCallback)

	auth.POST("/twitter/post", d.PublishHandler.TwitterPost, requireAuth)

	e.POST("/facebook/post", d.PublishHandler.FacebookPost, requireAuth)
	e.POST("/youtube/upload-video", d.PublishHandler.YouTubeUpload, requireAuth)
	e.POST("/linkedin/post", d.PublishHandler.LinkedInPost, requireAuth)

	e.GET("/youtube-analytics", d.AnalyticsHandler.YouTubeAnalytics, requireAuth)

	v1 := e.Group("/api/v1", requireAuth)

	v1.GET("/posts/search", d.SearchHandler.Search)
}
