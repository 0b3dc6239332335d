package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusflow/backend/internal/handler"
	"focusflow/backend/internal/middleware"
	"focusflow/backend/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	sessionHandler *handler.SessionHandler,
	eventsHandler *handler.EventsHandler,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.Auth(authService))

	sessions := authed.Group("/sessions")
	sessions.POST("/start", sessionHandler.Start)
	sessions.POST("/:id/pause", sessionHandler.Pause)
	sessions.POST("/:id/resume", sessionHandler.Resume)
	sessions.POST("/:id/stop", sessionHandler.Stop)
	sessions.GET("/active", sessionHandler.Active)
	sessions.GET("/history", sessionHandler.History)
	sessions.GET("/stats/today", sessionHandler.StatsToday)

	authed.GET("/breaks/next", sessionHandler.NextBreak)
	authed.GET("/events", eventsHandler.Stream)

	return engine
}
