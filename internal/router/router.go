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
	focusHandler *handler.FocusHandler,
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

	focus := api.Group("/focus")
	focus.Use(middleware.Auth(authService))
	focus.GET("/state", focusHandler.GetState)
	focus.POST("/start", focusHandler.Command("start"))
	focus.POST("/pause", focusHandler.Command("pause"))
	focus.POST("/resume", focusHandler.Command("resume"))
	focus.POST("/reset", focusHandler.Command("reset"))
	focus.POST("/end", focusHandler.Command("end"))
	focus.POST("/break-override", focusHandler.SetBreakOverride)
	focus.PUT("/settings", focusHandler.UpdateSettings)
	focus.GET("/history", focusHandler.GetHistory)
	focus.GET("/today", focusHandler.GetToday)
	focus.GET("/events", focusHandler.Events)

	return engine
}
