package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/deskchat/deskchat/internal/auth"
	"github.com/deskchat/deskchat/internal/chat"
	"github.com/deskchat/deskchat/internal/config"
	"github.com/deskchat/deskchat/internal/store"
)

// NewServer builds the HTTP server: auth endpoints, room API, and the
// websocket chat endpoint.
func NewServer(deps chat.Deps, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", healthHandler)

	authHandlers := NewAuthHandlers(authService, logger)
	engine.POST("/api/auth/register", authHandlers.Register)
	engine.POST("/api/auth/login", authHandlers.Login)
	engine.POST("/api/auth/guest", authHandlers.Guest)

	roomHandlers := NewRoomHandlers(st, deps.Presence, logger)
	api := engine.Group("/api", AuthMiddleware(authService, logger))
	api.POST("/rooms/:token", roomHandlers.CreateRoom)
	api.GET("/rooms/:token", roomHandlers.GetRoom)
	api.GET("/rooms/:token/messages", roomHandlers.ListMessages)
	api.GET("/rooms/:token/presence", roomHandlers.Presence)

	wsHandler := NewWSHandler(deps, logger)
	engine.GET("/ws/:room", AuthMiddleware(authService, logger), wsHandler.Serve)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
