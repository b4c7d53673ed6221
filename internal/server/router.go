package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"heartlink-server/internal/auth"
	"heartlink-server/internal/handler"
	"heartlink-server/internal/hub"
	"heartlink-server/internal/middleware"
	"heartlink-server/internal/store"
)

type Deps struct {
	Store       *store.Store
	TokenConfig auth.TokenConfig
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	accountLimiter := middleware.NewRateLimiter(10, time.Minute)
	accountHandler := &handler.AccountHandler{Store: deps.Store, TokenConfig: deps.TokenConfig}

	account := r.Group("/v1/account")
	account.Use(middleware.RateLimitMiddleware(accountLimiter))
	account.POST("/register", accountHandler.Register)
	account.POST("/login", accountHandler.Login)

	protected := r.Group("/v1")
	protected.Use(middleware.RequireAuth(deps.TokenConfig))

	messageHandler := &handler.MessageHandler{Store: deps.Store}
	protected.GET("/messages/thread/:username", messageHandler.Thread)
	protected.DELETE("/messages/:id", messageHandler.Delete)

	userHandler := &handler.UserHandler{Store: deps.Store}
	protected.GET("/users", userHandler.List)

	registry := hub.NewRegistry()
	groups := hub.NewGroupTracker()

	presenceHandler := &handler.PresenceHandler{Registry: registry, Store: deps.Store, TokenConfig: deps.TokenConfig}
	r.GET("/ws/presence", presenceHandler.Serve)

	chatHandler := &handler.ChatHandler{Registry: registry, Groups: groups, Store: deps.Store, TokenConfig: deps.TokenConfig}
	r.GET("/ws/messages", chatHandler.Serve)

	return r
}
