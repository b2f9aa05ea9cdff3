package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/playpong/backend/internal/api/handlers"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/matchmaking"
	"github.com/playpong/backend/internal/middleware"
	"github.com/playpong/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, cfg *config.Config,
	matchSvc *matchmaking.Service, hub *ws.Hub, names matchmaking.NameResolver) {

	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.WebSocketCORSCheck(cfg))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		if cfg.Environment != "production" {
			v1.POST("/auth/dev-token", handlers.DevToken(db, cfg))
		}

		mm := v1.Group("/matchmaking")
		mm.Use(handlers.RequireUser(cfg))
		{
			mm.POST("/start", handlers.StartMatchmaking(matchSvc))
			mm.POST("/invite", handlers.InviteMatchmaking(matchSvc))
			mm.GET("/access", handlers.CheckAccess(matchSvc))
		}

		game := v1.Group("/game")
		game.Use(handlers.RequireUser(cfg))
		{
			game.GET("/:room/ws", ws.HandleWebSocket(hub, matchSvc, names))
		}
	}
}
