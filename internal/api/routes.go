package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/gridstake/backend/internal/api/handlers"
	"github.com/gridstake/backend/internal/config"
	"github.com/gridstake/backend/internal/economics"
	"github.com/gridstake/backend/internal/middleware"
	"github.com/gridstake/backend/internal/settlement"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, rdb *redis.Client, cfg *config.Config, calc *economics.Calculator, verifier *settlement.Verifier) {
	// No-cache middleware for development
	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)
		v1.GET("/config", handlers.GetConfig(cfg, calc, verifier))

		// Session ledger
		v1.POST("/session", handlers.OpenSession(db, cfg))
		v1.GET("/session/check", handlers.CheckSession(db, cfg))
		v1.PUT("/session/:id", handlers.UpdateSession(db, rdb, cfg, calc, verifier))

		// Settlement
		settle := v1.Group("/settlement")
		{
			settle.GET("/outstanding", handlers.GetOutstanding(db, calc, verifier))
			settle.POST("/complete", handlers.CompleteSettlement(db, calc, verifier))
		}

		// Head-to-head matches
		pvp := v1.Group("/pvp")
		{
			pvp.POST("/create", handlers.CreateMatch(db))
			pvp.POST("/join", handlers.JoinMatch(db, rdb))
			pvp.POST("/move", handlers.MoveMatch(db, rdb))
			pvp.GET("/:id", handlers.GetMatch(db))
			pvp.GET("/:id/ws", middleware.WebSocketCORSCheck(cfg), handlers.WatchMatch(db))
		}

		// Tournament brackets
		bracket := v1.Group("/bracket")
		{
			bracket.POST("/create", handlers.CreateBracket(db))
			bracket.POST("/join", handlers.JoinBracket(db))
			bracket.POST("/report", handlers.ReportBracketMatch(db))
			bracket.GET("/:id", handlers.GetBracket(db))
		}
	}
}
