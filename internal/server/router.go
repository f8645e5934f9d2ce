package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/techpulse/techpulse-backend/internal/handlers"
)

type RouterConfig struct {
	PapersHandler   *handlers.PapersHandler
	InsightsHandler *handlers.InsightsHandler
	HealthHandler   *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/health", cfg.HealthHandler.Health)

	api := router.Group("/api")
	{
		papers := api.Group("/papers")
		{
			papers.GET("", cfg.PapersHandler.List)
			papers.GET("/stats", cfg.PapersHandler.Stats)
			papers.GET("/autocomplete", cfg.PapersHandler.Autocomplete)
			papers.POST("/batch", cfg.PapersHandler.Batch)
			papers.POST("/refresh", cfg.PapersHandler.Refresh)
			papers.GET("/:id", cfg.PapersHandler.Get)
		}

		insights := api.Group("/insights")
		{
			insights.GET("/technologies", cfg.InsightsHandler.Technologies)
			insights.GET("/industries", cfg.InsightsHandler.Industries)
			insights.GET("/emerging", cfg.InsightsHandler.Emerging)
			insights.GET("/predictions", cfg.InsightsHandler.Predictions)
			insights.GET("/leader-quotes", cfg.InsightsHandler.LeaderQuotes)
			insights.GET("/meta-narrative", cfg.InsightsHandler.MetaNarrative)
			insights.GET("/combined-signal", cfg.InsightsHandler.CombinedSignal)
		}
	}

	return router
}
