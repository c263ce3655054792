package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cnogradi/training-consolidation-workbench/internal/handlers"
)

type RouterConfig struct {
	IngestHandler    *handlers.IngestHandler
	HarmonizeHandler *handlers.HarmonizeHandler
	GenerateHandler  *handlers.GenerateHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", handlers.HealthCheck)

	v1 := router.Group("/v1")
	{
		v1.POST("/courses/:id/ingest", cfg.IngestHandler.IngestCourse)
		v1.POST("/harmonize", cfg.HarmonizeHandler.Harmonize)
		v1.POST("/projects/generate", cfg.GenerateHandler.GenerateProject)
	}

	return router
}
