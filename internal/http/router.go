package http

import (
	"github.com/gin-gonic/gin"

	"github.com/openlegis/openlegis-backend/internal/http/handlers"
	"github.com/openlegis/openlegis-backend/internal/http/middleware"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log           *logger.Logger
	HealthHandler *handlers.HealthHandler
	IngestHandler *handlers.IngestHandler
	BillHandler   *handlers.BillHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	if cfg.Log != nil {
		r.Use(middleware.RequestLogger(cfg.Log))
	}

	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.IngestHandler != nil {
		api.POST("/ingest/runs", cfg.IngestHandler.StartRun)
		api.GET("/ingest/runs", cfg.IngestHandler.ListRuns)
		api.GET("/ingest/runs/:id", cfg.IngestHandler.GetRun)
	}
	if cfg.BillHandler != nil {
		api.GET("/bills/:source/:session/:base", cfg.BillHandler.GetBill)
	}

	return r
}
