package app

import (
	"github.com/openlegis/openlegis-backend/internal/http/handlers"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

type Handlers struct {
	Health *handlers.HealthHandler
	Ingest *handlers.IngestHandler
	Bill   *handlers.BillHandler
}

func wireHandlers(r Repos, s Services, log *logger.Logger) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: handlers.NewHealthHandler(),
		Ingest: handlers.NewIngestHandler(s.Ingest, log),
		Bill:   handlers.NewBillHandler(r.Bill, r.Sponsor, r.Amendment, log),
	}
}
