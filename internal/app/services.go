package app

import (
	"gorm.io/gorm"

	"github.com/openlegis/openlegis-backend/internal/ingestion/dedup"
	"github.com/openlegis/openlegis-backend/internal/ingestion/merge"
	"github.com/openlegis/openlegis-backend/internal/ingestion/orchestrator"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
	"github.com/openlegis/openlegis-backend/internal/services"
)

type Services struct {
	Orchestrator *orchestrator.Orchestrator
	Merge        merge.Service
	Ingest       services.IngestService
}

func wireServices(
	db *gorm.DB,
	cfg Config,
	clients Clients,
	r Repos,
	launcher services.Launcher,
	log *logger.Logger,
) Services {
	log.Info("Wiring services...")

	gate := dedup.NewGate(r.RawPayloadLog, r.Transcript, log)

	var embedder merge.Embedder
	if clients.OpenAI != nil {
		embedder = clients.OpenAI
	}
	mergeSvc := merge.NewService(merge.Deps{
		DB:             db,
		Bills:          r.Bill,
		Sponsors:       r.Sponsor,
		Amendments:     r.Amendment,
		Members:        r.Member,
		FederalMembers: r.FederalMember,
		Transcripts:    r.Transcript,
		RawLog:         r.RawPayloadLog,
		Embedder:       embedder,
	}, log)

	orch := orchestrator.New(orchestrator.Deps{
		Clients: clients.Fetch,
		Gate:    gate,
		Merge:   mergeSvc,
		Runs:    r.IngestRun,
		Cursors: r.SourceCursor,
		Workers: cfg.Workers,
	}, log)

	ingestSvc := services.NewIngestService(orch, r.IngestRun, launcher, clients.RunBus, log)

	return Services{
		Orchestrator: orch,
		Merge:        mergeSvc,
		Ingest:       ingestSvc,
	}
}
