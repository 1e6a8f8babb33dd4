package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openlegis/openlegis-backend/internal/clients/redis"
	"github.com/openlegis/openlegis-backend/internal/data/repos"
	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/orchestrator"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
	"github.com/openlegis/openlegis-backend/internal/pkg/errs"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

// Launcher starts a durable ingestion run out of process. Implemented by
// the temporal client wrapper.
type Launcher interface {
	LaunchIngestRun(ctx context.Context, kind string, params orchestrator.Params) (string, error)
}

type IngestService interface {
	// Start guards against an overlapping run for the source, then hands
	// the run to the durable launcher. Returns the workflow id.
	Start(ctx context.Context, kind source.Kind, params orchestrator.Params) (string, error)
	// Execute runs the pipeline inline. Called from the worker activity
	// and the backfill CLI.
	Execute(ctx context.Context, kind source.Kind, params orchestrator.Params) (*orchestrator.RunSummary, error)
	GetRun(ctx context.Context, id uuid.UUID) (*types.IngestRun, error)
	ListRuns(ctx context.Context, kind string, limit int) ([]*types.IngestRun, error)
}

type ingestService struct {
	orch     *orchestrator.Orchestrator
	runs     repos.IngestRunRepo
	launcher Launcher
	bus      redis.RunBus
	log      *logger.Logger
}

// NewIngestService wires the run surface. launcher and bus may be nil:
// without a launcher Start degrades to inline execution, without a bus
// no events are published.
func NewIngestService(
	orch *orchestrator.Orchestrator,
	runs repos.IngestRunRepo,
	launcher Launcher,
	bus redis.RunBus,
	baseLog *logger.Logger,
) IngestService {
	return &ingestService{
		orch:     orch,
		runs:     runs,
		launcher: launcher,
		bus:      bus,
		log:      baseLog.With("service", "IngestService"),
	}
}

func (s *ingestService) Start(ctx context.Context, kind source.Kind, params orchestrator.Params) (string, error) {
	if !source.ValidKind(kind) {
		return "", fmt.Errorf("%w: unknown source kind %q", errs.ErrInvalidArgument, kind)
	}
	active, err := s.runs.HasActiveRun(dbctx.New(ctx), string(kind))
	if err != nil {
		return "", err
	}
	if active {
		return "", errs.ErrRunActive
	}

	if s.launcher == nil {
		summary, err := s.Execute(ctx, kind, params)
		if err != nil {
			return "", err
		}
		return summary.RunID.String(), nil
	}
	return s.launcher.LaunchIngestRun(ctx, string(kind), params)
}

func (s *ingestService) Execute(ctx context.Context, kind source.Kind, params orchestrator.Params) (*orchestrator.RunSummary, error) {
	summary, err := s.orch.Run(ctx, kind, params)
	if summary != nil {
		s.publish(summary, err)
	}
	return summary, err
}

func (s *ingestService) publish(summary *orchestrator.RunSummary, runErr error) {
	if s.bus == nil {
		return
	}
	status := types.RunStatusCompleted
	if runErr != nil {
		status = types.RunStatusFailed
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.bus.Publish(ctx, redis.RunEvent{
		RunID:      summary.RunID.String(),
		SourceKind: summary.SourceKind,
		Status:     status,
		Applied:    summary.Applied,
		Failed:     summary.Failed,
	}); err != nil {
		s.log.Warn("run event publish failed", "run_id", summary.RunID.String(), "error", err)
	}
}

func (s *ingestService) GetRun(ctx context.Context, id uuid.UUID) (*types.IngestRun, error) {
	run, err := s.runs.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, errs.ErrNotFound
	}
	return run, nil
}

func (s *ingestService) ListRuns(ctx context.Context, kind string, limit int) ([]*types.IngestRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.runs.List(dbctx.New(ctx), kind, limit)
}
