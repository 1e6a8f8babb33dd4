package temporalx

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/openlegis/openlegis-backend/internal/ingestion/orchestrator"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
	"github.com/openlegis/openlegis-backend/internal/temporalx/ingestrun"
)

// Launcher starts ingest_run workflows. One workflow id per source kind
// keeps manual triggers from overlapping a run already in flight.
type Launcher struct {
	tc  temporalsdkclient.Client
	cfg Config
	log *logger.Logger
}

func NewLauncher(tc temporalsdkclient.Client, log *logger.Logger) (*Launcher, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	return &Launcher{
		tc:  tc,
		cfg: LoadConfig(),
		log: log.With("component", "IngestLauncher"),
	}, nil
}

func (l *Launcher) LaunchIngestRun(ctx context.Context, kind string, params orchestrator.Params) (string, error) {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                                       "ingest-" + kind,
		TaskQueue:                                l.cfg.TaskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	in := ingestrun.Input{SourceKind: kind, Params: params}
	run, err := l.tc.ExecuteWorkflow(ctx, opts, ingestrun.WorkflowName, in)
	if err != nil {
		return "", fmt.Errorf("launch ingest run: %w", err)
	}
	l.log.Info("ingest run launched", "source_kind", kind, "workflow_id", run.GetID())
	return run.GetID(), nil
}
