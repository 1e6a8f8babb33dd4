package ingestrun

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/orchestrator"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
	"github.com/openlegis/openlegis-backend/internal/services"
)

type Activities struct {
	Log    *logger.Logger
	Ingest services.IngestService
}

// Execute drives the orchestrator inline, heartbeating so a stuck
// worker is detected by the server rather than by the 4h timeout.
func (a *Activities) Execute(ctx context.Context, in Input) (*orchestrator.RunSummary, error) {
	if a == nil || a.Ingest == nil {
		return nil, fmt.Errorf("ingestrun: activity not configured")
	}
	if in.Params.Trigger == "" {
		in.Params.Trigger = types.TriggerScheduled
	}

	stop := startHeartbeat(ctx)
	defer stop()

	return a.Ingest.Execute(ctx, source.Kind(in.SourceKind), in.Params)
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
