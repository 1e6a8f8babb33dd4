package ingestrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/openlegis/openlegis-backend/internal/ingestion/orchestrator"
)

// Workflow runs one ingestion pass as a single long activity. Item
// retries and failure isolation happen inside the orchestrator; at this
// level only infrastructure failures are retried, a couple of times,
// because a run that cannot list its source at all usually heals.
func Workflow(ctx workflow.Context, in Input) (*orchestrator.RunSummary, error) {
	if strings.TrimSpace(in.SourceKind) == "" {
		return nil, fmt.Errorf("ingestrun: missing source_kind")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 4 * time.Hour,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 30 * time.Second,
			MaximumInterval: 5 * time.Minute,
			MaximumAttempts: 3,
		},
	})

	var summary orchestrator.RunSummary
	if err := workflow.ExecuteActivity(ctx, ActivityExecute, in).Get(ctx, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
