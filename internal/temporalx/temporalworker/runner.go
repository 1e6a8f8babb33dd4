// Package temporalworker polls the ingest task queue and executes run
// workflows/activities.
package temporalworker

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/openlegis/openlegis-backend/internal/pkg/envutil"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
	"github.com/openlegis/openlegis-backend/internal/services"
	"github.com/openlegis/openlegis-backend/internal/temporalx"
	"github.com/openlegis/openlegis-backend/internal/temporalx/ingestrun"
)

type Runner struct {
	log    *logger.Logger
	tc     temporalsdkclient.Client
	ingest services.IngestService
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, ingest services.IngestService) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if ingest == nil {
		return nil, fmt.Errorf("temporal worker missing ingest service")
	}
	return &Runner{log: log, tc: tc, ingest: ingest}, nil
}

// Start brings up the worker with a bounded retry loop, then stops it
// when ctx is canceled.
func (r *Runner) Start(ctx context.Context) error {
	cfg := temporalx.LoadConfig()
	r.log.Info("starting temporal worker",
		"namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	maxWait := 60 * time.Second
	backoff := 250 * time.Millisecond
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w := r.newWorker(cfg)
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("temporal worker started", "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		if time.Now().After(deadline) {
			return startErr
		}
		r.log.Warn("temporal worker failed to start; retrying",
			"attempt", attempt, "error", startErr)
		time.Sleep(backoff)
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
}

func (r *Runner) newWorker(cfg temporalx.Config) worker.Worker {
	concurrency := envutil.GetEnvAsInt("WORKER_CONCURRENCY", 4, r.log)
	if concurrency < 1 {
		concurrency = 1
	}

	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &ingestrun.Activities{Log: r.log, Ingest: r.ingest}
	w.RegisterWorkflowWithOptions(ingestrun.Workflow, workflow.RegisterOptions{Name: ingestrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Execute, activity.RegisterOptions{Name: ingestrun.ActivityExecute})
	return w
}
