package temporalx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"gopkg.in/yaml.v3"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/orchestrator"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
	"github.com/openlegis/openlegis-backend/internal/temporalx/ingestrun"
)

// ScheduleSpec is one recurring ingestion, from the schedules YAML file.
// Either interval or cron must be set.
type ScheduleSpec struct {
	SourceKind string `yaml:"source_kind"`
	Interval   string `yaml:"interval,omitempty"`
	Cron       string `yaml:"cron,omitempty"`
	Limit      int    `yaml:"limit,omitempty"`
}

type schedulesFile struct {
	Schedules []ScheduleSpec `yaml:"schedules"`
}

// LoadSchedules reads the schedules file. A missing path means no
// recurring ingestion is configured.
func LoadSchedules(path string) ([]ScheduleSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedules config: %w", err)
	}
	var f schedulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse schedules config: %w", err)
	}
	for _, s := range f.Schedules {
		if !source.ValidKind(source.Kind(s.SourceKind)) {
			return nil, fmt.Errorf("schedules config: unknown source kind %q", s.SourceKind)
		}
		if s.Interval == "" && s.Cron == "" {
			return nil, fmt.Errorf("schedules config: %s needs interval or cron", s.SourceKind)
		}
	}
	return f.Schedules, nil
}

// EnsureSchedules registers one Temporal schedule per configured source. Overlap
// policy is SKIP: a tick that fires while the previous run is still in
// flight for that source is dropped, not queued.
func EnsureSchedules(ctx context.Context, tc temporalsdkclient.Client, specs []ScheduleSpec, log *logger.Logger) error {
	if tc == nil || len(specs) == 0 {
		return nil
	}
	cfg := LoadConfig()
	sc := tc.ScheduleClient()

	for _, spec := range specs {
		scheduleSpec := temporalsdkclient.ScheduleSpec{}
		if spec.Interval != "" {
			every, err := time.ParseDuration(spec.Interval)
			if err != nil {
				return fmt.Errorf("schedule %s: bad interval %q: %w", spec.SourceKind, spec.Interval, err)
			}
			scheduleSpec.Intervals = []temporalsdkclient.ScheduleIntervalSpec{{Every: every}}
		}
		if spec.Cron != "" {
			scheduleSpec.CronExpressions = []string{spec.Cron}
		}

		_, err := sc.Create(ctx, temporalsdkclient.ScheduleOptions{
			ID:      "ingest-sched-" + spec.SourceKind,
			Spec:    scheduleSpec,
			Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
			Action: &temporalsdkclient.ScheduleWorkflowAction{
				ID:        "ingest-" + spec.SourceKind,
				Workflow:  ingestrun.WorkflowName,
				TaskQueue: cfg.TaskQueue,
				Args: []interface{}{ingestrun.Input{
					SourceKind: spec.SourceKind,
					Params: orchestrator.Params{
						Trigger: types.TriggerScheduled,
						Limit:   spec.Limit,
					},
				}},
			},
		})
		if err != nil {
			if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
				log.Info("schedule already registered", "source_kind", spec.SourceKind)
				continue
			}
			return fmt.Errorf("create schedule for %s: %w", spec.SourceKind, err)
		}
		log.Info("schedule registered",
			"source_kind", spec.SourceKind, "interval", spec.Interval, "cron", spec.Cron)
	}
	return nil
}
