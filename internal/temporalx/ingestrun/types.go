// Package ingestrun holds the durable wrapper around one ingestion
// pass: a single-activity workflow so the run survives worker restarts
// and schedules get Temporal's overlap handling.
package ingestrun

import (
	"github.com/openlegis/openlegis-backend/internal/ingestion/orchestrator"
)

const (
	WorkflowName    = "ingest_run"
	ActivityExecute = "ingest_run_execute"
)

// Input selects the source and scope for one run.
type Input struct {
	SourceKind string              `json:"source_kind"`
	Params     orchestrator.Params `json:"params"`
}
