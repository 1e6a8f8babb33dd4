package ingest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RawPayloadLog is the append-only provenance trail: one row per ingested
// raw record, written even when the canonical entities were unchanged.
// Rows are immutable once inserted.
type RawPayloadLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	IngestType string         `gorm:"column:ingest_type;not null;index:idx_raw_payload_key,priority:1" json:"ingest_type"`
	ExternalID string         `gorm:"column:external_id;not null;index:idx_raw_payload_key,priority:2" json:"external_id"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt  time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (RawPayloadLog) TableName() string { return "raw_payload_log" }

// SourceCursor records how far ingestion has progressed for one source,
// so interrupted bulk runs resume without re-scanning ingested ranges.
type SourceCursor struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SourceKind string    `gorm:"column:source_kind;not null;uniqueIndex" json:"source_kind"`
	Position   string    `gorm:"column:position;not null" json:"position"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SourceCursor) TableName() string { return "source_cursor" }

const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCanceled  = "canceled"

	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// IngestRun is the persisted header for one orchestrator pass.
type IngestRun struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SourceKind string    `gorm:"column:source_kind;not null;index" json:"source_kind"`
	Trigger    string    `gorm:"column:trigger;not null" json:"trigger"`
	Status     string    `gorm:"column:status;not null;index" json:"status"`

	Params   datatypes.JSON `gorm:"column:params;type:jsonb" json:"params,omitempty"`
	Fetched  int            `gorm:"column:fetched;not null;default:0" json:"fetched"`
	Skipped  int            `gorm:"column:skipped;not null;default:0" json:"skipped"`
	Mapped   int            `gorm:"column:mapped;not null;default:0" json:"mapped"`
	Applied  int            `gorm:"column:applied;not null;default:0" json:"applied"`
	Failed   int            `gorm:"column:failed;not null;default:0" json:"failed"`
	Failures datatypes.JSON `gorm:"column:failures;type:jsonb" json:"failures,omitempty"`
	Error    string         `gorm:"column:error" json:"error,omitempty"`

	StartedAt  *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (IngestRun) TableName() string { return "ingest_run" }
