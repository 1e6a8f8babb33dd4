package domain

import (
	"github.com/openlegis/openlegis-backend/internal/domain/ingest"
	"github.com/openlegis/openlegis-backend/internal/domain/legis"
)

type (
	Bill           = legis.Bill
	BillAction     = legis.BillAction
	ActionIdentity = legis.ActionIdentity
	Sponsor        = legis.Sponsor
	BillSponsor    = legis.BillSponsor
	Amendment      = legis.Amendment
	Member         = legis.Member
	FederalMember  = legis.FederalMember
	Transcript     = legis.Transcript

	RawPayloadLog = ingest.RawPayloadLog
	SourceCursor  = ingest.SourceCursor
	IngestRun     = ingest.IngestRun
)

const (
	SourceState   = legis.SourceState
	SourceFederal = legis.SourceFederal

	RunStatusQueued    = ingest.RunStatusQueued
	RunStatusRunning   = ingest.RunStatusRunning
	RunStatusCompleted = ingest.RunStatusCompleted
	RunStatusFailed    = ingest.RunStatusFailed
	RunStatusCanceled  = ingest.RunStatusCanceled

	TriggerManual    = ingest.TriggerManual
	TriggerScheduled = ingest.TriggerScheduled
)
