package repos

import (
	"github.com/openlegis/openlegis-backend/internal/data/repos/ingest"
	"github.com/openlegis/openlegis-backend/internal/data/repos/legis"
)

type BillRepo = legis.BillRepo
type SponsorRepo = legis.SponsorRepo
type AmendmentRepo = legis.AmendmentRepo
type MemberRepo = legis.MemberRepo
type FederalMemberRepo = legis.FederalMemberRepo
type TranscriptRepo = legis.TranscriptRepo

type RawPayloadLogRepo = ingest.RawPayloadLogRepo
type SourceCursorRepo = ingest.SourceCursorRepo
type IngestRunRepo = ingest.IngestRunRepo

var NewBillRepo = legis.NewBillRepo
var NewSponsorRepo = legis.NewSponsorRepo
var NewAmendmentRepo = legis.NewAmendmentRepo
var NewMemberRepo = legis.NewMemberRepo
var NewFederalMemberRepo = legis.NewFederalMemberRepo
var NewTranscriptRepo = legis.NewTranscriptRepo

var NewRawPayloadLogRepo = ingest.NewRawPayloadLogRepo
var NewSourceCursorRepo = ingest.NewSourceCursorRepo
var NewIngestRunRepo = ingest.NewIngestRunRepo
