// Package mapper translates raw source records into canonical entity
// bundles. One mapping function exists per source kind, selected by the
// record's identity tag; each is pure and independently testable.
package mapper

import (
	"time"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/fetch"
	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
)

// EntitySet is the self-contained bundle produced by one Map call,
// ready for a single merge transaction. Exactly one of Bill, Member,
// FederalMember, Transcript is set.
type EntitySet struct {
	IngestType string
	ExternalID string
	RawPayload []byte

	Bill          *BillBundle
	Member        *types.Member
	FederalMember *types.FederalMember
	Transcript    *types.Transcript
}

// BillBundle carries mapped bill fields. Optional scalars are pointers:
// nil means "this source pass did not supply the field", which the merge
// layer must never turn into an overwrite.
type BillBundle struct {
	BasePrintNo string
	Session     int
	Source      string

	BillType       *string
	ActiveVersion  *string
	Title          *string
	Summary        *string
	Status         *string
	StatusDate     *time.Time
	IntroducedDate *time.Time
	FullText       *string

	Actions    []ActionInput
	Sponsors   []SponsorInput
	Amendments []AmendmentInput
}

type ActionInput struct {
	PrintNo string
	Date    time.Time
	Chamber string
	Text    string
	Type    string
	// SequenceNo is the source-supplied ordering, zero when the source
	// does not sequence its actions.
	SequenceNo int
}

type SponsorInput struct {
	MemberExtID string
	FullName    string
}

type AmendmentInput struct {
	Version    string
	Memo       *string
	LawSection *string
	LawCode    *string
	FullText   *string
	Stricken   *bool
	UniBill    *bool
}

// Map dispatches on the record's source kind.
func Map(rec *fetch.RawRecord) (*EntitySet, error) {
	if rec == nil {
		return nil, &ingesterr.MappingError{Field: "record", Reason: "nil raw record"}
	}
	switch rec.Identity.Kind {
	case source.KindStateBulkXML:
		return mapStateBulk(rec)
	case source.KindFederalBulkXML:
		return mapFederalBulk(rec)
	case source.KindFederalMembers:
		return mapFederalMember(rec)
	case source.KindFeed:
		return mapFeedEntry(rec)
	default:
		return nil, &ingesterr.MappingError{Field: "kind", Reason: "no mapper for source kind " + string(rec.Identity.Kind)}
	}
}
