// Package merge applies mapped entity bundles to the canonical store.
// One bundle is one transaction; re-applying the same bundle is a no-op
// apart from the raw payload audit row, which is always appended.
package merge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openlegis/openlegis-backend/internal/data/repos"
	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
	"github.com/openlegis/openlegis-backend/internal/ingestion/mapper"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

// Embedder is the vectorization collaborator. A failed embedding never
// fails the bundle; the vector field is simply left unset.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// ApplyResult reports what one bundle changed.
type ApplyResult struct {
	BillID             uuid.UUID
	Created            bool
	ActionsInserted    int
	SponsorsAttached   int
	AmendmentsUpserted int
	VectorsComputed    int
}

type Service interface {
	Apply(ctx context.Context, set *mapper.EntitySet) (*ApplyResult, error)
}

type service struct {
	db             *gorm.DB
	bills          repos.BillRepo
	sponsors       repos.SponsorRepo
	amendments     repos.AmendmentRepo
	members        repos.MemberRepo
	federalMembers repos.FederalMemberRepo
	transcripts    repos.TranscriptRepo
	rawLog         repos.RawPayloadLogRepo
	embedder       Embedder
	log            *logger.Logger
}

type Deps struct {
	DB             *gorm.DB
	Bills          repos.BillRepo
	Sponsors       repos.SponsorRepo
	Amendments     repos.AmendmentRepo
	Members        repos.MemberRepo
	FederalMembers repos.FederalMemberRepo
	Transcripts    repos.TranscriptRepo
	RawLog         repos.RawPayloadLogRepo
	// Embedder may be nil; vectors are then never computed.
	Embedder Embedder
}

func NewService(d Deps, baseLog *logger.Logger) Service {
	return &service{
		db:             d.DB,
		bills:          d.Bills,
		sponsors:       d.Sponsors,
		amendments:     d.Amendments,
		members:        d.Members,
		federalMembers: d.FederalMembers,
		transcripts:    d.Transcripts,
		rawLog:         d.RawLog,
		embedder:       d.Embedder,
		log:            baseLog.With("component", "MergeService"),
	}
}

const maxApplyAttempts = 3

// Apply runs the bundle in one transaction, retrying a bounded number of
// times on transient store conflicts (serialization failures, duplicate
// key races on first insert).
func (s *service) Apply(ctx context.Context, set *mapper.EntitySet) (*ApplyResult, error) {
	if set == nil {
		return nil, &ingesterr.PersistenceError{Err: gorm.ErrInvalidData}
	}
	var lastErr error
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		res := &ApplyResult{}
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.applyOnce(dbctx.WithTx(ctx, tx), set, res)
		})
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, &ingesterr.PersistenceError{Err: err}
		}
		s.log.Warn("transient apply conflict, retrying",
			"external_id", set.ExternalID, "attempt", attempt, "error", err)
	}
	return nil, &ingesterr.PersistenceError{Transient: true, Err: lastErr}
}

func (s *service) applyOnce(dbc dbctx.Context, set *mapper.EntitySet, res *ApplyResult) error {
	switch {
	case set.Bill != nil:
		if err := s.applyBill(dbc, set.Bill, set.RawPayload, res); err != nil {
			return err
		}
	case set.Member != nil:
		if err := s.members.UpsertByExtID(dbc, set.Member); err != nil {
			return err
		}
	case set.FederalMember != nil:
		if err := s.federalMembers.UpsertByBioguideID(dbc, set.FederalMember); err != nil {
			return err
		}
	case set.Transcript != nil:
		if err := s.transcripts.UpsertByExtID(dbc, set.Transcript); err != nil {
			return err
		}
	}

	// The audit row is appended even when nothing canonical changed, so
	// the provenance trail stays complete.
	return s.rawLog.Insert(dbc, &types.RawPayloadLog{
		IngestType: set.IngestType,
		ExternalID: set.ExternalID,
		Payload:    jsonPayload(set.RawPayload),
	})
}

func (s *service) applyBill(dbc dbctx.Context, b *mapper.BillBundle, rawPayload []byte, res *ApplyResult) error {
	// The FOR UPDATE load serializes concurrent merges of the same bill;
	// everything below runs under that row lock.
	bill, err := s.bills.GetByNaturalKeyForUpdate(dbc, b.BasePrintNo, b.Session, b.Source)
	if err != nil {
		return err
	}
	if bill == nil {
		bill = &types.Bill{
			BasePrintNo: b.BasePrintNo,
			Session:     b.Session,
			Source:      b.Source,
			RawPayload:  jsonPayload(rawPayload),
		}
		applyBillScalars(bill, b)
		if b.Summary != nil {
			bill.SummaryVector = s.embed(dbc.Ctx, *b.Summary, res)
		}
		if err := s.bills.Create(dbc, bill); err != nil {
			return err
		}
		res.Created = true
	} else {
		updates := billScalarUpdates(bill, b)
		updates["raw_payload"] = jsonPayload(rawPayload)
		if b.Summary != nil && *b.Summary != bill.Summary {
			if v := s.embed(dbc.Ctx, *b.Summary, res); v != nil {
				updates["summary_vector"] = v
			}
		}
		if err := s.bills.UpdateFields(dbc, bill.ID, updates); err != nil {
			return err
		}
	}
	res.BillID = bill.ID

	if err := s.applyActions(dbc, bill.ID, b.Actions, res); err != nil {
		return err
	}
	if err := s.applySponsors(dbc, bill.ID, b.Sponsors, res); err != nil {
		return err
	}
	return s.applyAmendments(dbc, bill.ID, b.Amendments, res)
}

// applyBillScalars writes supplied fields onto a fresh row.
func applyBillScalars(bill *types.Bill, b *mapper.BillBundle) {
	if b.BillType != nil {
		bill.BillType = *b.BillType
	}
	if b.ActiveVersion != nil {
		bill.ActiveVersion = *b.ActiveVersion
	}
	if b.Title != nil {
		bill.Title = *b.Title
	}
	if b.Summary != nil {
		bill.Summary = *b.Summary
	}
	if b.Status != nil {
		bill.Status = *b.Status
	}
	if b.StatusDate != nil {
		bill.StatusDate = b.StatusDate
	}
	if b.IntroducedDate != nil {
		bill.IntroducedDate = b.IntroducedDate
	}
	if b.FullText != nil {
		bill.FullText = *b.FullText
	}
}

// billScalarUpdates builds the last-non-null-wins update map: only
// fields this source pass supplied are touched, so a sparse pass never
// nulls out what a richer one wrote.
func billScalarUpdates(bill *types.Bill, b *mapper.BillBundle) map[string]interface{} {
	updates := map[string]interface{}{}
	if b.BillType != nil {
		updates["bill_type"] = *b.BillType
	}
	if b.ActiveVersion != nil {
		updates["active_version"] = *b.ActiveVersion
	}
	if b.Title != nil {
		updates["title"] = *b.Title
	}
	if b.Summary != nil {
		updates["summary"] = *b.Summary
	}
	if b.Status != nil {
		updates["status"] = *b.Status
	}
	if b.StatusDate != nil {
		updates["status_date"] = *b.StatusDate
	}
	if b.IntroducedDate != nil {
		updates["introduced_date"] = *b.IntroducedDate
	}
	if b.FullText != nil {
		updates["full_text"] = *b.FullText
	}
	return updates
}

func (s *service) applyActions(dbc dbctx.Context, billID uuid.UUID, inputs []mapper.ActionInput, res *ApplyResult) error {
	if len(inputs) == 0 {
		return nil
	}
	existing, err := s.bills.GetActions(dbc, billID)
	if err != nil {
		return err
	}
	have := make(map[string]struct{}, len(existing))
	maxSeq := 0
	for _, a := range existing {
		have[a.IdentityKey] = struct{}{}
		if a.SequenceNo > maxSeq {
			maxSeq = a.SequenceNo
		}
	}

	for _, in := range inputs {
		row := &types.BillAction{
			BillID:     billID,
			PrintNo:    in.PrintNo,
			Date:       in.Date,
			Chamber:    in.Chamber,
			Text:       in.Text,
			Type:       in.Type,
			SequenceNo: in.SequenceNo,
		}
		// Identity is taken from the record as delivered, before any
		// ordering is assigned, so an unsequenced action re-delivered
		// later still matches its first ingestion.
		key := row.Identity().Key()
		if _, ok := have[key]; ok {
			continue
		}
		row.IdentityKey = key
		if row.SequenceNo == 0 {
			maxSeq++
			row.SequenceNo = maxSeq
		} else if row.SequenceNo > maxSeq {
			maxSeq = row.SequenceNo
		}
		inserted, err := s.bills.InsertActionIfAbsent(dbc, row)
		if err != nil {
			return err
		}
		if inserted {
			have[key] = struct{}{}
			res.ActionsInserted++
		}
	}
	return nil
}

func (s *service) applySponsors(dbc dbctx.Context, billID uuid.UUID, inputs []mapper.SponsorInput, res *ApplyResult) error {
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		extID := strings.TrimSpace(in.MemberExtID)
		if extID == "" {
			continue
		}
		if _, ok := seen[extID]; ok {
			continue
		}
		seen[extID] = struct{}{}

		if err := s.sponsors.UpsertByMemberExtID(dbc, &types.Sponsor{
			MemberExtID: extID,
			FullName:    in.FullName,
		}); err != nil {
			return err
		}
		sp, err := s.sponsors.GetByMemberExtID(dbc, extID)
		if err != nil {
			return err
		}
		if sp == nil {
			continue
		}
		attached, err := s.sponsors.AttachToBill(dbc, billID, sp.ID)
		if err != nil {
			return err
		}
		if attached {
			res.SponsorsAttached++
		}
	}
	return nil
}

func (s *service) applyAmendments(dbc dbctx.Context, billID uuid.UUID, inputs []mapper.AmendmentInput, res *ApplyResult) error {
	for _, in := range inputs {
		existing, err := s.amendments.GetByBillAndVersion(dbc, billID, in.Version)
		if err != nil {
			return err
		}
		row := &types.Amendment{BillID: billID, Version: in.Version}
		if existing != nil {
			*row = *existing
		}
		if in.Memo != nil {
			row.Memo = *in.Memo
		}
		if in.LawSection != nil {
			row.LawSection = *in.LawSection
		}
		if in.LawCode != nil {
			row.LawCode = *in.LawCode
		}
		if in.Stricken != nil {
			row.Stricken = *in.Stricken
		}
		if in.UniBill != nil {
			row.UniBill = *in.UniBill
		}
		if in.FullText != nil {
			newHash := TextHash(*in.FullText)
			if newHash != row.TextHash {
				row.FullText = *in.FullText
				row.TextHash = newHash
				if v := s.embed(dbc.Ctx, *in.FullText, res); v != nil {
					row.Vector = v
				}
			}
		}
		if err := s.amendments.UpsertByBillAndVersion(dbc, row); err != nil {
			return err
		}
		res.AmendmentsUpserted++
	}
	return nil
}

// embed vectorizes one text. Failures are logged and swallowed: a slow
// or unavailable collaborator must not cost an ingestion.
func (s *service) embed(ctx context.Context, text string, res *ApplyResult) datatypes.JSON {
	if s.embedder == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil || len(vecs) == 0 {
		s.log.Warn("embedding failed, leaving vector unset", "error", err)
		return nil
	}
	buf, err := json.Marshal(vecs[0])
	if err != nil {
		return nil
	}
	res.VectorsComputed++
	return datatypes.JSON(buf)
}

// TextHash is the change detector for amendment text.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// jsonPayload wraps a raw body for the jsonb audit column. XML and plain
// text are stored as a JSON string.
func jsonPayload(body []byte) datatypes.JSON {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return datatypes.JSON(body)
	}
	buf, _ := json.Marshal(string(body))
	return datatypes.JSON(buf)
}

// isTransient classifies store errors that may succeed on retry:
// serialization failures, deadlocks, and duplicate-key races when two
// transactions create the same row concurrently.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "SQLSTATE 40001"),
		strings.Contains(msg, "SQLSTATE 40P01"),
		strings.Contains(msg, "deadlock detected"),
		strings.Contains(msg, "could not serialize"),
		strings.Contains(msg, "duplicate key value"):
		return true
	}
	return false
}
