package merge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openlegis/openlegis-backend/internal/data/repos"
	"github.com/openlegis/openlegis-backend/internal/data/repos/testutil"
	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/mapper"
	"github.com/openlegis/openlegis-backend/internal/ingestion/merge"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
)

type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{0.25, 0.5, 0.75}
	}
	return out, nil
}

func newService(t *testing.T, tx *gorm.DB, emb merge.Embedder) merge.Service {
	t.Helper()
	log := testutil.Logger(t)
	return merge.NewService(merge.Deps{
		DB:             tx,
		Bills:          repos.NewBillRepo(tx, log),
		Sponsors:       repos.NewSponsorRepo(tx, log),
		Amendments:     repos.NewAmendmentRepo(tx, log),
		Members:        repos.NewMemberRepo(tx, log),
		FederalMembers: repos.NewFederalMemberRepo(tx, log),
		Transcripts:    repos.NewTranscriptRepo(tx, log),
		RawLog:         repos.NewRawPayloadLogRepo(tx, log),
		Embedder:       emb,
	}, log)
}

func strptr(s string) *string { return &s }

func billBundle(basePrintNo string, session int) *mapper.BillBundle {
	return &mapper.BillBundle{
		BasePrintNo: basePrintNo,
		Session:     session,
		Source:      types.SourceState,
	}
}

func TestApplyCreatesBillBundle(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	emb := &countingEmbedder{}
	svc := newService(t, tx, emb)

	day := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	b := billBundle("S9001", 2023)
	b.Title = strptr("An act to amend the tax law")
	b.Summary = strptr("Amends the tax law.")
	b.Status = strptr("INTRODUCED")
	b.Actions = []mapper.ActionInput{
		{PrintNo: "S9001", Date: day, Chamber: "senate", Text: "REFERRED TO FINANCE", SequenceNo: 1},
		{PrintNo: "S9001", Date: day.AddDate(0, 1, 0), Chamber: "senate", Text: "REPORTED", SequenceNo: 2},
	}
	b.Sponsors = []mapper.SponsorInput{{MemberExtID: "m-100", FullName: "KRUEGER"}}
	b.Amendments = []mapper.AmendmentInput{{Version: "A", FullText: strptr("Section one.")}}

	res, err := svc.Apply(ctx, &mapper.EntitySet{
		IngestType: string(source.KindStateBulkXML),
		ExternalID: "file-s9001-1",
		RawPayload: []byte("<billStatus/>"),
		Bill:       b,
	})
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, 2, res.ActionsInserted)
	require.Equal(t, 1, res.SponsorsAttached)
	require.Equal(t, 1, res.AmendmentsUpserted)
	// Summary and amendment text each embedded once.
	require.Equal(t, 2, res.VectorsComputed)
	require.Equal(t, 2, emb.calls)

	dbc := dbctx.WithTx(ctx, tx)
	log := testutil.Logger(t)
	bills := repos.NewBillRepo(tx, log)
	got, err := bills.GetByNaturalKey(dbc, "S9001", 2023, types.SourceState)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "An act to amend the tax law", got.Title)
	require.NotEmpty(t, got.SummaryVector)

	rows, err := repos.NewRawPayloadLogRepo(tx, log).ListByKey(dbc, string(source.KindStateBulkXML), "file-s9001-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestApplyIsIdempotent(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	svc := newService(t, tx, nil)

	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	set := &mapper.EntitySet{
		IngestType: string(source.KindStateBulkXML),
		ExternalID: "file-s9002-1",
		RawPayload: []byte("<billStatus/>"),
		Bill: func() *mapper.BillBundle {
			b := billBundle("S9002", 2023)
			b.Title = strptr("Same bill twice")
			b.Actions = []mapper.ActionInput{
				{PrintNo: "S9002", Date: day, Chamber: "senate", Text: "REFERRED TO RULES", SequenceNo: 1},
			}
			b.Sponsors = []mapper.SponsorInput{{MemberExtID: "m-200", FullName: "HOYLMAN"}}
			b.Amendments = []mapper.AmendmentInput{{Version: "", Memo: strptr("memo v1")}}
			return b
		}(),
	}

	first, err := svc.Apply(ctx, set)
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Equal(t, 1, first.ActionsInserted)
	require.Equal(t, 1, first.SponsorsAttached)

	second, err := svc.Apply(ctx, set)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Zero(t, second.ActionsInserted)
	require.Zero(t, second.SponsorsAttached)

	dbc := dbctx.WithTx(ctx, tx)
	log := testutil.Logger(t)
	bills := repos.NewBillRepo(tx, log)
	bill, err := bills.GetByNaturalKey(dbc, "S9002", 2023, types.SourceState)
	require.NoError(t, err)
	actions, err := bills.GetActions(dbc, bill.ID)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	sponsors, err := repos.NewSponsorRepo(tx, log).ListForBill(dbc, bill.ID)
	require.NoError(t, err)
	require.Len(t, sponsors, 1)

	// The audit trail records both deliveries.
	rows, err := repos.NewRawPayloadLogRepo(tx, log).ListByKey(dbc, string(source.KindStateBulkXML), "file-s9002-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestApplyLastNonNullWins(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	svc := newService(t, tx, nil)

	rich := billBundle("S9003", 2023)
	rich.Title = strptr("Rich pass title")
	rich.Summary = strptr("Rich pass summary.")
	rich.Status = strptr("INTRODUCED")
	_, err := svc.Apply(ctx, &mapper.EntitySet{
		IngestType: string(source.KindStateBulkXML),
		ExternalID: "file-s9003-1",
		RawPayload: []byte("<a/>"),
		Bill:       rich,
	})
	require.NoError(t, err)

	// A sparser later pass supplies only a status change.
	sparse := billBundle("S9003", 2023)
	sparse.Status = strptr("IN_COMMITTEE")
	_, err = svc.Apply(ctx, &mapper.EntitySet{
		IngestType: string(source.KindStateBulkXML),
		ExternalID: "file-s9003-2",
		RawPayload: []byte("<b/>"),
		Bill:       sparse,
	})
	require.NoError(t, err)

	dbc := dbctx.WithTx(ctx, tx)
	bill, err := repos.NewBillRepo(tx, testutil.Logger(t)).GetByNaturalKey(dbc, "S9003", 2023, types.SourceState)
	require.NoError(t, err)
	require.Equal(t, "IN_COMMITTEE", bill.Status)
	require.Equal(t, "Rich pass title", bill.Title)
	require.Equal(t, "Rich pass summary.", bill.Summary)
}

func TestApplyActionIdentityIgnoresVersionAndCase(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	svc := newService(t, tx, nil)

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	base := billBundle("S9004", 2023)
	base.Actions = []mapper.ActionInput{
		{PrintNo: "S9004", Date: day, Chamber: "senate", Text: "Amend and recommit", SequenceNo: 3},
	}
	_, err := svc.Apply(ctx, &mapper.EntitySet{
		IngestType: string(source.KindStateBulkXML),
		ExternalID: "file-s9004-1",
		RawPayload: []byte("<a/>"),
		Bill:       base,
	})
	require.NoError(t, err)

	// Same action re-delivered against the amended print number, with
	// different text casing.
	again := billBundle("S9004", 2023)
	again.Actions = []mapper.ActionInput{
		{PrintNo: "S9004B", Date: day, Chamber: "SENATE", Text: "AMEND AND RECOMMIT", SequenceNo: 3},
	}
	res, err := svc.Apply(ctx, &mapper.EntitySet{
		IngestType: string(source.KindStateBulkXML),
		ExternalID: "file-s9004-2",
		RawPayload: []byte("<b/>"),
		Bill:       again,
	})
	require.NoError(t, err)
	require.Zero(t, res.ActionsInserted)
}

func TestApplyAssignsSequenceToUnsequencedActions(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	svc := newService(t, tx, nil)

	day := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	b := billBundle("HR123", 119)
	b.Source = types.SourceFederal
	b.Actions = []mapper.ActionInput{
		{PrintNo: "HR123", Date: day, Chamber: "house", Text: "Introduced in House"},
		{PrintNo: "HR123", Date: day.AddDate(0, 0, 5), Chamber: "house", Text: "Referred to Judiciary"},
	}
	set := &mapper.EntitySet{
		IngestType: string(source.KindFederalBulkXML),
		ExternalID: "BILLSTATUS-119hr123.xml",
		RawPayload: []byte("<a/>"),
		Bill:       b,
	}

	res, err := svc.Apply(ctx, set)
	require.NoError(t, err)
	require.Equal(t, 2, res.ActionsInserted)

	dbc := dbctx.WithTx(ctx, tx)
	bills := repos.NewBillRepo(tx, testutil.Logger(t))
	bill, err := bills.GetByNaturalKey(dbc, "HR123", 119, types.SourceFederal)
	require.NoError(t, err)
	actions, err := bills.GetActions(dbc, bill.ID)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	require.Equal(t, 1, actions[0].SequenceNo)
	require.Equal(t, 2, actions[1].SequenceNo)

	// Re-delivery of the same unsequenced actions inserts nothing.
	res, err = svc.Apply(ctx, set)
	require.NoError(t, err)
	require.Zero(t, res.ActionsInserted)
	actions, err = bills.GetActions(dbc, bill.ID)
	require.NoError(t, err)
	require.Len(t, actions, 2)
}

func TestApplyRecomputesVectorOnlyOnTextChange(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	emb := &countingEmbedder{}
	svc := newService(t, tx, emb)

	apply := func(extID, text string) {
		t.Helper()
		b := billBundle("S9005", 2023)
		b.Amendments = []mapper.AmendmentInput{{Version: "A", FullText: strptr(text)}}
		_, err := svc.Apply(ctx, &mapper.EntitySet{
			IngestType: string(source.KindStateBulkXML),
			ExternalID: extID,
			RawPayload: []byte("<a/>"),
			Bill:       b,
		})
		require.NoError(t, err)
	}

	apply("file-s9005-1", "Version A text.")
	require.Equal(t, 1, emb.calls)

	apply("file-s9005-2", "Version A text.")
	require.Equal(t, 1, emb.calls, "unchanged text must not re-embed")

	apply("file-s9005-3", "Version A text, revised.")
	require.Equal(t, 2, emb.calls)
}

func TestApplyMembersAndTranscript(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	svc := newService(t, tx, nil)

	_, err := svc.Apply(ctx, &mapper.EntitySet{
		IngestType: string(source.KindFederalMembers),
		ExternalID: "K000367",
		RawPayload: []byte(`{"member":{}}`),
		FederalMember: &types.FederalMember{
			BioguideID: "K000367", FullName: "Amy Klobuchar", CurrentMember: true,
		},
	})
	require.NoError(t, err)

	// Second pass updates in place.
	_, err = svc.Apply(ctx, &mapper.EntitySet{
		IngestType: string(source.KindFederalMembers),
		ExternalID: "K000367",
		RawPayload: []byte(`{"member":{}}`),
		FederalMember: &types.FederalMember{
			BioguideID: "K000367", FullName: "Amy Klobuchar", CurrentMember: false,
		},
	})
	require.NoError(t, err)

	dbc := dbctx.WithTx(ctx, tx)
	log := testutil.Logger(t)
	m, err := repos.NewFederalMemberRepo(tx, log).GetByBioguideID(dbc, "K000367")
	require.NoError(t, err)
	require.NotNil(t, m)
	require.False(t, m.CurrentMember)

	// State members travel the same path keyed by the source member id.
	_, err = svc.Apply(ctx, &mapper.EntitySet{
		IngestType: string(source.KindStateBulkXML),
		ExternalID: "2025-02-10-08.30.00.000042_MEMBER_369.XML",
		RawPayload: []byte("<memberRecord/>"),
		Member: &types.Member{
			ExtID: "369", FullName: "James L. Seward", Chamber: "senate", Session: 2025, Active: true,
		},
	})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, &mapper.EntitySet{
		IngestType: string(source.KindStateBulkXML),
		ExternalID: "2025-06-01-08.30.00.000043_MEMBER_369.XML",
		RawPayload: []byte("<memberRecord/>"),
		Member: &types.Member{
			ExtID: "369", FullName: "James L. Seward", Chamber: "senate", Session: 2025, Active: false,
		},
	})
	require.NoError(t, err)
	sm, err := repos.NewMemberRepo(tx, log).GetByExtID(dbc, "369")
	require.NoError(t, err)
	require.NotNil(t, sm)
	require.False(t, sm.Active)

	_, err = svc.Apply(ctx, &mapper.EntitySet{
		IngestType: string(source.KindFeed),
		ExternalID: "urn:tr:1",
		RawPayload: []byte("<html/>"),
		Transcript: &types.Transcript{ExtID: "urn:tr:1", SessionType: "SESSION", Text: "order"},
	})
	require.NoError(t, err)
	tr, err := repos.NewTranscriptRepo(tx, log).GetByExtID(dbc, "urn:tr:1")
	require.NoError(t, err)
	require.NotNil(t, tr)
}

func TestTextHashStable(t *testing.T) {
	require.Equal(t, merge.TextHash("abc"), merge.TextHash("abc"))
	require.NotEqual(t, merge.TextHash("abc"), merge.TextHash("abd"))
}
