package legis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/openlegis/openlegis-backend/internal/data/repos/testutil"
	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
)

func TestBillRepo(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)

	ctx := context.Background()
	dbc := dbctx.WithTx(ctx, tx)
	repo := NewBillRepo(gdb, testutil.Logger(t))

	bill := &types.Bill{
		BasePrintNo: "S1234",
		Session:     2024,
		Source:      types.SourceState,
		Title:       "An act",
		Status:      "INTRODUCED",
	}
	if err := repo.Create(dbc, bill); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got, err := repo.GetByNaturalKey(dbc, "S1234", 2024, types.SourceState); err != nil || got == nil || got.ID != bill.ID {
		t.Fatalf("GetByNaturalKey: got=%v err=%v", got, err)
	}
	if got, err := repo.GetByNaturalKey(dbc, "S9999", 2024, types.SourceState); err != nil || got != nil {
		t.Fatalf("GetByNaturalKey(miss): got=%v err=%v", got, err)
	}
	if ok, err := repo.ExistsByNaturalKey(dbc, "S1234", 2024, types.SourceState); err != nil || !ok {
		t.Fatalf("ExistsByNaturalKey: ok=%v err=%v", ok, err)
	}

	if err := repo.UpdateFields(dbc, bill.ID, map[string]interface{}{"summary": "S1"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if got, _ := repo.GetByID(dbc, bill.ID); got == nil || got.Summary != "S1" {
		t.Fatalf("UpdateFields not applied: %+v", got)
	}
}

func TestBillRepoInsertActionIfAbsent(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)

	ctx := context.Background()
	dbc := dbctx.WithTx(ctx, tx)
	repo := NewBillRepo(gdb, testutil.Logger(t))

	bill := testutil.SeedBill(t, ctx, tx, "S1234", 2024)

	act := &types.BillAction{
		BillID:     bill.ID,
		PrintNo:    "S1234",
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Chamber:    "senate",
		Text:       "REFERRED TO FINANCE",
		SequenceNo: 1,
	}
	inserted, err := repo.InsertActionIfAbsent(dbc, act)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	// Same action, different text case and a version-suffixed print no:
	// identical identity, so no second row.
	dup := &types.BillAction{
		BillID:     bill.ID,
		PrintNo:    "S1234B",
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Chamber:    "senate",
		Text:       "referred to finance",
		SequenceNo: 1,
	}
	inserted, err = repo.InsertActionIfAbsent(dbc, dup)
	if err != nil {
		t.Fatalf("dup insert: %v", err)
	}
	if inserted {
		t.Fatalf("duplicate action identity must not insert a second row")
	}

	actions, err := repo.GetActions(dbc, bill.ID)
	if err != nil || len(actions) != 1 {
		t.Fatalf("GetActions: err=%v len=%d", err, len(actions))
	}

	if max, err := repo.MaxActionSeq(dbc, bill.ID); err != nil || max != 1 {
		t.Fatalf("MaxActionSeq: max=%d err=%v", max, err)
	}
	if max, err := repo.MaxActionSeq(dbc, uuid.New()); err != nil || max != 0 {
		t.Fatalf("MaxActionSeq(empty): max=%d err=%v", max, err)
	}
}
