package legis

import (
	"context"
	"testing"

	"github.com/openlegis/openlegis-backend/internal/data/repos/testutil"
	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
)

func TestSponsorRepoUpsertAndAttach(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)

	ctx := context.Background()
	dbc := dbctx.WithTx(ctx, tx)
	repo := NewSponsorRepo(gdb, testutil.Logger(t))

	bill := testutil.SeedBill(t, ctx, tx, "S1234", 2024)

	s := &types.Sponsor{MemberExtID: "MEM-77", FullName: "Jordan Doe"}
	if err := repo.UpsertByMemberExtID(dbc, s); err != nil {
		t.Fatalf("UpsertByMemberExtID: %v", err)
	}

	// Second upsert with a new display name updates in place.
	s2 := &types.Sponsor{MemberExtID: "MEM-77", FullName: "Jordan A. Doe"}
	if err := repo.UpsertByMemberExtID(dbc, s2); err != nil {
		t.Fatalf("UpsertByMemberExtID(update): %v", err)
	}
	got, err := repo.GetByMemberExtID(dbc, "MEM-77")
	if err != nil || got == nil {
		t.Fatalf("GetByMemberExtID: got=%v err=%v", got, err)
	}
	if got.FullName != "Jordan A. Doe" {
		t.Fatalf("upsert did not update full_name: %q", got.FullName)
	}
	if got.ID != s.ID {
		t.Fatalf("upsert must not create a second sponsor row")
	}

	// Attaching twice leaves a single edge and only the first write counts.
	attached, err := repo.AttachToBill(dbc, bill.ID, got.ID)
	if err != nil {
		t.Fatalf("AttachToBill: %v", err)
	}
	if !attached {
		t.Fatalf("first AttachToBill should insert the edge")
	}
	attached, err = repo.AttachToBill(dbc, bill.ID, got.ID)
	if err != nil {
		t.Fatalf("AttachToBill(repeat): %v", err)
	}
	if attached {
		t.Fatalf("repeat AttachToBill should report no new edge")
	}
	list, err := repo.ListForBill(dbc, bill.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListForBill: err=%v len=%d", err, len(list))
	}
}
