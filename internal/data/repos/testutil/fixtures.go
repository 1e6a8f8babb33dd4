package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/openlegis/openlegis-backend/internal/domain"
)

func SeedBill(tb testing.TB, ctx context.Context, tx *gorm.DB, basePrintNo string, session int) *types.Bill {
	tb.Helper()
	b := &types.Bill{
		ID:          uuid.New(),
		BasePrintNo: basePrintNo,
		Session:     session,
		Source:      types.SourceState,
		Title:       "seed bill",
		Status:      "INTRODUCED",
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed bill: %v", err)
	}
	return b
}

func SeedAction(tb testing.TB, ctx context.Context, tx *gorm.DB, billID uuid.UUID, printNo string, seq int, text string) *types.BillAction {
	tb.Helper()
	a := &types.BillAction{
		ID:         uuid.New(),
		BillID:     billID,
		PrintNo:    printNo,
		Date:       time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Chamber:    "senate",
		Text:       text,
		SequenceNo: seq,
	}
	a.IdentityKey = a.Identity().Key()
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed action: %v", err)
	}
	return a
}

func SeedSponsor(tb testing.TB, ctx context.Context, tx *gorm.DB, memberExtID string) *types.Sponsor {
	tb.Helper()
	s := &types.Sponsor{
		ID:          uuid.New(),
		MemberExtID: memberExtID,
		FullName:    "Seed Sponsor",
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed sponsor: %v", err)
	}
	return s
}
