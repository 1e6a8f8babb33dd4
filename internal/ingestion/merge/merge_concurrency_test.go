package merge_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/openlegis/openlegis-backend/internal/data/repos/testutil"
	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/mapper"
	"github.com/openlegis/openlegis-backend/internal/ingestion/merge"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
)

func openSession(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	return gdb
}

// Two sessions on separate connections race the same natural key. The
// row lock plus the unique indexes must collapse the race to one bill
// row with one copy of each action, with duplicate-key losers retried.
// The per-test rollback harness runs everything on one connection and
// cannot exercise this, so the test writes real rows and cleans up.
func TestApplyConcurrentSameNaturalKey(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set TEST_POSTGRES_DSN to run merge concurrency tests")
	}
	testutil.DB(t) // runs migrations

	db1 := openSession(t, dsn)
	db2 := openSession(t, dsn)

	base := "S" + uuid.NewString()[:8]
	memberExtID := "m-" + uuid.NewString()[:8]
	extID := "file-" + base
	t.Cleanup(func() {
		var bill types.Bill
		if err := db1.Where("base_print_no = ? AND session = ? AND source = ?",
			base, 2025, types.SourceState).First(&bill).Error; err == nil {
			db1.Where("bill_id = ?", bill.ID).Delete(&types.BillAction{})
			db1.Where("bill_id = ?", bill.ID).Delete(&types.BillSponsor{})
			db1.Where("bill_id = ?", bill.ID).Delete(&types.Amendment{})
			db1.Delete(&types.Bill{}, "id = ?", bill.ID)
		}
		db1.Where("member_ext_id = ?", memberExtID).Delete(&types.Sponsor{})
		db1.Where("external_id = ?", extID).Delete(&types.RawPayloadLog{})
	})

	day := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	newSet := func() *mapper.EntitySet {
		b := billBundle(base, 2025)
		b.Title = strptr("An act in a hurry")
		b.Actions = []mapper.ActionInput{
			{PrintNo: base, Date: day, Chamber: "senate", Text: "REFERRED TO FINANCE", SequenceNo: 1},
			{PrintNo: base, Date: day.AddDate(0, 0, 7), Chamber: "senate", Text: "REPORTED", SequenceNo: 2},
		}
		b.Sponsors = []mapper.SponsorInput{{MemberExtID: memberExtID, FullName: "KRUEGER"}}
		b.Amendments = []mapper.AmendmentInput{{Version: "", FullText: strptr("Section one.")}}
		return &mapper.EntitySet{
			IngestType: string(source.KindStateBulkXML),
			ExternalID: extID,
			RawPayload: []byte("<billStatus/>"),
			Bill:       b,
		}
	}

	services := []merge.Service{
		newService(t, db1, nil),
		newService(t, db2, nil),
	}

	const passes = 8
	var wg sync.WaitGroup
	results := make([]*merge.ApplyResult, passes)
	errs := make([]error, passes)
	for i := 0; i < passes; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = services[i%len(services)].Apply(context.Background(), newSet())
		}()
	}
	wg.Wait()

	created := 0
	for i := 0; i < passes; i++ {
		require.NoError(t, errs[i], "pass %d", i)
		if results[i].Created {
			created++
		}
	}
	require.Equal(t, 1, created, "exactly one pass creates the bill")

	var billCount int64
	require.NoError(t, db1.Model(&types.Bill{}).
		Where("base_print_no = ? AND session = ? AND source = ?", base, 2025, types.SourceState).
		Count(&billCount).Error)
	require.EqualValues(t, 1, billCount)

	var bill types.Bill
	require.NoError(t, db1.Where("base_print_no = ? AND session = ? AND source = ?",
		base, 2025, types.SourceState).First(&bill).Error)

	var actionCount int64
	require.NoError(t, db1.Model(&types.BillAction{}).
		Where("bill_id = ?", bill.ID).Count(&actionCount).Error)
	require.EqualValues(t, 2, actionCount, "no duplicate actions under concurrency")

	var edgeCount int64
	require.NoError(t, db1.Model(&types.BillSponsor{}).
		Where("bill_id = ?", bill.ID).Count(&edgeCount).Error)
	require.EqualValues(t, 1, edgeCount)

	var amendCount int64
	require.NoError(t, db1.Model(&types.Amendment{}).
		Where("bill_id = ?", bill.ID).Count(&amendCount).Error)
	require.EqualValues(t, 1, amendCount)

	// Provenance keeps every delivery, winners and retried losers alike.
	var auditCount int64
	require.NoError(t, db1.Model(&types.RawPayloadLog{}).
		Where("external_id = ?", extID).Count(&auditCount).Error)
	require.EqualValues(t, passes, auditCount)
}
