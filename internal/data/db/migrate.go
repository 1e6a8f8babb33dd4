package db

import (
	types "github.com/openlegis/openlegis-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Canonical legislative entities
		// =========================
		&types.Bill{},
		&types.BillAction{},
		&types.Sponsor{},
		&types.BillSponsor{},
		&types.Amendment{},
		&types.Member{},
		&types.FederalMember{},
		&types.Transcript{},

		// =========================
		// Ingestion bookkeeping
		// =========================
		&types.RawPayloadLog{},
		&types.SourceCursor{},
		&types.IngestRun{},
	)
}
