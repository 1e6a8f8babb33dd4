package legis

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

type AmendmentRepo interface {
	GetByBillAndVersion(dbc dbctx.Context, billID uuid.UUID, version string) (*types.Amendment, error)
	UpsertByBillAndVersion(dbc dbctx.Context, row *types.Amendment) error
	ListForBill(dbc dbctx.Context, billID uuid.UUID) ([]*types.Amendment, error)
}

type amendmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAmendmentRepo(db *gorm.DB, baseLog *logger.Logger) AmendmentRepo {
	return &amendmentRepo{
		db:  db,
		log: baseLog.With("repo", "AmendmentRepo"),
	}
}

func (r *amendmentRepo) GetByBillAndVersion(dbc dbctx.Context, billID uuid.UUID, version string) (*types.Amendment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if billID == uuid.Nil {
		return nil, nil
	}
	var row types.Amendment
	err := t.WithContext(dbc.Ctx).
		Where("bill_id = ? AND version = ?", billID, version).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *amendmentRepo) UpsertByBillAndVersion(dbc dbctx.Context, row *types.Amendment) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.BillID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "bill_id"}, {Name: "version"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"memo",
				"law_section",
				"law_code",
				"full_text",
				"text_hash",
				"vector",
				"stricken",
				"uni_bill",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *amendmentRepo) ListForBill(dbc dbctx.Context, billID uuid.UUID) ([]*types.Amendment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Amendment
	if billID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("bill_id = ?", billID).
		Order("version ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
