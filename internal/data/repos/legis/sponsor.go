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

type SponsorRepo interface {
	UpsertByMemberExtID(dbc dbctx.Context, row *types.Sponsor) error
	GetByMemberExtID(dbc dbctx.Context, memberExtID string) (*types.Sponsor, error)
	// AttachToBill inserts the bill<->sponsor edge if it is not already
	// present. Re-ingestion never creates a duplicate edge.
	AttachToBill(dbc dbctx.Context, billID, sponsorID uuid.UUID) (bool, error)
	ListForBill(dbc dbctx.Context, billID uuid.UUID) ([]*types.Sponsor, error)
}

type sponsorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSponsorRepo(db *gorm.DB, baseLog *logger.Logger) SponsorRepo {
	return &sponsorRepo{
		db:  db,
		log: baseLog.With("repo", "SponsorRepo"),
	}
}

func (r *sponsorRepo) UpsertByMemberExtID(dbc dbctx.Context, row *types.Sponsor) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.MemberExtID == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "member_ext_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"full_name",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *sponsorRepo) GetByMemberExtID(dbc dbctx.Context, memberExtID string) (*types.Sponsor, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if memberExtID == "" {
		return nil, nil
	}
	var row types.Sponsor
	err := t.WithContext(dbc.Ctx).Where("member_ext_id = ?", memberExtID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// AttachToBill inserts the edge if missing and reports whether a row
// was actually written, so callers can count real attachments.
func (r *sponsorRepo) AttachToBill(dbc dbctx.Context, billID, sponsorID uuid.UUID) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if billID == uuid.Nil || sponsorID == uuid.Nil {
		return false, nil
	}
	edge := &types.BillSponsor{BillID: billID, SponsorID: sponsorID}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(edge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *sponsorRepo) ListForBill(dbc dbctx.Context, billID uuid.UUID) ([]*types.Sponsor, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Sponsor
	if billID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.Sponsor{}).
		Joins("JOIN bill_sponsor ON bill_sponsor.sponsor_id = sponsor.id").
		Where("bill_sponsor.bill_id = ?", billID).
		Order("sponsor.member_ext_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
