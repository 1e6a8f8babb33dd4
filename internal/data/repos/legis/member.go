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

type MemberRepo interface {
	UpsertByExtID(dbc dbctx.Context, row *types.Member) error
	GetByExtID(dbc dbctx.Context, extID string) (*types.Member, error)
	ExistsByExtID(dbc dbctx.Context, extID string) (bool, error)
}

type memberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	return &memberRepo{
		db:  db,
		log: baseLog.With("repo", "MemberRepo"),
	}
}

func (r *memberRepo) UpsertByExtID(dbc dbctx.Context, row *types.Member) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ExtID == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ext_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"full_name",
				"chamber",
				"state",
				"party",
				"session",
				"active",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *memberRepo) GetByExtID(dbc dbctx.Context, extID string) (*types.Member, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if extID == "" {
		return nil, nil
	}
	var row types.Member
	err := t.WithContext(dbc.Ctx).Where("ext_id = ?", extID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *memberRepo) ExistsByExtID(dbc dbctx.Context, extID string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if extID == "" {
		return false, nil
	}
	var count int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Member{}).
		Where("ext_id = ?", extID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type FederalMemberRepo interface {
	UpsertByBioguideID(dbc dbctx.Context, row *types.FederalMember) error
	GetByBioguideID(dbc dbctx.Context, bioguideID string) (*types.FederalMember, error)
	ExistsByBioguideID(dbc dbctx.Context, bioguideID string) (bool, error)
}

type federalMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFederalMemberRepo(db *gorm.DB, baseLog *logger.Logger) FederalMemberRepo {
	return &federalMemberRepo{
		db:  db,
		log: baseLog.With("repo", "FederalMemberRepo"),
	}
}

func (r *federalMemberRepo) UpsertByBioguideID(dbc dbctx.Context, row *types.FederalMember) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.BioguideID == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "bioguide_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"full_name",
				"chamber",
				"state",
				"party",
				"current_member",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *federalMemberRepo) GetByBioguideID(dbc dbctx.Context, bioguideID string) (*types.FederalMember, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if bioguideID == "" {
		return nil, nil
	}
	var row types.FederalMember
	err := t.WithContext(dbc.Ctx).Where("bioguide_id = ?", bioguideID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *federalMemberRepo) ExistsByBioguideID(dbc dbctx.Context, bioguideID string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if bioguideID == "" {
		return false, nil
	}
	var count int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.FederalMember{}).
		Where("bioguide_id = ?", bioguideID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
