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

type BillRepo interface {
	Create(dbc dbctx.Context, bill *types.Bill) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Bill, error)
	GetByNaturalKey(dbc dbctx.Context, basePrintNo string, session int, source string) (*types.Bill, error)
	// GetByNaturalKeyForUpdate takes a row lock so two concurrent merges of
	// the same bill serialize inside their transactions.
	GetByNaturalKeyForUpdate(dbc dbctx.Context, basePrintNo string, session int, source string) (*types.Bill, error)
	ExistsByNaturalKey(dbc dbctx.Context, basePrintNo string, session int, source string) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error

	GetActions(dbc dbctx.Context, billID uuid.UUID) ([]*types.BillAction, error)
	MaxActionSeq(dbc dbctx.Context, billID uuid.UUID) (int, error)
	// InsertActionIfAbsent appends an action unless one with the same
	// identity key already exists for the bill. Reports whether a row was
	// inserted. Safe under concurrent merges: the unique index on
	// (bill_id, identity_key) backs the same identity rule.
	InsertActionIfAbsent(dbc dbctx.Context, action *types.BillAction) (bool, error)
}

type billRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBillRepo(db *gorm.DB, baseLog *logger.Logger) BillRepo {
	return &billRepo{
		db:  db,
		log: baseLog.With("repo", "BillRepo"),
	}
}

func (r *billRepo) Create(dbc dbctx.Context, bill *types.Bill) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if bill == nil {
		return nil
	}
	if bill.ID == uuid.Nil {
		bill.ID = uuid.New()
	}
	return t.WithContext(dbc.Ctx).Create(bill).Error
}

func (r *billRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Bill, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var bill types.Bill
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepo) GetByNaturalKey(dbc dbctx.Context, basePrintNo string, session int, source string) (*types.Bill, error) {
	return r.getByNaturalKey(dbc, basePrintNo, session, source, false)
}

func (r *billRepo) GetByNaturalKeyForUpdate(dbc dbctx.Context, basePrintNo string, session int, source string) (*types.Bill, error) {
	return r.getByNaturalKey(dbc, basePrintNo, session, source, true)
}

func (r *billRepo) getByNaturalKey(dbc dbctx.Context, basePrintNo string, session int, source string, lock bool) (*types.Bill, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if basePrintNo == "" || session == 0 {
		return nil, nil
	}
	q := t.WithContext(dbc.Ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var bill types.Bill
	err := q.Where("base_print_no = ? AND session = ? AND source = ?", basePrintNo, session, source).
		First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepo) ExistsByNaturalKey(dbc dbctx.Context, basePrintNo string, session int, source string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if basePrintNo == "" || session == 0 {
		return false, nil
	}
	var count int64
	err := t.WithContext(dbc.Ctx).
		Model(&types.Bill{}).
		Where("base_print_no = ? AND session = ? AND source = ?", basePrintNo, session, source).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *billRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Bill{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *billRepo) GetActions(dbc dbctx.Context, billID uuid.UUID) ([]*types.BillAction, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.BillAction
	if billID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("bill_id = ?", billID).
		Order("sequence_no ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *billRepo) MaxActionSeq(dbc dbctx.Context, billID uuid.UUID) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if billID == uuid.Nil {
		return 0, nil
	}
	var max int
	err := t.WithContext(dbc.Ctx).
		Model(&types.BillAction{}).
		Where("bill_id = ?", billID).
		Select("COALESCE(MAX(sequence_no), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *billRepo) InsertActionIfAbsent(dbc dbctx.Context, action *types.BillAction) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if action == nil || action.BillID == uuid.Nil {
		return false, nil
	}
	if action.ID == uuid.Nil {
		action.ID = uuid.New()
	}
	if action.IdentityKey == "" {
		action.IdentityKey = action.Identity().Key()
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bill_id"}, {Name: "identity_key"}},
			DoNothing: true,
		}).
		Create(action)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
