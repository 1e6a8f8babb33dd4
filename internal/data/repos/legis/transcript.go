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

type TranscriptRepo interface {
	UpsertByExtID(dbc dbctx.Context, row *types.Transcript) error
	GetByExtID(dbc dbctx.Context, extID string) (*types.Transcript, error)
	ExistsByExtID(dbc dbctx.Context, extID string) (bool, error)
}

type transcriptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTranscriptRepo(db *gorm.DB, baseLog *logger.Logger) TranscriptRepo {
	return &transcriptRepo{
		db:  db,
		log: baseLog.With("repo", "TranscriptRepo"),
	}
}

func (r *transcriptRepo) UpsertByExtID(dbc dbctx.Context, row *types.Transcript) error {
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
				"session_type",
				"date_time",
				"location",
				"text",
				"source_url",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *transcriptRepo) GetByExtID(dbc dbctx.Context, extID string) (*types.Transcript, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if extID == "" {
		return nil, nil
	}
	var row types.Transcript
	err := t.WithContext(dbc.Ctx).Where("ext_id = ?", extID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *transcriptRepo) ExistsByExtID(dbc dbctx.Context, extID string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if extID == "" {
		return false, nil
	}
	var count int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Transcript{}).
		Where("ext_id = ?", extID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
