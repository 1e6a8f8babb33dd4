package ingest

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

// RawPayloadLogRepo writes the append-only provenance trail. There is no
// update path on purpose: audit rows are immutable.
type RawPayloadLogRepo interface {
	Insert(dbc dbctx.Context, row *types.RawPayloadLog) error
	HasExternalID(dbc dbctx.Context, ingestType, externalID string) (bool, error)
	ListByKey(dbc dbctx.Context, ingestType, externalID string) ([]*types.RawPayloadLog, error)
}

type rawPayloadLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRawPayloadLogRepo(db *gorm.DB, baseLog *logger.Logger) RawPayloadLogRepo {
	return &rawPayloadLogRepo{
		db:  db,
		log: baseLog.With("repo", "RawPayloadLogRepo"),
	}
}

func (r *rawPayloadLogRepo) Insert(dbc dbctx.Context, row *types.RawPayloadLog) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.IngestType == "" || row.ExternalID == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *rawPayloadLogRepo) HasExternalID(dbc dbctx.Context, ingestType, externalID string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if ingestType == "" || externalID == "" {
		return false, nil
	}
	var count int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.RawPayloadLog{}).
		Where("ingest_type = ? AND external_id = ?", ingestType, externalID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *rawPayloadLogRepo) ListByKey(dbc dbctx.Context, ingestType, externalID string) ([]*types.RawPayloadLog, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.RawPayloadLog
	if ingestType == "" || externalID == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("ingest_type = ? AND external_id = ?", ingestType, externalID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
