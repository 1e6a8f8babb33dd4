package ingest

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

type IngestRunRepo interface {
	Create(dbc dbctx.Context, run *types.IngestRun) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.IngestRun, error)
	List(dbc dbctx.Context, sourceKind string, limit int) ([]*types.IngestRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// HasActiveRun reports whether a queued or running ingestion exists for
	// the source. Used to suppress overlapping scheduled runs.
	HasActiveRun(dbc dbctx.Context, sourceKind string) (bool, error)
}

type ingestRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIngestRunRepo(db *gorm.DB, baseLog *logger.Logger) IngestRunRepo {
	return &ingestRunRepo{
		db:  db,
		log: baseLog.With("repo", "IngestRunRepo"),
	}
}

func (r *ingestRunRepo) Create(dbc dbctx.Context, run *types.IngestRun) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if run == nil {
		return nil
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = types.RunStatusQueued
	}
	return t.WithContext(dbc.Ctx).Create(run).Error
}

func (r *ingestRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.IngestRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var run types.IngestRun
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *ingestRunRepo) List(dbc dbctx.Context, sourceKind string, limit int) ([]*types.IngestRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	q := t.WithContext(dbc.Ctx).Model(&types.IngestRun{})
	if sourceKind != "" {
		q = q.Where("source_kind = ?", sourceKind)
	}
	var out []*types.IngestRun
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ingestRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.IngestRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ingestRunRepo) HasActiveRun(dbc dbctx.Context, sourceKind string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if sourceKind == "" {
		return false, nil
	}
	var count int64
	err := t.WithContext(dbc.Ctx).
		Model(&types.IngestRun{}).
		Where("source_kind = ? AND status IN ?", sourceKind, []string{types.RunStatusQueued, types.RunStatusRunning}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
