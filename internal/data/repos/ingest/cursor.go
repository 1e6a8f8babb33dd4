package ingest

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

type SourceCursorRepo interface {
	Get(dbc dbctx.Context, sourceKind string) (*types.SourceCursor, error)
	// Advance persists a new position for the source. Positions only move
	// forward: an older position than the stored one is a no-op.
	Advance(dbc dbctx.Context, sourceKind, position string) error
}

type sourceCursorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceCursorRepo(db *gorm.DB, baseLog *logger.Logger) SourceCursorRepo {
	return &sourceCursorRepo{
		db:  db,
		log: baseLog.With("repo", "SourceCursorRepo"),
	}
}

func (r *sourceCursorRepo) Get(dbc dbctx.Context, sourceKind string) (*types.SourceCursor, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if sourceKind == "" {
		return nil, nil
	}
	var row types.SourceCursor
	err := t.WithContext(dbc.Ctx).Where("source_kind = ?", sourceKind).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *sourceCursorRepo) Advance(dbc dbctx.Context, sourceKind, position string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if sourceKind == "" || position == "" {
		return nil
	}
	row := &types.SourceCursor{
		ID:         uuid.New(),
		SourceKind: sourceKind,
		Position:   position,
		UpdatedAt:  time.Now().UTC(),
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "source_kind"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"position":   gorm.Expr("GREATEST(source_cursor.position, excluded.position)"),
				"updated_at": row.UpdatedAt,
			}),
		}).
		Create(row).Error
}
