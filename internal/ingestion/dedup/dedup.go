// Package dedup decides whether a listed item is worth fetching and
// mapping at all. It is an optimization, not a lock: correctness under
// races belongs to the merge layer's constraints, the gate only avoids
// redundant downstream work.
package dedup

import (
	ingestrepos "github.com/openlegis/openlegis-backend/internal/data/repos/ingest"
	legisrepos "github.com/openlegis/openlegis-backend/internal/data/repos/legis"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

// Gate answers "has this item already been ingested".
type Gate interface {
	ShouldIngest(dbc dbctx.Context, kind source.Kind, externalID string) (bool, error)
}

type gate struct {
	rawLog      ingestrepos.RawPayloadLogRepo
	transcripts legisrepos.TranscriptRepo
	log         *logger.Logger
}

func NewGate(rawLog ingestrepos.RawPayloadLogRepo, transcripts legisrepos.TranscriptRepo, baseLog *logger.Logger) Gate {
	return &gate{
		rawLog:      rawLog,
		transcripts: transcripts,
		log:         baseLog.With("component", "DedupGate"),
	}
}

// ShouldIngest returns false only when persisted state proves the exact
// item was already consumed. Bulk archive files are immutable once
// published, so a raw-log hit means the file is done. Feed entries are
// keyed by guid and their documents do not change after publication.
// Member API records are never gated: re-ingestion is how attribute
// updates reach the store.
func (g *gate) ShouldIngest(dbc dbctx.Context, kind source.Kind, externalID string) (bool, error) {
	switch kind {
	case source.KindStateBulkXML, source.KindFederalBulkXML:
		seen, err := g.rawLog.HasExternalID(dbc, string(kind), externalID)
		if err != nil {
			return false, err
		}
		return !seen, nil
	case source.KindFeed:
		exists, err := g.transcripts.ExistsByExtID(dbc, externalID)
		if err != nil {
			return false, err
		}
		return !exists, nil
	default:
		return true, nil
	}
}
