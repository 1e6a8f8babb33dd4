package mapper

import (
	"strings"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/fetch"
	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
)

// mapFeedEntry turns one feed entry into a transcript. The entry body is
// the linked document, usually HTML; markup is stripped before storage.
func mapFeedEntry(rec *fetch.RawRecord) (*EntitySet, error) {
	if rec.Identity.DocKind != source.DocTranscript {
		return nil, &ingesterr.MappingError{Field: "doc_kind", Reason: "no feed mapper for " + rec.Identity.DocKind}
	}
	if strings.TrimSpace(rec.ExternalID) == "" {
		return nil, &ingesterr.MappingError{Field: "guid", Reason: "missing"}
	}

	tr := &types.Transcript{
		ExtID:     rec.ExternalID,
		Text:      StripTags(string(rec.Body)),
		SourceURL: rec.SourceURL,
	}
	if rec.Identity.PublishedAt != nil {
		ts := rec.Identity.PublishedAt.UTC()
		tr.DateTime = &ts
	}
	if cat := strings.TrimSpace(rec.Meta["category"]); cat != "" {
		tr.SessionType = strings.ToUpper(cat)
	} else {
		tr.SessionType = "SESSION"
	}
	if title := strings.TrimSpace(rec.Meta["title"]); title != "" {
		tr.Location = locationFromTitle(title)
	}

	return &EntitySet{
		IngestType: string(source.KindFeed),
		ExternalID: rec.ExternalID,
		RawPayload: rec.Body,
		Transcript: tr,
	}, nil
}

// locationFromTitle pulls a trailing "at <venue>" clause out of feed
// entry titles like "Public Hearing at Hearing Room B".
func locationFromTitle(title string) string {
	if i := strings.LastIndex(title, " at "); i >= 0 {
		return strings.TrimSpace(title[i+len(" at "):])
	}
	return ""
}
