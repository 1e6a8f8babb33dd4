package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

type stubRawLog struct {
	seen map[string]bool
}

func (s *stubRawLog) Insert(dbc dbctx.Context, row *types.RawPayloadLog) error { return nil }

func (s *stubRawLog) HasExternalID(dbc dbctx.Context, ingestType, externalID string) (bool, error) {
	return s.seen[ingestType+"|"+externalID], nil
}

func (s *stubRawLog) ListByKey(dbc dbctx.Context, ingestType, externalID string) ([]*types.RawPayloadLog, error) {
	return nil, nil
}

type stubTranscripts struct {
	known map[string]bool
}

func (s *stubTranscripts) UpsertByExtID(dbc dbctx.Context, row *types.Transcript) error { return nil }

func (s *stubTranscripts) GetByExtID(dbc dbctx.Context, extID string) (*types.Transcript, error) {
	return nil, nil
}

func (s *stubTranscripts) ExistsByExtID(dbc dbctx.Context, extID string) (bool, error) {
	return s.known[extID], nil
}

func testLog(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

func TestGateBulkArchiveUsesRawLog(t *testing.T) {
	rawLog := &stubRawLog{seen: map[string]bool{
		string(source.KindStateBulkXML) + "|2025-01-03-old.xml": true,
	}}
	g := NewGate(rawLog, &stubTranscripts{}, testLog(t))
	dbc := dbctx.New(context.Background())

	ok, err := g.ShouldIngest(dbc, source.KindStateBulkXML, "2025-01-03-old.xml")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = g.ShouldIngest(dbc, source.KindStateBulkXML, "2025-01-04-new.xml")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGateFeedUsesTranscriptExtID(t *testing.T) {
	transcripts := &stubTranscripts{known: map[string]bool{"guid-1": true}}
	g := NewGate(&stubRawLog{}, transcripts, testLog(t))
	dbc := dbctx.New(context.Background())

	ok, err := g.ShouldIngest(dbc, source.KindFeed, "guid-1")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = g.ShouldIngest(dbc, source.KindFeed, "guid-2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGateNeverBlocksMemberAPI(t *testing.T) {
	rawLog := &stubRawLog{seen: map[string]bool{
		string(source.KindFederalMembers) + "|B000123": true,
	}}
	g := NewGate(rawLog, &stubTranscripts{}, testLog(t))

	ok, err := g.ShouldIngest(dbctx.New(context.Background()), source.KindFederalMembers, "B000123")
	require.NoError(t, err)
	require.True(t, ok)
}
