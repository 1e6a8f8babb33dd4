package source

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
)

func TestIdentifyFederalBillStatus(t *testing.T) {
	id, err := Identify("BILLSTATUS-119hr123.xml", nil)
	require.NoError(t, err)
	require.Equal(t, KindFederalBulkXML, id.Kind)
	require.Equal(t, DocBillStatus, id.DocKind)
	require.Equal(t, 119, id.Session)
	require.Equal(t, "HR123", id.PrintNo)
	require.Equal(t, EncodingUTF8, id.Encoding)
}

func TestIdentifyFederalLaw(t *testing.T) {
	id, err := Identify("PLAW-118publ42.xml", nil)
	require.NoError(t, err)
	require.Equal(t, DocLawText, id.DocKind)
	require.Equal(t, 118, id.Session)
	require.Equal(t, 42, id.LawNo)
}

func TestIdentifyStateBulkFile(t *testing.T) {
	id, err := Identify("2024-03-01-12.15.30.123456_BILLSTATUS_S01234B.XML", nil)
	require.NoError(t, err)
	require.Equal(t, KindStateBulkXML, id.Kind)
	require.Equal(t, DocBillStatus, id.DocKind)
	require.Equal(t, "S01234B", id.PrintNo)
	// 2024 belongs to the 2023 two-year session.
	require.Equal(t, 2023, id.Session)
	require.NotNil(t, id.PublishedAt)
	require.Equal(t, time.Date(2024, 3, 1, 12, 15, 30, 123456000, time.UTC), id.PublishedAt.UTC())
	require.Equal(t, EncodingUTF8, id.Encoding)
}

func TestIdentifyStateMemberFile(t *testing.T) {
	id, err := Identify("2025-02-10-08.30.00.000042_MEMBER_369.XML", nil)
	require.NoError(t, err)
	require.Equal(t, KindStateBulkXML, id.Kind)
	require.Equal(t, DocMember, id.DocKind)
	require.Equal(t, "369", id.PrintNo)
	require.Equal(t, 2025, id.Session)
}

func TestIdentifyLegacyTranscriptFlagsEncoding(t *testing.T) {
	id, err := Identify("SESSION-TRANSCRIPT-031524-0007.TXT", nil)
	require.NoError(t, err)
	require.Equal(t, DocTranscript, id.DocKind)
	require.Equal(t, EncodingCP1252, id.Encoding)
	require.Equal(t, 7, id.SeqNo)
	require.NotNil(t, id.PublishedAt)
	require.Equal(t, 2024, id.PublishedAt.Year())
}

func TestIdentifyFeedEntryFromHeader(t *testing.T) {
	id, err := Identify("https://legislature.example.gov/transcripts/2024/0301", map[string]string{
		"feed":      "transcripts",
		"published": "Fri, 01 Mar 2024 12:15:30 -0500",
	})
	require.NoError(t, err)
	require.Equal(t, KindFeed, id.Kind)
	require.NotNil(t, id.PublishedAt)
}

func TestIdentifyRejectsUnknownNames(t *testing.T) {
	for _, name := range []string{
		"",
		"notes.txt",
		"BILLSTATUS-119xx123.xml",
		"2024-03-01-12.15.30.123456_UNKNOWN_S1.XML",
	} {
		_, err := Identify(name, nil)
		require.Error(t, err, "name %q", name)
		var pe *ingesterr.ParseError
		require.True(t, errors.As(err, &pe), "want ParseError for %q, got %v", name, err)
	}
}
