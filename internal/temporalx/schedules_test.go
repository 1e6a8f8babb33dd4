package temporalx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSchedules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSchedules(t *testing.T) {
	path := writeSchedules(t, `
schedules:
  - source_kind: state_bulk_xml
    interval: 15m
    limit: 50
  - source_kind: feed
    cron: "0 6 * * *"
`)
	specs, err := LoadSchedules(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	require.Equal(t, "state_bulk_xml", specs[0].SourceKind)
	require.Equal(t, "15m", specs[0].Interval)
	require.Equal(t, 50, specs[0].Limit)
	require.Equal(t, "feed", specs[1].SourceKind)
	require.Equal(t, "0 6 * * *", specs[1].Cron)
}

func TestLoadSchedulesEmptyPath(t *testing.T) {
	specs, err := LoadSchedules("")
	require.NoError(t, err)
	require.Nil(t, specs)
}

func TestLoadSchedulesRejectsUnknownKind(t *testing.T) {
	path := writeSchedules(t, `
schedules:
  - source_kind: municipal_pdf
    interval: 1h
`)
	_, err := LoadSchedules(path)
	require.ErrorContains(t, err, "unknown source kind")
}

func TestLoadSchedulesRequiresIntervalOrCron(t *testing.T) {
	path := writeSchedules(t, `
schedules:
  - source_kind: federal_bulk_xml
`)
	_, err := LoadSchedules(path)
	require.ErrorContains(t, err, "needs interval or cron")
}
