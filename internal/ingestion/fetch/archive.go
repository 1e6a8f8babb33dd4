package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

// ArchiveClient reads a staged bulk-archive directory. File names carry
// the source identity; legacy-flagged files are transcoded from
// Windows-1252 before the payload reaches any mapper.
type ArchiveClient struct {
	kind source.Kind
	dir  string
	log  *logger.Logger
}

func NewArchiveClient(kind source.Kind, dir string, baseLog *logger.Logger) (*ArchiveClient, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive client: missing directory")
	}
	return &ArchiveClient{
		kind: kind,
		dir:  dir,
		log:  baseLog.With("client", "ArchiveClient", "kind", string(kind)),
	}, nil
}

func (c *ArchiveClient) Kind() source.Kind { return c.kind }

// List enumerates archive files in name order. For the state archive the
// leading timestamp makes name order equal publication order, which is
// what gives arrival-order action sequencing its meaning.
func (c *ArchiveClient) List(ctx context.Context) ([]Item, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, &ingesterr.FetchError{Op: "list " + c.dir, Retryable: false, Err: err}
	}
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		items = append(items, Item{Name: e.Name()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (c *ArchiveClient) Fetch(ctx context.Context, item Item) (*RawRecord, error) {
	identity, err := source.Identify(item.Name, item.Header)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &ingesterr.FetchError{Op: "read " + item.Name, Retryable: false, Err: err}
	}

	raw, err := os.ReadFile(filepath.Join(c.dir, item.Name))
	if err != nil {
		return nil, &ingesterr.FetchError{Op: "read " + item.Name, Retryable: false, Err: err}
	}

	body := raw
	if identity.Encoding == source.EncodingCP1252 {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, &ingesterr.FetchError{Op: "decode " + item.Name, Retryable: false, Err: err}
		}
		body = decoded
	}

	return &RawRecord{
		Identity:   identity,
		ExternalID: item.Name,
		Body:       body,
		FetchedAt:  time.Now().UTC(),
	}, nil
}
