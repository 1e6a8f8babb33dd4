// Package fetch pulls raw payloads from external legislative sources.
// One client exists per source kind; all expose the same List/Fetch
// contract so the orchestrator does not care where records come from.
package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
)

// Item is one raw record reference discovered by List. Fetch resolves it
// to a payload.
type Item struct {
	// Name is the file name, feed entry id, or API record id.
	Name string
	// URL is set for remote items that require a detail fetch.
	URL string
	// Header carries source metadata for items that have no parseable
	// file name (feed entries, API records).
	Header map[string]string
}

// RawRecord is a fetched payload, decoded to UTF-8, ready for mapping.
type RawRecord struct {
	Identity   source.Identity
	ExternalID string
	Body       []byte
	FetchedAt  time.Time
	// SourceURL is the document URL for HTTP-backed sources, empty for
	// archive files.
	SourceURL string
	// Meta carries per-item metadata from the listing (feed entry title
	// and category). Nil for sources whose items are self-describing.
	Meta map[string]string
}

// Client is the shared fetch contract. Fetch has no side effects beyond
// the read itself; archiving consumed files is a separate concern invoked
// after a successful run.
type Client interface {
	Kind() source.Kind
	List(ctx context.Context) ([]Item, error)
	Fetch(ctx context.Context, item Item) (*RawRecord, error)
}

// classifyHTTPError turns transport and status failures into the
// retryable/terminal split the orchestrator keys off.
func classifyHTTPError(op string, resp *http.Response, err error) error {
	if err != nil {
		retryable := true
		var ne net.Error
		if errors.As(err, &ne) {
			retryable = true
		}
		if errors.Is(err, context.Canceled) {
			retryable = false
		}
		return &ingesterr.FetchError{Op: op, Retryable: retryable, Err: err}
	}
	if resp == nil {
		return &ingesterr.FetchError{Op: op, Retryable: true, Err: errors.New("no response")}
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &ingesterr.FetchError{Op: op, Retryable: true, Err: errors.New(resp.Status)}
	}
	if resp.StatusCode >= 400 {
		return &ingesterr.FetchError{Op: op, Retryable: false, Err: errors.New(resp.Status)}
	}
	return nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
