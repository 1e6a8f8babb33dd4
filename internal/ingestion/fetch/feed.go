package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

// FeedClient reads an RSS feed of published transcripts/notices. The
// feed entry is the raw record; the linked document is fetched only when
// the entry carries no inline content.
type FeedClient struct {
	feedURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

type FeedConfig struct {
	URL            string
	Timeout        time.Duration
	RequestsPerSec float64
}

type rssDoc struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
	Category    string `xml:"category"`
}

func NewFeedClient(cfg FeedConfig, baseLog *logger.Logger) (*FeedClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("feed client: missing feed url")
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 1
	}
	return &FeedClient{
		feedURL: cfg.URL,
		http:    newHTTPClient(cfg.Timeout),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     baseLog.With("client", "FeedClient"),
	}, nil
}

func (c *FeedClient) Kind() source.Kind { return source.KindFeed }

func (c *FeedClient) List(ctx context.Context) ([]Item, error) {
	body, err := c.get(ctx, c.feedURL)
	if err != nil {
		return nil, err
	}
	items, err := ParseFeed(body)
	if err != nil {
		return nil, &ingesterr.FetchError{Op: "parse feed", Retryable: false, Err: err}
	}
	return items, nil
}

// ParseFeed decodes an RSS payload into fetch items. Split out so tests
// can exercise the feed grammar without a server.
func ParseFeed(body []byte) ([]Item, error) {
	var doc rssDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(doc.Channel.Items))
	for _, e := range doc.Channel.Items {
		id := e.GUID
		if id == "" {
			id = e.Link
		}
		if id == "" {
			continue
		}
		header := map[string]string{
			"feed":      "transcripts",
			"doc_kind":  source.DocTranscript,
			"published": e.PubDate,
			"title":     e.Title,
			"category":  e.Category,
		}
		items = append(items, Item{Name: id, URL: e.Link, Header: header})
	}
	return items, nil
}

func (c *FeedClient) Fetch(ctx context.Context, item Item) (*RawRecord, error) {
	identity, err := source.Identify(item.Name, item.Header)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, item.URL)
	if err != nil {
		return nil, err
	}
	return &RawRecord{
		Identity:   identity,
		ExternalID: item.Name,
		Body:       body,
		FetchedAt:  time.Now().UTC(),
		SourceURL:  item.URL,
		Meta:       item.Header,
	}, nil
}

func (c *FeedClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, &ingesterr.FetchError{Op: "get", Retryable: false, Err: fmt.Errorf("missing url")}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ingesterr.FetchError{Op: "rate wait", Retryable: false, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &ingesterr.FetchError{Op: "build request", Retryable: false, Err: err}
	}
	resp, err := c.http.Do(req)
	if ferr := classifyHTTPError("GET "+rawURL, resp, err); ferr != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, ferr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ingesterr.FetchError{Op: "read body", Retryable: true, Err: err}
	}
	return body, nil
}
