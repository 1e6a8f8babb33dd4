package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

// APIClient walks a paged REST index (the federal member directory) and
// fetches one detail document per record. Requests are rate limited to
// respect the remote API; every request carries the client timeout, so a
// hung fetch surfaces as a retryable error instead of a stall.
type APIClient struct {
	kind    source.Kind
	baseURL string
	apiKey  string
	pageSz  int
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

type APIConfig struct {
	BaseURL        string
	APIKey         string
	PageSize       int
	Timeout        time.Duration
	RequestsPerSec float64
}

type apiIndexPage struct {
	Members []struct {
		BioguideID string `json:"bioguideId"`
		URL        string `json:"url"`
	} `json:"members"`
	Pagination struct {
		Count int    `json:"count"`
		Next  string `json:"next"`
	} `json:"pagination"`
}

func NewAPIClient(cfg APIConfig, baseLog *logger.Logger) (*APIClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api client: missing base url")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 250
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	return &APIClient{
		kind:    source.KindFederalMembers,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		pageSz:  cfg.PageSize,
		http:    newHTTPClient(cfg.Timeout),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     baseLog.With("client", "APIClient"),
	}, nil
}

func (c *APIClient) Kind() source.Kind { return c.kind }

func (c *APIClient) List(ctx context.Context) ([]Item, error) {
	var items []Item
	next := fmt.Sprintf("%s/member?limit=%d", c.baseURL, c.pageSz)
	for next != "" {
		page, err := c.getIndexPage(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, m := range page.Members {
			if m.BioguideID == "" {
				continue
			}
			items = append(items, Item{
				Name: m.BioguideID,
				URL:  m.URL,
				Header: map[string]string{
					"feed":     "members",
					"doc_kind": source.DocMember,
				},
			})
		}
		next = page.Pagination.Next
	}
	return items, nil
}

func (c *APIClient) getIndexPage(ctx context.Context, pageURL string) (*apiIndexPage, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	var page apiIndexPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &ingesterr.FetchError{Op: "decode index page", Retryable: false, Err: err}
	}
	return &page, nil
}

func (c *APIClient) Fetch(ctx context.Context, item Item) (*RawRecord, error) {
	detailURL := item.URL
	if detailURL == "" {
		detailURL = fmt.Sprintf("%s/member/%s", c.baseURL, url.PathEscape(item.Name))
	}
	body, err := c.get(ctx, detailURL)
	if err != nil {
		return nil, err
	}
	return &RawRecord{
		Identity: source.Identity{
			Kind:     source.KindFederalMembers,
			DocKind:  source.DocMember,
			Name:     item.Name,
			Encoding: source.EncodingUTF8,
		},
		ExternalID: item.Name,
		Body:       body,
		FetchedAt:  time.Now().UTC(),
		SourceURL:  detailURL,
	}, nil
}

func (c *APIClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ingesterr.FetchError{Op: "rate wait", Retryable: false, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &ingesterr.FetchError{Op: "build request", Retryable: false, Err: err}
	}
	if c.apiKey != "" {
		q := req.URL.Query()
		q.Set("api_key", c.apiKey)
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Accept", "application/json")

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
