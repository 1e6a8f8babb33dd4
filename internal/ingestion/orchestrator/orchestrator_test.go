package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/fetch"
	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
	"github.com/openlegis/openlegis-backend/internal/ingestion/mapper"
	"github.com/openlegis/openlegis-backend/internal/ingestion/merge"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

type fakeClient struct {
	kind  source.Kind
	items []fetch.Item
}

func (c *fakeClient) Kind() source.Kind { return c.kind }

func (c *fakeClient) List(_ context.Context) ([]fetch.Item, error) {
	return c.items, nil
}

func (c *fakeClient) Fetch(_ context.Context, item fetch.Item) (*fetch.RawRecord, error) {
	return &fetch.RawRecord{
		Identity:   source.Identity{Kind: c.kind, Name: item.Name},
		ExternalID: item.Name,
		Body:       []byte("payload-" + item.Name),
		FetchedAt:  time.Now(),
	}, nil
}

type fakeGate struct {
	skip map[string]bool
}

func (g *fakeGate) ShouldIngest(_ dbctx.Context, _ source.Kind, externalID string) (bool, error) {
	return !g.skip[externalID], nil
}

type fakeMerge struct {
	mu      sync.Mutex
	applied []string
}

func (m *fakeMerge) Apply(_ context.Context, set *mapper.EntitySet) (*merge.ApplyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, set.ExternalID)
	return &merge.ApplyResult{}, nil
}

type fakeRunRepo struct {
	mu      sync.Mutex
	runs    map[uuid.UUID]*types.IngestRun
	updates map[uuid.UUID]map[string]interface{}
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{
		runs:    map[uuid.UUID]*types.IngestRun{},
		updates: map[uuid.UUID]map[string]interface{}{},
	}
}

func (r *fakeRunRepo) Create(_ dbctx.Context, run *types.IngestRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	r.runs[run.ID] = run
	return nil
}

func (r *fakeRunRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.IngestRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[id], nil
}

func (r *fakeRunRepo) List(_ dbctx.Context, _ string, _ int) ([]*types.IngestRun, error) {
	return nil, nil
}

func (r *fakeRunRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[id] = updates
	return nil
}

func (r *fakeRunRepo) HasActiveRun(_ dbctx.Context, _ string) (bool, error) { return false, nil }

type fakeCursorRepo struct {
	mu       sync.Mutex
	position map[string]string
}

func (r *fakeCursorRepo) Get(_ dbctx.Context, kind string) (*types.SourceCursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.position[kind]
	if !ok {
		return nil, nil
	}
	return &types.SourceCursor{SourceKind: kind, Position: pos}, nil
}

func (r *fakeCursorRepo) Advance(_ dbctx.Context, kind, position string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.position == nil {
		r.position = map[string]string{}
	}
	if position > r.position[kind] {
		r.position[kind] = position
	}
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

func TestRunIsolatesItemFailures(t *testing.T) {
	items := make([]fetch.Item, 0, 10)
	for i := 1; i <= 10; i++ {
		items = append(items, fetch.Item{Name: fmt.Sprintf("item-%02d", i)})
	}
	client := &fakeClient{kind: source.KindStateBulkXML, items: items}
	gate := &fakeGate{skip: map[string]bool{"item-02": true}}
	mrg := &fakeMerge{}
	runs := newFakeRunRepo()
	cursors := &fakeCursorRepo{}

	mapFn := func(rec *fetch.RawRecord) (*mapper.EntitySet, error) {
		if rec.ExternalID == "item-04" {
			return nil, &ingesterr.MappingError{Field: "printNo", Reason: "missing"}
		}
		return &mapper.EntitySet{
			IngestType: string(source.KindStateBulkXML),
			ExternalID: rec.ExternalID,
			RawPayload: rec.Body,
		}, nil
	}

	o := New(Deps{
		Clients: []fetch.Client{client},
		Gate:    gate,
		Merge:   mrg,
		Runs:    runs,
		Cursors: cursors,
		MapFn:   mapFn,
		Workers: 3,
	}, testLogger(t))

	summary, err := o.Run(context.Background(), source.KindStateBulkXML, Params{})
	require.NoError(t, err)

	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 9, summary.Fetched)
	require.Equal(t, 8, summary.Mapped)
	require.Equal(t, 8, summary.Applied)
	require.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	require.Equal(t, string(ingesterr.StageMap), summary.Failures[0].Stage)
	require.Equal(t, "item-04", summary.Failures[0].Key)

	require.Len(t, mrg.applied, 8)

	// Cursor stops short of the failed item so a resumed run retries it.
	require.Equal(t, "item-03", cursors.position[string(source.KindStateBulkXML)])

	// The persisted run row carries the final counts.
	require.Len(t, runs.updates, 1)
	for _, updates := range runs.updates {
		require.Equal(t, types.RunStatusCompleted, updates["status"])
		require.Equal(t, 8, updates["applied"])
		require.Equal(t, 1, updates["failed"])
	}
}

func TestRunResumesFromCursor(t *testing.T) {
	names := []string{
		"2025-01-02-09.00.00.000001_BILLSTATUS_S0001.XML",
		"2025-01-03-09.00.00.000002_BILLSTATUS_S0002.XML",
		"2025-01-04-09.00.00.000003_BILLSTATUS_S0003.XML",
	}
	items := make([]fetch.Item, 0, len(names))
	for _, n := range names {
		items = append(items, fetch.Item{Name: n})
	}
	mrg := &fakeMerge{}
	cursors := &fakeCursorRepo{position: map[string]string{
		string(source.KindStateBulkXML): names[1],
	}}
	o := New(Deps{
		Clients: []fetch.Client{&fakeClient{kind: source.KindStateBulkXML, items: items}},
		Gate:    &fakeGate{},
		Merge:   mrg,
		Runs:    newFakeRunRepo(),
		Cursors: cursors,
		MapFn: func(rec *fetch.RawRecord) (*mapper.EntitySet, error) {
			return &mapper.EntitySet{ExternalID: rec.ExternalID}, nil
		},
	}, testLogger(t))

	summary, err := o.Run(context.Background(), source.KindStateBulkXML, Params{})
	require.NoError(t, err)

	// Only the item past the cursor is touched.
	require.Equal(t, 1, summary.Fetched)
	require.Equal(t, 1, summary.Applied)
	require.Equal(t, []string{names[2]}, mrg.applied)
	require.Equal(t, names[2], cursors.position[string(source.KindStateBulkXML)])
}

func TestRunScopeFiltersListing(t *testing.T) {
	items := []fetch.Item{
		{Name: "BILLSTATUS-118hr7.xml"},
		{Name: "BILLSTATUS-119hr123.xml"},
		{Name: "BILLSTATUS-119s55.xml"},
	}
	mrg := &fakeMerge{}
	o := New(Deps{
		Clients: []fetch.Client{&fakeClient{kind: source.KindFederalBulkXML, items: items}},
		Gate:    &fakeGate{},
		Merge:   mrg,
		Runs:    newFakeRunRepo(),
		Cursors: &fakeCursorRepo{},
		MapFn: func(rec *fetch.RawRecord) (*mapper.EntitySet, error) {
			return &mapper.EntitySet{ExternalID: rec.ExternalID}, nil
		},
	}, testLogger(t))

	summary, err := o.Run(context.Background(), source.KindFederalBulkXML, Params{
		Scope: map[string]string{"congress": "119"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Applied)
	require.NotContains(t, mrg.applied, "BILLSTATUS-118hr7.xml")

	summary, err = o.Run(context.Background(), source.KindFederalBulkXML, Params{
		Scope: map[string]string{"package": "BILLSTATUS-119s55.xml"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Applied)
}

func TestInScopeDateRange(t *testing.T) {
	early := fetch.Item{Name: "2025-01-02-09.00.00.000001_BILLSTATUS_S0001.XML"}
	late := fetch.Item{Name: "2025-03-15-09.00.00.000002_BILLSTATUS_S0002.XML"}
	scope := map[string]string{"from": "2025-02-01", "to": "2025-03-15"}

	require.False(t, inScope(early, scope))
	require.True(t, inScope(late, scope))

	// Unparseable names stay in scope; their failure is reported per
	// item at fetch time.
	require.True(t, inScope(fetch.Item{Name: "not-a-package"}, map[string]string{"from": "2025-01-01"}))
}

func TestWatermarkStopsAtFirstFailure(t *testing.T) {
	ok := []string{"a-01", "a-02", "a-05"}
	require.Equal(t, "a-05", watermark(ok, nil))
	require.Equal(t, "a-02", watermark(ok, []FailureRecord{{Key: "a-04"}}))
	require.Equal(t, "", watermark(ok, []FailureRecord{{Key: "a-01"}}))
	require.Equal(t, "", watermark(nil, nil))
}

func TestRunUnknownKind(t *testing.T) {
	o := New(Deps{
		Clients: nil,
		Gate:    &fakeGate{},
		Merge:   &fakeMerge{},
		Runs:    newFakeRunRepo(),
		Cursors: &fakeCursorRepo{},
	}, testLogger(t))

	_, err := o.Run(context.Background(), source.Kind("unknown"), Params{})
	require.Error(t, err)
}

func TestRunRespectsLimit(t *testing.T) {
	items := make([]fetch.Item, 0, 5)
	for i := 1; i <= 5; i++ {
		items = append(items, fetch.Item{Name: fmt.Sprintf("f-%d", i)})
	}
	mrg := &fakeMerge{}
	o := New(Deps{
		Clients: []fetch.Client{&fakeClient{kind: source.KindFederalBulkXML, items: items}},
		Gate:    &fakeGate{},
		Merge:   mrg,
		Runs:    newFakeRunRepo(),
		Cursors: &fakeCursorRepo{},
		MapFn: func(rec *fetch.RawRecord) (*mapper.EntitySet, error) {
			return &mapper.EntitySet{ExternalID: rec.ExternalID}, nil
		},
	}, testLogger(t))

	summary, err := o.Run(context.Background(), source.KindFederalBulkXML, Params{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Applied)
	require.Len(t, mrg.applied, 2)
}

func TestRunCancellation(t *testing.T) {
	items := make([]fetch.Item, 0, 50)
	for i := 0; i < 50; i++ {
		items = append(items, fetch.Item{Name: fmt.Sprintf("c-%02d", i)})
	}
	ctx, cancel := context.WithCancel(context.Background())

	mrg := &fakeMerge{}
	o := New(Deps{
		Clients: []fetch.Client{&fakeClient{kind: source.KindStateBulkXML, items: items}},
		Gate:    &fakeGate{},
		Merge:   mrg,
		Runs:    newFakeRunRepo(),
		Cursors: &fakeCursorRepo{},
		MapFn: func(rec *fetch.RawRecord) (*mapper.EntitySet, error) {
			cancel()
			return &mapper.EntitySet{ExternalID: rec.ExternalID}, nil
		},
		Workers: 1,
	}, testLogger(t))

	summary, err := o.Run(ctx, source.KindStateBulkXML, Params{})
	require.ErrorIs(t, err, context.Canceled)
	// Items scheduled before cancellation completed cleanly.
	require.Less(t, summary.Applied, len(items))
}
