// Package orchestrator drives one ingestion pass: list the source,
// then fetch, dedup, map and apply each item. Item failures are
// isolated; only infrastructure failures abort the run.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/openlegis/openlegis-backend/internal/data/repos"
	types "github.com/openlegis/openlegis-backend/internal/domain"
	"github.com/openlegis/openlegis-backend/internal/ingestion/dedup"
	"github.com/openlegis/openlegis-backend/internal/ingestion/fetch"
	"github.com/openlegis/openlegis-backend/internal/ingestion/ingesterr"
	"github.com/openlegis/openlegis-backend/internal/ingestion/mapper"
	"github.com/openlegis/openlegis-backend/internal/ingestion/merge"
	"github.com/openlegis/openlegis-backend/internal/ingestion/source"
	"github.com/openlegis/openlegis-backend/internal/pkg/dbctx"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
)

// Params scopes one run. Zero values mean "everything the source lists".
type Params struct {
	Trigger string            `json:"trigger,omitempty"`
	Limit   int               `json:"limit,omitempty"`
	Scope   map[string]string `json:"scope,omitempty"`
}

// FailureRecord locates one failed item.
type FailureRecord struct {
	Stage   string `json:"stage"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

// RunSummary is the aggregate outcome of one pass.
type RunSummary struct {
	RunID      uuid.UUID       `json:"run_id"`
	SourceKind string          `json:"source_kind"`
	Fetched    int             `json:"fetched"`
	Skipped    int             `json:"skipped"`
	Mapped     int             `json:"mapped"`
	Applied    int             `json:"applied"`
	Failed     int             `json:"failed"`
	Failures   []FailureRecord `json:"failures,omitempty"`
}

// MapFunc translates one raw record; swapped in tests.
type MapFunc func(*fetch.RawRecord) (*mapper.EntitySet, error)

type Orchestrator struct {
	clients map[source.Kind]fetch.Client
	gate    dedup.Gate
	merge   merge.Service
	mapFn   MapFunc
	runs    repos.IngestRunRepo
	cursors repos.SourceCursorRepo
	workers int
	log     *logger.Logger
}

type Deps struct {
	Clients []fetch.Client
	Gate    dedup.Gate
	Merge   merge.Service
	Runs    repos.IngestRunRepo
	Cursors repos.SourceCursorRepo
	// MapFn defaults to mapper.Map.
	MapFn MapFunc
	// Workers bounds in-flight items, default 4.
	Workers int
}

func New(d Deps, baseLog *logger.Logger) *Orchestrator {
	clients := make(map[source.Kind]fetch.Client, len(d.Clients))
	for _, c := range d.Clients {
		clients[c.Kind()] = c
	}
	mapFn := d.MapFn
	if mapFn == nil {
		mapFn = mapper.Map
	}
	workers := d.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Orchestrator{
		clients: clients,
		gate:    d.Gate,
		merge:   d.Merge,
		mapFn:   mapFn,
		runs:    d.Runs,
		cursors: d.Cursors,
		workers: workers,
		log:     baseLog.With("component", "Orchestrator"),
	}
}

// Run executes one pass for the source kind. The returned summary is
// also persisted on the ingest_run row. An error return means the run
// itself could not proceed; item-level failures end up in the summary.
func (o *Orchestrator) Run(ctx context.Context, kind source.Kind, params Params) (*RunSummary, error) {
	client, ok := o.clients[kind]
	if !ok {
		return nil, fmt.Errorf("orchestrator: no client for source kind %q", kind)
	}
	if params.Trigger == "" {
		params.Trigger = types.TriggerManual
	}

	dbc := dbctx.New(ctx)
	run, err := o.startRun(dbc, kind, params)
	if err != nil {
		return nil, err
	}
	log := o.log.With("run_id", run.ID.String(), "source_kind", string(kind))
	log.Info("ingestion run started", "trigger", params.Trigger)

	summary, runErr := o.process(ctx, client, kind, params, log)
	summary.RunID = run.ID
	summary.SourceKind = string(kind)

	o.finishRun(dbctx.New(context.WithoutCancel(ctx)), run.ID, summary, ctx.Err(), runErr)
	if runErr != nil {
		log.Error("ingestion run aborted", "error", runErr)
		return summary, runErr
	}
	log.Info("ingestion run finished",
		"fetched", summary.Fetched, "skipped", summary.Skipped,
		"mapped", summary.Mapped, "applied", summary.Applied, "failed", summary.Failed)
	return summary, nil
}

func (o *Orchestrator) process(ctx context.Context, client fetch.Client, kind source.Kind, params Params, log *logger.Logger) (*RunSummary, error) {
	summary := &RunSummary{}

	items, err := client.List(ctx)
	if err != nil {
		// Listing failure is infrastructure-level: nothing was processed.
		return summary, err
	}
	items = filterScope(items, params.Scope)
	if isCursorTracked(kind) {
		cur, err := o.cursors.Get(dbctx.New(ctx), string(kind))
		if err != nil {
			return summary, err
		}
		if cur != nil && cur.Position != "" {
			items = afterPosition(items, cur.Position)
		}
	}
	if params.Limit > 0 && len(items) > params.Limit {
		items = items[:params.Limit]
	}

	var mu sync.Mutex
	var okNames []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, item := range items {
		item := item
		g.Go(func() error {
			// Cancellation stops scheduling new items; the in-flight
			// transaction below still completes or aborts cleanly.
			if gctx.Err() != nil {
				return gctx.Err()
			}
			outcome := o.processItem(gctx, client, kind, item)
			mu.Lock()
			defer mu.Unlock()
			summary.Fetched += outcome.fetched
			summary.Skipped += outcome.skipped
			summary.Mapped += outcome.mapped
			summary.Applied += outcome.applied
			if outcome.failure != nil {
				summary.Failed++
				summary.Failures = append(summary.Failures, *outcome.failure)
			} else if outcome.applied > 0 || outcome.skipped > 0 {
				okNames = append(okNames, item.Name)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].Key < summary.Failures[j].Key
	})

	if isCursorTracked(kind) {
		if pos := watermark(okNames, summary.Failures); pos != "" {
			if err := o.cursors.Advance(dbctx.New(ctx), string(kind), pos); err != nil {
				log.Warn("cursor advance failed", "error", err)
			}
		}
	}
	return summary, nil
}

// filterScope narrows a listing to the requested congress or session,
// publication date range, or single package. Items whose names do not
// parse are kept; a grammar mismatch belongs to the per-item fetch
// stage, not the listing.
func filterScope(items []fetch.Item, scope map[string]string) []fetch.Item {
	if len(scope) == 0 {
		return items
	}
	kept := items[:0:0]
	for _, item := range items {
		if inScope(item, scope) {
			kept = append(kept, item)
		}
	}
	return kept
}

func inScope(item fetch.Item, scope map[string]string) bool {
	if v := scope["package"]; v != "" && v != item.Name {
		return false
	}
	id, err := source.Identify(item.Name, item.Header)
	if err != nil {
		return true
	}
	for _, key := range []string{"congress", "session"} {
		if v := scope[key]; v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || id.Session != n {
				return false
			}
		}
	}
	if v := scope["from"]; v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil || id.PublishedAt == nil || id.PublishedAt.Before(t) {
			return false
		}
	}
	if v := scope["to"]; v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil || id.PublishedAt == nil || !id.PublishedAt.Before(t.AddDate(0, 0, 1)) {
			return false
		}
	}
	return true
}

// afterPosition drops items at or below the persisted cursor. Archive
// listings are already name-sorted, so this is a prefix cut.
func afterPosition(items []fetch.Item, position string) []fetch.Item {
	i := sort.Search(len(items), func(i int) bool { return items[i].Name > position })
	return items[i:]
}

// watermark is the highest item name safe to persist as the resume
// position: every listed item below it was applied or skipped, none
// failed. Advancing past a failure would hide that item from every
// later resumed run.
func watermark(okNames []string, failures []FailureRecord) string {
	sort.Strings(okNames)
	bound := ""
	for _, f := range failures {
		if bound == "" || f.Key < bound {
			bound = f.Key
		}
	}
	pos := ""
	for _, name := range okNames {
		if bound != "" && name >= bound {
			break
		}
		pos = name
	}
	return pos
}

type itemOutcome struct {
	fetched, skipped, mapped, applied int
	failure                           *FailureRecord
}

func (o *Orchestrator) processItem(ctx context.Context, client fetch.Client, kind source.Kind, item fetch.Item) itemOutcome {
	out := itemOutcome{}
	fail := func(err error) itemOutcome {
		stage := string(ingesterr.StageOf(err))
		if stage == "" {
			stage = string(ingesterr.StageApply)
		}
		out.failure = &FailureRecord{Stage: stage, Key: item.Name, Message: err.Error()}
		o.log.Warn("item failed", "source_kind", string(kind), "item", item.Name,
			"stage", stage, "error", err)
		return out
	}

	proceed, err := o.gate.ShouldIngest(dbctx.New(ctx), kind, item.Name)
	if err != nil {
		return fail(&ingesterr.PersistenceError{Err: err})
	}
	if !proceed {
		out.skipped = 1
		return out
	}

	rec, err := client.Fetch(ctx, item)
	if err != nil {
		return fail(err)
	}
	out.fetched = 1

	set, err := o.mapFn(rec)
	if err != nil {
		return fail(err)
	}
	out.mapped = 1

	if _, err := o.merge.Apply(ctx, set); err != nil {
		return fail(err)
	}
	out.applied = 1
	return out
}

func (o *Orchestrator) startRun(dbc dbctx.Context, kind source.Kind, params Params) (*types.IngestRun, error) {
	now := time.Now().UTC()
	paramsJSON, _ := json.Marshal(params)
	run := &types.IngestRun{
		SourceKind: string(kind),
		Trigger:    params.Trigger,
		Status:     types.RunStatusRunning,
		Params:     datatypes.JSON(paramsJSON),
		StartedAt:  &now,
	}
	if err := o.runs.Create(dbc, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (o *Orchestrator) finishRun(dbc dbctx.Context, runID uuid.UUID, summary *RunSummary, ctxErr, runErr error) {
	now := time.Now().UTC()
	status := types.RunStatusCompleted
	errMsg := ""
	switch {
	case ctxErr != nil:
		status = types.RunStatusCanceled
		errMsg = ctxErr.Error()
	case runErr != nil:
		status = types.RunStatusFailed
		errMsg = runErr.Error()
	}
	updates := map[string]interface{}{
		"status":      status,
		"fetched":     summary.Fetched,
		"skipped":     summary.Skipped,
		"mapped":      summary.Mapped,
		"applied":     summary.Applied,
		"failed":      summary.Failed,
		"error":       errMsg,
		"finished_at": now,
	}
	if len(summary.Failures) > 0 {
		if buf, err := json.Marshal(summary.Failures); err == nil {
			updates["failures"] = datatypes.JSON(buf)
		}
	}
	if err := o.runs.UpdateFields(dbc, runID, updates); err != nil {
		o.log.Error("failed to finalize run row", "run_id", runID.String(), "error", err)
	}
}

// isCursorTracked: only ordered bulk archives have a meaningful resume
// position (their file names sort by publication). API and feed sources
// are re-listed in full every pass.
func isCursorTracked(kind source.Kind) bool {
	return kind == source.KindStateBulkXML || kind == source.KindFederalBulkXML
}
