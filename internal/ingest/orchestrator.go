package ingest

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/techpulse/techpulse-backend/internal/catalog"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/sources"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// Window widths for the expanding-window protocol. The first attempt
// uses the watermark-derived threshold; a near-empty result widens to
// 14 days, then 30.
var retryWindows = []time.Duration{14 * 24 * time.Hour, 30 * 24 * time.Hour}

const initialWindowFloor = 48 * time.Hour

// minNewRecords is the "enough" bar for one attempt. Below it the
// window expands.
const minNewRecords = 1

// PodcastSink receives freshly ingested podcast records for transcript
// and breakdown enrichment. Implementations must not block the cycle.
type PodcastSink interface {
	HandleNewPodcasts(records []*types.Record)
}

// CycleResult summarizes one orchestrated ingestion cycle.
type CycleResult struct {
	Attempts  int
	New       int
	Updated   int
	Fetched   int
	Threshold time.Time
}

// Orchestrator runs one ingestion cycle end-to-end: concurrent adapter
// fan-out, dedup and merge, watermark update, persistence.
type Orchestrator struct {
	log        *logger.Logger
	adapters   []sources.Adapter
	store      *catalog.Store
	persister  catalog.Persister
	maxRecords int
	podcasts   PodcastSink

	now func() time.Time
}

func NewOrchestrator(log *logger.Logger, adapters []sources.Adapter, store *catalog.Store, persister catalog.Persister, maxRecords int) *Orchestrator {
	if maxRecords <= 0 {
		maxRecords = 10000
	}
	return &Orchestrator{
		log:        log.With("service", "IngestOrchestrator"),
		adapters:   adapters,
		store:      store,
		persister:  persister,
		maxRecords: maxRecords,
		now:        time.Now,
	}
}

// SetPodcastSink wires the optional transcript/breakdown handoff.
func (o *Orchestrator) SetPodcastSink(sink PodcastSink) { o.podcasts = sink }

// InitialThreshold derives the first attempt's date threshold from the
// last-paper watermark, floored at 48 hours ago.
func (o *Orchestrator) InitialThreshold() time.Time {
	floor := o.now().Add(-initialWindowFloor)
	if last := o.store.LastPaperDate(); !last.IsZero() && last.Before(floor) {
		return last
	}
	return floor
}

// RunCycle executes up to three attempts with an expanding window.
// Adapter failures inside an attempt are partial results, not cycle
// failures; the cycle only errors on cancellation.
func (o *Orchestrator) RunCycle(ctx context.Context, threshold time.Time) (CycleResult, error) {
	var res CycleResult
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempts = attempt + 1
		res.Threshold = threshold
		o.log.Info("Ingestion attempt starting",
			"attempt", res.Attempts,
			"threshold", threshold.Format(time.RFC3339),
			"adapters", len(o.adapters))

		fetched, err := o.fetchAll(ctx, threshold)
		if err != nil {
			return res, err
		}
		res.Fetched += len(fetched)

		merged := o.store.MergeBatch(fetched)
		res.New += merged.New
		res.Updated += merged.Updated
		o.log.Info("Ingestion attempt merged",
			"attempt", res.Attempts,
			"fetched", len(fetched),
			"new", merged.New,
			"updated", merged.Updated,
			"evicted", merged.Evicted)

		o.handoffPodcasts(fetched)

		if merged.New >= minNewRecords || attempt >= len(retryWindows) {
			break
		}
		threshold = o.now().Add(-retryWindows[attempt])
	}

	o.store.SetLastFetchTime(o.now())
	o.persist(ctx)
	return res, nil
}

// fetchAll fans out to every adapter concurrently, each capped at an
// equal share of the cycle budget. A failed adapter contributes an
// empty slice; its error is logged and the cycle continues.
func (o *Orchestrator) fetchAll(ctx context.Context, threshold time.Time) ([]*types.Record, error) {
	if len(o.adapters) == 0 {
		return nil, nil
	}
	perAdapter := o.maxRecords / len(o.adapters)
	if perAdapter < 1 {
		perAdapter = 1
	}

	var mu sync.Mutex
	var all []*types.Record

	g, gctx := errgroup.WithContext(ctx)
	for _, adapter := range o.adapters {
		adapter := adapter
		g.Go(func() error {
			records, err := adapter.FetchLatest(gctx, perAdapter, threshold)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				o.log.Warn("Adapter failed, continuing with partial results",
					"adapter", adapter.Name(), "error", err.Error())
			}
			if len(records) > 0 {
				mu.Lock()
				all = append(all, records...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

func (o *Orchestrator) handoffPodcasts(records []*types.Record) {
	if o.podcasts == nil {
		return
	}
	var episodes []*types.Record
	for _, r := range records {
		if r.Type == types.RecordPodcast {
			episodes = append(episodes, r)
		}
	}
	if len(episodes) > 0 {
		o.podcasts.HandleNewPodcasts(episodes)
	}
}

// persist writes the catalog document, retrying once. On the second
// failure the cycle's results stay in memory and a warning is logged.
func (o *Orchestrator) persist(ctx context.Context) {
	if o.persister == nil {
		return
	}
	doc := o.store.Document()
	err := o.persister.Save(ctx, doc)
	if err == nil {
		return
	}
	o.log.Warn("Catalog persist failed, retrying once", "error", err.Error())
	if err = o.persister.Save(ctx, doc); err != nil {
		o.log.Warn("Catalog persist failed twice, keeping results in memory", "error", err.Error())
	}
}

// Hydrate reloads the catalog from durable storage at startup. A
// missing or malformed document starts the store empty.
func (o *Orchestrator) Hydrate(ctx context.Context) {
	if o.persister == nil {
		return
	}
	doc, err := o.persister.Load(ctx)
	if err != nil {
		o.log.Warn("Catalog rehydration failed, starting empty", "error", err.Error())
		return
	}
	if doc == nil {
		o.log.Info("No persisted catalog found, starting empty")
		return
	}
	o.store.Hydrate(doc)
	o.log.Info("Catalog rehydrated", "records", o.store.Len())
}
