package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/techpulse/techpulse-backend/internal/llm"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/signals"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// ErrTechnologyRequired is returned when the combined-signal query
// omits its technology.
var ErrTechnologyRequired = errors.New("analytics: technology is required")

const (
	defaultWindowDays = 30
	growthWindowDays  = 90
)

// SnapshotStore persists dated analytics snapshots. Latest* return
// (nil, zero, nil) when no snapshot exists yet.
type SnapshotStore interface {
	SaveReads(ctx context.Context, reads []types.TechnologyRead) error
	LatestReads(ctx context.Context) ([]types.TechnologyRead, time.Time, error)
	SavePredictions(ctx context.Context, reads []types.TechnologyRead) error
	LatestPredictions(ctx context.Context) ([]types.TechnologyRead, time.Time, error)
}

// CombinedSignal is the per-technology cross-source view.
type CombinedSignal struct {
	Technology   string                   `json:"technology"`
	Momentum     types.TechnologyMomentum `json:"momentum"`
	Emerging     bool                     `json:"emerging"`
	AvgSentiment float64                  `json:"avgSentiment"`
	LeaderQuotes []types.LeaderQuote      `json:"leaderQuotes"`
	RecentTitles []string                 `json:"recentTitles"`
}

// Engine computes the analytics views over the signal aggregator and
// caches the expensive prediction reads between deep refreshes.
type Engine struct {
	log       *logger.Logger
	agg       *signals.Aggregator
	client    llm.Client
	snapshots SnapshotStore

	mu          sync.RWMutex
	predictions []types.TechnologyRead
	generatedAt time.Time
	narrative   *types.MetaNarrative
	narratives  NarrativeStore

	now func() time.Time
}

func NewEngine(log *logger.Logger, agg *signals.Aggregator, client llm.Client, snapshots SnapshotStore) *Engine {
	return &Engine{
		log:       log.With("service", "AnalyticsEngine"),
		agg:       agg,
		client:    client,
		snapshots: snapshots,
		now:       time.Now,
	}
}

// TechnologyMomentumList ranks every observed technology by momentum.
func (e *Engine) TechnologyMomentumList(windowDays int) []types.TechnologyMomentum {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	now := e.now()
	all := e.agg.AllSignals(2 * windowDays)

	rows := make([]types.TechnologyMomentum, 0)
	for tech, sigs := range groupByTechnology(all) {
		rows = append(rows, momentumFor(tech, sigs, windowDays, now))
	}
	sortMomentum(rows)
	return rows
}

// IndustryGrowthList ranks industries by growth score over a 90-day
// default window.
func (e *Engine) IndustryGrowthList(windowDays int) []types.IndustryGrowth {
	if windowDays <= 0 {
		windowDays = growthWindowDays
	}
	now := e.now()
	all := e.agg.AllSignals(windowDays)

	byIndustry := map[string][]types.Signal{}
	for _, s := range all {
		for _, ind := range s.Industries {
			byIndustry[ind] = append(byIndustry[ind], s)
		}
	}
	rows := make([]types.IndustryGrowth, 0, len(byIndustry))
	for ind, sigs := range byIndustry {
		rows = append(rows, growthFor(ind, sigs, now))
	}
	sortGrowth(rows)
	return rows
}

// EmergingList returns qualifying early-stage technologies.
func (e *Engine) EmergingList(windowDays int) []types.EmergingTechnology {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	now := e.now()
	all := e.agg.AllSignals(2 * windowDays)
	podcasts := podcastRecords(all)

	var rows []types.EmergingTechnology
	for tech, sigs := range groupByTechnology(all) {
		mentions := len(leaderQuotesFor(tech, podcasts))
		if row, ok := emergingFor(tech, sigs, mentions, windowDays, now); ok {
			rows = append(rows, row)
		}
	}
	sortEmerging(rows)
	return rows
}

// LeaderQuotes returns the top prediction-flavored quotes across all
// technologies.
func (e *Engine) LeaderQuotes() []types.LeaderQuote {
	all := e.agg.AllSignals(growthWindowDays)
	podcasts := podcastRecords(all)

	var quotes []types.LeaderQuote
	for _, tech := range signals.Technologies(all) {
		quotes = append(quotes, leaderQuotesFor(tech, podcasts)...)
	}
	return topLeaderQuotes(quotes)
}

// CombinedSignal assembles the per-technology cross-source view.
func (e *Engine) CombinedSignal(tech string) (CombinedSignal, error) {
	if tech == "" {
		return CombinedSignal{}, ErrTechnologyRequired
	}
	now := e.now()
	sigs := e.agg.SignalsForTechnology(tech, 2 * defaultWindowDays)
	podcasts := podcastRecords(sigs)

	row := momentumFor(tech, sigs, defaultWindowDays, now)
	_, emerging := emergingFor(tech, sigs, 0, defaultWindowDays, now)

	var sentimentSum float64
	var sentimentN int
	var titles []string
	for _, s := range sigs {
		if s.Record.Type == types.RecordNews {
			sentimentSum += s.Sentiment
			sentimentN++
		}
		if len(titles) < 5 {
			titles = append(titles, s.Record.Title)
		}
	}
	avg := 0.0
	if sentimentN > 0 {
		avg = sentimentSum / float64(sentimentN)
	}
	return CombinedSignal{
		Technology:   tech,
		Momentum:     row,
		Emerging:     emerging,
		AvgSentiment: avg,
		LeaderQuotes: topLeaderQuotes(leaderQuotesFor(tech, podcasts)),
		RecentTitles: titles,
	}, nil
}

// Predictions serves the cached ranked reads, computing them on first
// use when no deep refresh has run yet.
func (e *Engine) Predictions(ctx context.Context) []types.TechnologyRead {
	e.mu.RLock()
	cached := e.predictions
	e.mu.RUnlock()
	if cached != nil {
		return cached
	}
	if e.snapshots != nil {
		if reads, at, err := e.snapshots.LatestPredictions(ctx); err == nil && len(reads) > 0 {
			e.mu.Lock()
			e.predictions = reads
			e.generatedAt = at
			e.mu.Unlock()
			return reads
		}
	}
	reads := e.computeReads(ctx)
	e.mu.Lock()
	e.predictions = reads
	e.generatedAt = e.now()
	e.mu.Unlock()
	return reads
}

// GeneratedAt reports when the cached predictions were computed.
func (e *Engine) GeneratedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generatedAt
}

// RecomputeAll is the deep-refresh entry point: recompute reads and
// persist them as dated snapshots.
func (e *Engine) RecomputeAll(ctx context.Context) error {
	start := e.now()
	reads := e.computeReads(ctx)
	narrative := e.buildNarrative(ctx, reads)

	e.mu.Lock()
	e.predictions = reads
	e.generatedAt = e.now()
	e.narrative = narrative
	e.mu.Unlock()

	if e.snapshots != nil {
		if err := e.snapshots.SaveReads(ctx, reads); err != nil {
			e.log.Warn("Saving reads snapshot failed", "error", err.Error())
		}
		if err := e.snapshots.SavePredictions(ctx, reads); err != nil {
			e.log.Warn("Saving predictions snapshot failed", "error", err.Error())
		}
	}
	if e.narratives != nil {
		if err := e.narratives.Save(ctx, narrative); err != nil {
			e.log.Warn("Saving meta narrative failed", "error", err.Error())
		}
	}
	e.log.Info("Analytics recomputed", "technologies", len(reads), "took", e.now().Sub(start).String())
	return ctx.Err()
}

func (e *Engine) computeReads(ctx context.Context) []types.TechnologyRead {
	now := e.now()
	all := e.agg.AllSignals(2 * defaultWindowDays)
	podcasts := podcastRecords(all)

	reads := make([]types.TechnologyRead, 0)
	for tech, sigs := range groupByTechnology(all) {
		row := momentumFor(tech, sigs, defaultWindowDays, now)
		_, emerging := emergingFor(tech, sigs, 0, defaultWindowDays, now)

		patents := 0
		var titles []string
		for _, s := range sigs {
			if s.Record.Type == types.RecordPatent {
				patents++
			}
			if s.Record.Type == types.RecordPaper && len(titles) < 3 {
				titles = append(titles, s.Record.Title)
			}
		}
		quotes := len(leaderQuotesFor(tech, podcasts))

		reads = append(reads, buildRead(ctx, e.client, readInput{
			Momentum:    row,
			Emerging:    emerging,
			QuoteCount:  quotes,
			PatentCount: patents,
			TopTitles:   titles,
		}))
	}
	sortReads(reads)
	return reads
}

func groupByTechnology(sigs []types.Signal) map[string][]types.Signal {
	out := map[string][]types.Signal{}
	for _, s := range sigs {
		for _, tech := range s.Technologies {
			out[tech] = append(out[tech], s)
		}
	}
	return out
}

func podcastRecords(sigs []types.Signal) []*types.Record {
	var out []*types.Record
	for _, s := range sigs {
		if s.Record.Type == types.RecordPodcast {
			out = append(out, s.Record)
		}
	}
	return out
}
