package breakdown

import (
	"context"
	"sync"

	"github.com/techpulse/techpulse-backend/internal/catalog"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

const processorQueueDepth = 64

// TranscriptSource produces the formatted transcript for a video, or
// "" when none could be obtained.
type TranscriptSource interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}

// BreakdownStore is the optional relational home for breakdowns.
type BreakdownStore interface {
	Upsert(ctx context.Context, record *types.Record) error
	SaveBreakdown(ctx context.Context, videoID string, bd *types.Breakdown) error
	HasBreakdown(ctx context.Context, videoID string) (bool, error)
}

// Processor consumes newly ingested podcast records and runs the
// transcript and breakdown pipeline over them on a single background
// worker. It implements the orchestrator's podcast sink.
type Processor struct {
	log         *logger.Logger
	transcripts TranscriptSource
	builder     *Builder
	ingestor    *Ingestor
	store       *catalog.Store
	podcasts    BreakdownStore

	queue chan *types.Record
	once  sync.Once
	wg    sync.WaitGroup
}

func NewProcessor(log *logger.Logger, transcripts TranscriptSource, builder *Builder, ingestor *Ingestor, store *catalog.Store, podcasts BreakdownStore) *Processor {
	return &Processor{
		log:         log.With("service", "PodcastProcessor"),
		transcripts: transcripts,
		builder:     builder,
		ingestor:    ingestor,
		store:       store,
		podcasts:    podcasts,
		queue:       make(chan *types.Record, processorQueueDepth),
	}
}

// Start launches the worker. It exits when ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	p.once.Do(func() {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case record := <-p.queue:
					p.process(ctx, record)
				}
			}
		}()
	})
}

// Wait blocks until the worker has exited.
func (p *Processor) Wait() { p.wg.Wait() }

// HandleNewPodcasts enqueues records without blocking the ingestion
// cycle. When the queue is full the record is skipped; the next cycle
// will hand it over again as an update.
func (p *Processor) HandleNewPodcasts(records []*types.Record) {
	for _, r := range records {
		if r.Type != types.RecordPodcast {
			continue
		}
		select {
		case p.queue <- r:
		default:
			p.log.Warn("Podcast queue full, deferring", "id", r.ID)
		}
	}
}

func (p *Processor) process(ctx context.Context, record *types.Record) {
	videoID := record.ExternalID(types.NSYouTube)
	if videoID == "" {
		return
	}
	if p.podcasts != nil {
		if err := p.podcasts.Upsert(ctx, record); err != nil {
			p.log.Warn("Podcast upsert failed", "videoId", videoID, "error", err.Error())
		}
		done, err := p.podcasts.HasBreakdown(ctx, videoID)
		if err == nil && done {
			return
		}
	} else if _, ok := record.Metadata["breakdown"]; ok {
		return
	}

	transcript, err := p.transcripts.Transcript(ctx, videoID)
	if err != nil {
		p.log.Warn("Transcript pipeline error", "videoId", videoID, "error", err.Error())
		return
	}
	if transcript == "" {
		p.log.Debug("No transcript available", "videoId", videoID)
		return
	}

	bd, err := p.builder.Build(ctx, videoID, record.Title, transcript)
	if err != nil {
		p.log.Warn("Breakdown build failed", "videoId", videoID, "error", err.Error())
		return
	}

	p.store.AttachBreakdown(record.ID, bd)
	if p.podcasts != nil {
		if err := p.podcasts.SaveBreakdown(ctx, videoID, bd); err != nil {
			p.log.Warn("Breakdown save failed", "videoId", videoID, "error", err.Error())
		}
	}

	if p.ingestor.Enabled() {
		atoms, err := p.ingestor.Ingest(ctx, bd)
		if err != nil {
			p.log.Warn("Atom ingestion failed", "videoId", videoID, "error", err.Error())
			return
		}
		if len(atoms) > 0 {
			go func() {
				if err := p.ingestor.Correlate(ctx, atoms); err != nil {
					p.log.Warn("Atom correlation failed", "videoId", videoID, "error", err.Error())
				}
			}()
		}
	}
	p.log.Info("Podcast processed", "videoId", videoID, "segments", len(bd.Segments))
}
