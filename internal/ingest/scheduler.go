package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
)

// ErrRefreshInFlight is returned when a refresh of the same kind is
// already running. Triggers do not queue.
var ErrRefreshInFlight = errors.New("ingest: refresh already running")

const forcedWindow = 7 * 24 * time.Hour

// DeepRefresher recomputes the cached analytics outputs.
type DeepRefresher interface {
	RecomputeAll(ctx context.Context) error
}

// Scheduler drives the two periodic triggers plus the manual entry
// point. At most one catalog refresh and one deep refresh run at a
// time, guarded by compare-and-swap flags.
type Scheduler struct {
	log          *logger.Logger
	orchestrator *Orchestrator
	deep         DeepRefresher

	refreshEvery time.Duration
	deepEvery    time.Duration

	catalogBusy atomic.Bool
	deepBusy    atomic.Bool

	now func() time.Time
}

func NewScheduler(log *logger.Logger, orchestrator *Orchestrator, deep DeepRefresher, refreshEvery, deepEvery time.Duration) *Scheduler {
	if refreshEvery <= 0 {
		refreshEvery = 10 * time.Minute
	}
	if deepEvery <= 0 {
		deepEvery = 6 * time.Hour
	}
	return &Scheduler{
		log:          log.With("service", "Scheduler"),
		orchestrator: orchestrator,
		deep:         deep,
		refreshEvery: refreshEvery,
		deepEvery:    deepEvery,
		now:          time.Now,
	}
}

// Run blocks until ctx is cancelled, firing the periodic triggers. One
// catalog refresh runs immediately at startup.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("Scheduler starting",
		"refreshInterval", s.refreshEvery.String(),
		"deepInterval", s.deepEvery.String())

	if err := s.Refresh(ctx, false); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("Startup refresh failed", "error", err.Error())
	}

	catalogTicker := time.NewTicker(s.refreshEvery)
	deepTicker := time.NewTicker(s.deepEvery)
	defer catalogTicker.Stop()
	defer deepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopping")
			return
		case <-catalogTicker.C:
			if err := s.Refresh(ctx, false); err != nil && !errors.Is(err, ErrRefreshInFlight) && !errors.Is(err, context.Canceled) {
				s.log.Warn("Scheduled refresh failed", "error", err.Error())
			}
		case <-deepTicker.C:
			if err := s.DeepRefresh(ctx); err != nil && !errors.Is(err, ErrRefreshInFlight) && !errors.Is(err, context.Canceled) {
				s.log.Warn("Deep refresh failed", "error", err.Error())
			}
		}
	}
}

// Refresh runs one catalog cycle. force resets the threshold to seven
// days ago instead of the watermark. A concurrent call returns
// ErrRefreshInFlight immediately.
func (s *Scheduler) Refresh(ctx context.Context, force bool) error {
	if !s.catalogBusy.CompareAndSwap(false, true) {
		return ErrRefreshInFlight
	}
	defer s.catalogBusy.Store(false)

	threshold := s.orchestrator.InitialThreshold()
	if force {
		threshold = s.now().Add(-forcedWindow)
	}
	start := s.now()
	res, err := s.orchestrator.RunCycle(ctx, threshold)
	if err != nil {
		return err
	}
	s.log.Info("Catalog refresh finished",
		"attempts", res.Attempts,
		"new", res.New,
		"updated", res.Updated,
		"took", s.now().Sub(start).String(),
		"forced", force)
	return nil
}

// DeepRefresh recomputes cached analytics, one at a time.
func (s *Scheduler) DeepRefresh(ctx context.Context) error {
	if s.deep == nil {
		return nil
	}
	if !s.deepBusy.CompareAndSwap(false, true) {
		return ErrRefreshInFlight
	}
	defer s.deepBusy.Store(false)

	start := s.now()
	if err := s.deep.RecomputeAll(ctx); err != nil {
		return err
	}
	s.log.Info("Deep analytics refresh finished", "took", s.now().Sub(start).String())
	return nil
}

// RefreshInFlight reports whether a catalog refresh is running, for
// the health endpoint.
func (s *Scheduler) RefreshInFlight() bool {
	return s.catalogBusy.Load()
}
