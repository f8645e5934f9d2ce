package signals

import (
	"sort"
	"time"

	"github.com/techpulse/techpulse-backend/internal/catalog"
	"github.com/techpulse/techpulse-backend/internal/classify"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// Aggregator turns catalog records into analytics signals.
type Aggregator struct {
	log   *logger.Logger
	store *catalog.Store
	now   func() time.Time
}

func NewAggregator(log *logger.Logger, store *catalog.Store) *Aggregator {
	return &Aggregator{
		log:   log.With("service", "SignalAggregator"),
		store: store,
		now:   time.Now,
	}
}

// AllSignals returns every signal inside the window, published
// descending.
func (a *Aggregator) AllSignals(windowDays int) []types.Signal {
	return a.collect(windowDays, "")
}

// SignalsForTechnology filters by technology membership within the
// window.
func (a *Aggregator) SignalsForTechnology(tech string, windowDays int) []types.Signal {
	return a.collect(windowDays, tech)
}

func (a *Aggregator) collect(windowDays int, tech string) []types.Signal {
	if windowDays <= 0 {
		windowDays = 30
	}
	cutoff := a.now().AddDate(0, 0, -windowDays)

	var out []types.Signal
	for _, r := range a.store.Snapshot() {
		if r.Published.Before(cutoff) {
			continue
		}
		if tech != "" && !r.HasTechnology(tech) {
			continue
		}
		out = append(out, toSignal(r))
	}
	// Snapshot is already published-descending; keep the canonical
	// order explicit for callers.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Record.Published.After(out[j].Record.Published)
	})
	return out
}

func toSignal(r *types.Record) types.Signal {
	techs := r.Technologies
	if len(techs) == 0 {
		techs = classify.Technologies(r.Title, r.Summary)
	}
	industries := r.Industries
	if len(industries) == 0 {
		texts := append([]string{r.Title, r.Summary}, r.Tags...)
		industries = classify.Industries(texts...)
	}
	return types.Signal{
		Record:       r,
		Technologies: techs,
		Industries:   industries,
		Sentiment:    Sentiment(r),
		Confidence:   signalConfidence(r),
	}
}

// signalConfidence reflects how much corroboration a record carries:
// multiple external ids and citations both raise it.
func signalConfidence(r *types.Record) float64 {
	c := 0.5
	if len(r.ExternalIDs) >= 2 {
		c += 0.2
	}
	if r.Citations > 0 {
		c += 0.2
	}
	if r.Summary != "" {
		c += 0.1
	}
	if c > 1 {
		c = 1
	}
	return c
}

// Technologies returns the distinct technology set over a signal
// sequence, sorted.
func Technologies(sigs []types.Signal) []string {
	return distinct(sigs, func(s types.Signal) []string { return s.Technologies })
}

// Industries returns the distinct industry set over a signal sequence,
// sorted.
func Industries(sigs []types.Signal) []string {
	return distinct(sigs, func(s types.Signal) []string { return s.Industries })
}

func distinct(sigs []types.Signal, pick func(types.Signal) []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range sigs {
		for _, v := range pick(s) {
			if v != "" && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}
