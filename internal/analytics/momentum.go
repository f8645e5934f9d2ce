package analytics

import (
	"sort"
	"time"

	"github.com/techpulse/techpulse-backend/internal/types"
)

// Source weights for the momentum blend. Sources absent from both
// windows do not dilute the weighted average.
var sourceWeights = map[types.RecordType]float64{
	types.RecordPaper:   0.30,
	types.RecordPatent:  0.25,
	types.RecordNews:    0.20,
	types.RecordPodcast: 0.15,
	types.RecordGitHub:  0.10,
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// velocity is the per-source change rate between the recent and prior
// windows.
func velocity(recent, older int) float64 {
	if older == 0 {
		if recent > 0 {
			return 1
		}
		return 0
	}
	return float64(recent-older) / float64(older)
}

// momentumFor computes the momentum row for one technology given its
// signals over a 2W-day span: the last W days versus the W days before.
func momentumFor(tech string, sigs []types.Signal, windowDays int, now time.Time) types.TechnologyMomentum {
	recentCut := now.AddDate(0, 0, -windowDays)
	olderCut := now.AddDate(0, 0, -2*windowDays)

	recent := map[types.RecordType]int{}
	older := map[types.RecordType]int{}
	total := 0
	for _, s := range sigs {
		p := s.Record.Published
		switch {
		case !p.Before(recentCut):
			recent[s.Record.Type]++
			total++
		case !p.Before(olderCut):
			older[s.Record.Type]++
			total++
		}
	}

	var weighted, weightSum float64
	bySource := map[string]float64{}
	for src, w := range sourceWeights {
		r, o := recent[src], older[src]
		if r == 0 && o == 0 {
			continue
		}
		v := velocity(r, o)
		m := v * (1 + max64(v, 0)) * w
		weighted += m
		weightSum += w
		bySource[string(src)] = v
	}

	var momentum float64
	if weightSum > 0 {
		momentum = clamp(100*weighted/weightSum, 0, 100)
	}
	return types.TechnologyMomentum{
		Technology:  tech,
		Momentum:    momentum,
		Confidence:  clamp(float64(total)/50, 0, 1),
		SignalCount: total,
		BySource:    bySource,
	}
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// sortMomentum applies the canonical list order: score descending,
// then signal count, then name.
func sortMomentum(rows []types.TechnologyMomentum) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Momentum != rows[j].Momentum {
			return rows[i].Momentum > rows[j].Momentum
		}
		if rows[i].SignalCount != rows[j].SignalCount {
			return rows[i].SignalCount > rows[j].SignalCount
		}
		return rows[i].Technology < rows[j].Technology
	})
}
