package analytics

import (
	"sort"
	"time"

	"github.com/techpulse/techpulse-backend/internal/types"
)

const (
	emergingMaxTotal  = 100
	lowVolumeCeiling  = 30
	emergingRateFloor = 0.5
)

// emergingFor decides whether a technology qualifies as emerging and
// scores it. Qualification needs a small total footprint with real
// recent activity.
func emergingFor(tech string, sigs []types.Signal, leaderMentions int, windowDays int, now time.Time) (types.EmergingTechnology, bool) {
	recentCut := now.AddDate(0, 0, -windowDays)
	recent := 0
	for _, s := range sigs {
		if !s.Record.Published.Before(recentCut) {
			recent++
		}
	}
	total := len(sigs)

	if total >= emergingMaxTotal {
		return types.EmergingTechnology{}, false
	}
	if float64(recent)/float64(windowDays) <= emergingRateFloor {
		return types.EmergingTechnology{}, false
	}

	older := total - recent
	v := velocity(recent, older)
	score := 0.4 * v
	if total < lowVolumeCeiling {
		score += 0.3
	}
	score += 0.2 * float64(leaderMentions)
	score += 0.1 * minF(float64(recent), 10)

	return types.EmergingTechnology{
		Technology:    tech,
		Score:         score,
		Velocity:      v,
		RecentSignals: recent,
		TotalSignals:  total,
		LeaderQuotes:  leaderMentions,
	}, true
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func sortEmerging(rows []types.EmergingTechnology) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if rows[i].TotalSignals != rows[j].TotalSignals {
			return rows[i].TotalSignals > rows[j].TotalSignals
		}
		return rows[i].Technology < rows[j].Technology
	})
}
