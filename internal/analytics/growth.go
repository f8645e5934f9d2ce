package analytics

import (
	"sort"
	"time"

	"github.com/techpulse/techpulse-backend/internal/types"
)

const growthEpsilon = 0.1

// growthFor buckets an industry's signals by year-month and compares
// the last three months against the earlier months. Fewer than two
// non-zero months is treated as no trend at all.
func growthFor(industry string, sigs []types.Signal, now time.Time) types.IndustryGrowth {
	buckets := map[string]int{}
	for _, s := range sigs {
		buckets[s.Record.Published.Format("2006-01")]++
	}

	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)

	nonZero := 0
	total := 0
	for _, m := range months {
		if buckets[m] > 0 {
			nonZero++
		}
		total += buckets[m]
	}
	if nonZero < 2 {
		return types.IndustryGrowth{
			Industry:    industry,
			GrowthScore: 0,
			Confidence:  clamp(float64(total)/50, 0, 0.3),
			SignalCount: total,
		}
	}

	split := len(months) - 3
	if split < 0 {
		split = 0
	}
	recentMonths := months[split:]
	olderMonths := months[:split]

	recentAvg := meanCount(buckets, recentMonths)
	olderAvg := meanCount(buckets, olderMonths)

	denom := olderAvg
	if denom < growthEpsilon {
		denom = growthEpsilon
	}
	rate := 100 * (recentAvg - olderAvg) / denom
	return types.IndustryGrowth{
		Industry:    industry,
		GrowthRate:  rate,
		GrowthScore: clamp(50+rate, 0, 100),
		Confidence:  clamp(float64(total)/50, 0, 1),
		SignalCount: total,
	}
}

func meanCount(buckets map[string]int, months []string) float64 {
	if len(months) == 0 {
		return 0
	}
	sum := 0
	for _, m := range months {
		sum += buckets[m]
	}
	return float64(sum) / float64(len(months))
}

func sortGrowth(rows []types.IndustryGrowth) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].GrowthScore != rows[j].GrowthScore {
			return rows[i].GrowthScore > rows[j].GrowthScore
		}
		if rows[i].SignalCount != rows[j].SignalCount {
			return rows[i].SignalCount > rows[j].SignalCount
		}
		return rows[i].Industry < rows[j].Industry
	})
}
