package analytics

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/techpulse/techpulse-backend/internal/types"
)

const maxLeaderQuotes = 20

var predictionKeywords = []string{
	"will ", "going to", "predict", "expect", "by 2030", "by 2027",
	"next year", "in five years", "the future of", "bet on", "inevitable",
}

// breakdownFromRecord extracts the attached breakdown from a podcast
// record's metadata. Breakdowns live either as a typed value (fresh in
// memory) or as a decoded JSON map (after a persistence round trip).
func breakdownFromRecord(r *types.Record) (*types.Breakdown, bool) {
	if r.Type != types.RecordPodcast || r.Metadata == nil {
		return nil, false
	}
	raw, ok := r.Metadata["breakdown"]
	if !ok || raw == nil {
		return nil, false
	}
	switch v := raw.(type) {
	case *types.Breakdown:
		return v, true
	case types.Breakdown:
		return &v, true
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		var b types.Breakdown
		if err := json.Unmarshal(encoded, &b); err != nil {
			return nil, false
		}
		return &b, true
	}
}

func containsPredictionKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range predictionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// leaderQuotesFor scans podcast breakdowns for prediction-flavored
// insights mentioning the technology.
func leaderQuotesFor(tech string, podcasts []*types.Record) []types.LeaderQuote {
	techLower := strings.ToLower(tech)
	var out []types.LeaderQuote
	for _, r := range podcasts {
		b, ok := breakdownFromRecord(r)
		if !ok {
			continue
		}
		for _, seg := range b.Segments {
			for _, ins := range seg.Insights {
				if !strings.Contains(strings.ToLower(ins.Text), techLower) {
					continue
				}
				if !containsPredictionKeyword(ins.Text) {
					continue
				}
				ts := ins.Timestamp
				if ts == "" {
					ts = seg.StartTime
				}
				speaker := ins.Speaker
				if speaker == "" {
					speaker = r.Venue
				}
				out = append(out, types.LeaderQuote{
					Technology: tech,
					Speaker:    speaker,
					Quote:      ins.Text,
					VideoID:    b.VideoID,
					Timestamp:  ts,
					Confidence: ins.DepthScore,
					Published:  r.Published.Format("2006-01-02"),
				})
			}
		}
	}
	return out
}

// topLeaderQuotes sorts by confidence, then recency, and caps at 20.
func topLeaderQuotes(quotes []types.LeaderQuote) []types.LeaderQuote {
	sort.SliceStable(quotes, func(i, j int) bool {
		if quotes[i].Confidence != quotes[j].Confidence {
			return quotes[i].Confidence > quotes[j].Confidence
		}
		return quotes[i].Published > quotes[j].Published
	})
	if len(quotes) > maxLeaderQuotes {
		quotes = quotes[:maxLeaderQuotes]
	}
	return quotes
}
