package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/techpulse/techpulse-backend/internal/llm"
	"github.com/techpulse/techpulse-backend/internal/types"
)

const templateGenerator = "Template"

// predictionScore blends momentum, an early-stage bonus, leader-quote
// volume and patent volume into one 0-100 rank.
func predictionScore(momentum float64, emerging bool, quoteCount, patentCount int) float64 {
	score := 0.4 * momentum
	if emerging {
		score += 0.2 * 100
	}
	score += 0.2 * minF(float64(quoteCount), 10) * 10
	score += 0.2 * minF(float64(patentCount), 20) * 5
	return clamp(score, 0, 100)
}

// readInput carries everything a technology read is written from.
type readInput struct {
	Momentum    types.TechnologyMomentum
	Emerging    bool
	QuoteCount  int
	PatentCount int
	TopTitles   []string
}

// buildRead produces the narrative for one technology, via the LLM
// client when configured, otherwise from the template.
func buildRead(ctx context.Context, client llm.Client, in readInput) types.TechnologyRead {
	read := types.TechnologyRead{
		Technology:  in.Momentum.Technology,
		Score:       predictionScore(in.Momentum.Momentum, in.Emerging, in.QuoteCount, in.PatentCount),
		Momentum:    in.Momentum.Momentum,
		PatentCount: in.PatentCount,
		QuoteCount:  in.QuoteCount,
		SignalCount: in.Momentum.SignalCount,
	}
	if client != nil {
		if summary, full, err := llmRead(ctx, client, in); err == nil && summary != "" {
			read.Summary = summary
			read.FullRead = full
			read.GeneratedBy = client.Name()
			return read
		}
	}
	read.Summary, read.FullRead = templateRead(in)
	read.GeneratedBy = templateGenerator
	return read
}

func llmRead(ctx context.Context, client llm.Client, in readInput) (summary, full string, err error) {
	var out struct {
		Summary  string `json:"summary"`
		FullRead string `json:"full_read"`
	}
	prompt := fmt.Sprintf(
		"Technology: %s\nMomentum: %.0f/100\nRecent signals: %d\nPatents: %d\nLeader quotes: %d\nNotable recent titles:\n- %s\n\nWrite a JSON object with a \"summary\" (2-3 sentences) and a \"full_read\" (3 short paragraphs) describing where this technology is heading.",
		in.Momentum.Technology, in.Momentum.Momentum, in.Momentum.SignalCount,
		in.PatentCount, in.QuoteCount, strings.Join(in.TopTitles, "\n- "))
	if err := client.GenerateJSON(ctx, "You are a technology analyst writing concise market reads.", prompt, &out); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(out.Summary), strings.TrimSpace(out.FullRead), nil
}

// templateRead assembles a read from the counts alone. Always
// non-empty so predictions never serve blank sections.
func templateRead(in readInput) (summary, full string) {
	tech := in.Momentum.Technology
	trend := "steady"
	switch {
	case in.Momentum.Momentum >= 70:
		trend = "accelerating sharply"
	case in.Momentum.Momentum >= 40:
		trend = "gaining ground"
	case in.Momentum.Momentum < 10:
		trend = "quiet"
	}
	summary = fmt.Sprintf(
		"%s is %s with %d signals in the current window and a momentum of %.0f/100. Activity spans %d patents and %d leader quotes.",
		tech, trend, in.Momentum.SignalCount, in.Momentum.Momentum, in.PatentCount, in.QuoteCount)

	var b strings.Builder
	fmt.Fprintf(&b, "Signal volume: %d records mention %s in the current window, putting momentum at %.0f/100.\n\n",
		in.Momentum.SignalCount, tech, in.Momentum.Momentum)
	if in.Emerging {
		fmt.Fprintf(&b, "Stage: %s still has a small total footprint, which marks it as an early-stage technology with room to run.\n\n", tech)
	} else {
		fmt.Fprintf(&b, "Stage: %s has an established signal base across sources.\n\n", tech)
	}
	fmt.Fprintf(&b, "Corroboration: %d recent patents and %d prediction-flavored quotes from practitioners.", in.PatentCount, in.QuoteCount)
	if len(in.TopTitles) > 0 {
		fmt.Fprintf(&b, " Recent work includes: %s.", strings.Join(in.TopTitles, "; "))
	}
	return summary, b.String()
}

func sortReads(rows []types.TechnologyRead) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if rows[i].SignalCount != rows[j].SignalCount {
			return rows[i].SignalCount > rows[j].SignalCount
		}
		return rows[i].Technology < rows[j].Technology
	})
}
