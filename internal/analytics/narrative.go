package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/techpulse/techpulse-backend/internal/llm"
	"github.com/techpulse/techpulse-backend/internal/types"
)

const narrativeTopReads = 5

// NarrativeStore persists generated meta narratives.
type NarrativeStore interface {
	Save(ctx context.Context, narrative *types.MetaNarrative) error
	Latest(ctx context.Context, limit int) ([]*types.MetaNarrative, error)
}

// SetNarrativeStore attaches the optional relational home for meta
// narratives. Without one the engine serves the in-memory copy only.
func (e *Engine) SetNarrativeStore(store NarrativeStore) {
	e.narratives = store
}

// MetaNarrative serves the latest cross-technology digest, computing
// one on first use when no deep refresh has run yet.
func (e *Engine) MetaNarrative(ctx context.Context) *types.MetaNarrative {
	e.mu.RLock()
	cached := e.narrative
	e.mu.RUnlock()
	if cached != nil {
		return cached
	}
	if e.narratives != nil {
		if rows, err := e.narratives.Latest(ctx, 1); err == nil && len(rows) > 0 {
			e.mu.Lock()
			e.narrative = rows[0]
			e.mu.Unlock()
			return rows[0]
		}
	}
	narrative := e.buildNarrative(ctx, e.Predictions(ctx))
	e.mu.Lock()
	e.narrative = narrative
	e.mu.Unlock()
	return narrative
}

// buildNarrative assembles the digest from the top ranked reads, via
// the LLM client when configured, otherwise from the template.
func (e *Engine) buildNarrative(ctx context.Context, reads []types.TechnologyRead) *types.MetaNarrative {
	top := reads
	if len(top) > narrativeTopReads {
		top = top[:narrativeTopReads]
	}
	narrative := &types.MetaNarrative{
		ID:          uuid.New(),
		GeneratedAt: e.now().UTC(),
	}
	if e.client != nil && len(top) > 0 {
		if title, body, err := llmNarrative(ctx, e.client, top); err == nil && body != "" {
			narrative.Title = title
			narrative.Body = body
			return narrative
		}
	}
	narrative.Title, narrative.Body = templateNarrative(top, e.now().UTC())
	return narrative
}

func llmNarrative(ctx context.Context, client llm.Client, top []types.TechnologyRead) (title, body string, err error) {
	var out struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	var b strings.Builder
	for _, r := range top {
		fmt.Fprintf(&b, "- %s (score %.0f, momentum %.0f): %s\n", r.Technology, r.Score, r.Momentum, r.Summary)
	}
	prompt := fmt.Sprintf(
		"Top-ranked technologies right now:\n%s\nWrite a JSON object with a short \"title\" and a \"body\" of 2-3 paragraphs tying these threads into one digest of where the field is moving.",
		b.String())
	if err := client.GenerateJSON(ctx, "You are a technology analyst writing a cross-technology digest.", prompt, &out); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(out.Title), strings.TrimSpace(out.Body), nil
}

func templateNarrative(top []types.TechnologyRead, at time.Time) (title, body string) {
	title = fmt.Sprintf("Technology digest for %s", at.Format("2006-01-02"))
	if len(top) == 0 {
		return title, "No technology signals in the current window."
	}
	names := make([]string, 0, len(top))
	for _, r := range top {
		names = append(names, r.Technology)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Leading this window: %s.\n\n", strings.Join(names, ", "))
	for _, r := range top {
		fmt.Fprintf(&b, "%s (score %.0f/100): %s\n\n", r.Technology, r.Score, r.Summary)
	}
	return title, strings.TrimSpace(b.String())
}
