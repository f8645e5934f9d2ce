package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/ratelimit"
	"github.com/techpulse/techpulse-backend/internal/types"
)

const hackerNewsSearchURL = "https://hn.algolia.com/api/v1/search_by_date"

// HackerNewsAdapter pulls recent front-page-quality stories from the
// Algolia index. Stories become news records; the HN discussion link
// goes into metadata next to the points count.
type HackerNewsAdapter struct {
	fetch *fetcher
	log   *logger.Logger
}

func NewHackerNewsAdapter(log *logger.Logger, limiter *ratelimit.Limiter) *HackerNewsAdapter {
	l := log.With("adapter", "hackernews")
	return &HackerNewsAdapter{fetch: newFetcher(l, limiter), log: l}
}

func (a *HackerNewsAdapter) Name() string { return "hackernews" }

type hnSearchResponse struct {
	Hits []hnHit `json:"hits"`
}

type hnHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Author      string `json:"author"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
	CreatedAtI  int64  `json:"created_at_i"`
	StoryText   string `json:"story_text"`
}

func (a *HackerNewsAdapter) FetchLatest(ctx context.Context, limit int, dateThreshold time.Time) ([]*types.Record, error) {
	if limit <= 0 {
		limit = 25
	}
	q := url.Values{}
	q.Set("tags", "story")
	q.Set("numericFilters", fmt.Sprintf("created_at_i>%d,points>10", dateThreshold.Unix()))
	q.Set("hitsPerPage", fmt.Sprint(limit))

	var resp hnSearchResponse
	if err := a.fetch.getJSON(ctx, hackerNewsSearchURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("hackernews fetch: %w", err)
	}

	var out []*types.Record
	for _, hit := range resp.Hits {
		if r, ok := a.toRecord(hit, dateThreshold); ok {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	a.log.Debug("Hacker News fetch done", "records", len(out))
	return out, nil
}

func (a *HackerNewsAdapter) toRecord(hit hnHit, dateThreshold time.Time) (*types.Record, bool) {
	if hit.ObjectID == "" {
		return nil, false
	}
	discussion := "https://news.ycombinator.com/item?id=" + hit.ObjectID
	r := &types.Record{
		Type:      types.RecordNews,
		Title:     strings.TrimSpace(hit.Title),
		Summary:   strings.TrimSpace(hit.StoryText),
		Link:      hit.URL,
		Venue:     "Hacker News",
		Published: time.Unix(hit.CreatedAtI, 0).UTC(),
		Metadata: map[string]any{
			"points":     hit.Points,
			"comments":   hit.NumComments,
			"discussion": discussion,
		},
	}
	if r.Link == "" {
		r.Link = discussion
	}
	if hit.Author != "" {
		r.Authors = []string{hit.Author}
	}
	if !finalize(r, dateThreshold) {
		return nil, false
	}
	return r, true
}
