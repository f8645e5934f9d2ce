package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/ratelimit"
	"github.com/techpulse/techpulse-backend/internal/types"
)

const patentsViewURL = "https://api.patentsview.org/patents/query"

// PatentsAdapter queries PatentsView for recently granted patents whose
// titles mention a rotating technology term.
type PatentsAdapter struct {
	fetch *fetcher
	log   *logger.Logger
	now   func() time.Time
}

var patentTerms = []string{
	"machine learning", "neural network", "battery",
	"semiconductor", "autonomous vehicle", "gene editing",
}

func NewPatentsAdapter(log *logger.Logger, limiter *ratelimit.Limiter) *PatentsAdapter {
	l := log.With("adapter", "patents")
	return &PatentsAdapter{fetch: newFetcher(l, limiter), log: l, now: time.Now}
}

func (a *PatentsAdapter) Name() string { return "patents" }

type patentsResponse struct {
	Patents []patentEntry `json:"patents"`
}

type patentEntry struct {
	PatentNumber string `json:"patent_number"`
	Title        string `json:"patent_title"`
	Abstract     string `json:"patent_abstract"`
	Date         string `json:"patent_date"`
	Assignees    []struct {
		Organization string `json:"assignee_organization"`
	} `json:"assignees"`
	Inventors []struct {
		First string `json:"inventor_first_name"`
		Last  string `json:"inventor_last_name"`
	} `json:"inventors"`
}

func (a *PatentsAdapter) FetchLatest(ctx context.Context, limit int, dateThreshold time.Time) ([]*types.Record, error) {
	if limit <= 0 {
		limit = 25
	}
	term := rotate(patentTerms, a.now())

	query, err := json.Marshal(map[string]any{
		"_and": []map[string]any{
			{"_gte": map[string]string{"patent_date": dateThreshold.Format("2006-01-02")}},
			{"_text_any": map[string]string{"patent_title": term}},
		},
	})
	if err != nil {
		return nil, err
	}
	fields, _ := json.Marshal([]string{
		"patent_number", "patent_title", "patent_abstract", "patent_date",
		"assignee_organization", "inventor_first_name", "inventor_last_name",
	})
	opts, _ := json.Marshal(map[string]any{"per_page": limit})

	q := url.Values{}
	q.Set("q", string(query))
	q.Set("f", string(fields))
	q.Set("o", string(opts))

	var resp patentsResponse
	if err := a.fetch.getJSON(ctx, patentsViewURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("patents fetch: %w", err)
	}

	var out []*types.Record
	for _, p := range resp.Patents {
		if r, ok := a.toRecord(p, dateThreshold); ok {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	a.log.Debug("Patents fetch done", "term", term, "records", len(out))
	return out, nil
}

func (a *PatentsAdapter) toRecord(p patentEntry, dateThreshold time.Time) (*types.Record, bool) {
	number := strings.TrimSpace(p.PatentNumber)
	if number == "" {
		return nil, false
	}
	r := &types.Record{
		Type:    types.RecordPatent,
		Title:   strings.TrimSpace(p.Title),
		Summary: strings.TrimSpace(p.Abstract),
		Venue:   "USPTO",
		Link:    "https://patents.google.com/patent/US" + number,
		Metadata: map[string]any{
			"patentNumber": number,
		},
	}
	if t, err := time.Parse("2006-01-02", p.Date); err == nil {
		r.Published = t.UTC()
	}
	for _, inv := range p.Inventors {
		name := strings.TrimSpace(strings.TrimSpace(inv.First) + " " + strings.TrimSpace(inv.Last))
		if name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	if len(p.Assignees) > 0 && p.Assignees[0].Organization != "" {
		r.Metadata["assignee"] = p.Assignees[0].Organization
	}
	if !finalize(r, dateThreshold) {
		return nil, false
	}
	return r, true
}
