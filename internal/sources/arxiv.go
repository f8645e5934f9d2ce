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

const arxivBaseURL = "http://export.arxiv.org/api/query"

var arxivCategories = []string{
	"cs.AI", "cs.LG", "cs.CL", "cs.CV", "cs.RO", "cs.CR",
	"stat.ML", "quant-ph", "eess.AS",
}

// ArxivAdapter pulls recent submissions from the arXiv Atom API, one
// category per cycle.
type ArxivAdapter struct {
	fetch *fetcher
	log   *logger.Logger
	now   func() time.Time
}

func NewArxivAdapter(log *logger.Logger, limiter *ratelimit.Limiter) *ArxivAdapter {
	l := log.With("adapter", "arxiv")
	return &ArxivAdapter{fetch: newFetcher(l, limiter), log: l, now: time.Now}
}

func (a *ArxivAdapter) Name() string { return "arxiv" }

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Updated   string   `xml:"updated"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Title string `xml:"title,attr"`
		Type  string `xml:"type,attr"`
	} `xml:"link"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

func (a *ArxivAdapter) FetchLatest(ctx context.Context, limit int, dateThreshold time.Time) ([]*types.Record, error) {
	if limit <= 0 {
		limit = 25
	}
	category := rotate(arxivCategories, a.now())

	var out []*types.Record
	pageSize := limit
	if pageSize > 100 {
		pageSize = 100
	}
	for start := 0; len(out) < limit; start += pageSize {
		q := url.Values{}
		q.Set("search_query", "cat:"+category)
		q.Set("start", fmt.Sprint(start))
		q.Set("max_results", fmt.Sprint(pageSize))
		q.Set("sortBy", "submittedDate")
		q.Set("sortOrder", "descending")

		var feed arxivFeed
		if err := a.fetch.getXML(ctx, arxivBaseURL+"?"+q.Encode(), nil, &feed); err != nil {
			return out, fmt.Errorf("arxiv fetch: %w", err)
		}

		pastThreshold := false
		for _, e := range feed.Entries {
			r, ok := a.toRecord(e, dateThreshold)
			if !ok {
				if !e.parsedPublished().IsZero() && e.parsedPublished().Before(dateThreshold) {
					pastThreshold = true
				}
				continue
			}
			out = append(out, r)
			if len(out) >= limit {
				break
			}
		}
		if len(feed.Entries) < pageSize || pastThreshold {
			break
		}
	}
	a.log.Debug("arXiv page fetched", "category", category, "records", len(out))
	return out, nil
}

func (e arxivEntry) parsedPublished() time.Time {
	t, _ := time.Parse(time.RFC3339, strings.TrimSpace(e.Published))
	return t.UTC()
}

func (a *ArxivAdapter) toRecord(e arxivEntry, dateThreshold time.Time) (*types.Record, bool) {
	arxivID := strings.TrimSpace(e.ID)
	// Entry ids look like http://arxiv.org/abs/2401.00001v2.
	if i := strings.LastIndex(arxivID, "/abs/"); i >= 0 {
		arxivID = arxivID[i+len("/abs/"):]
	}
	if i := strings.LastIndex(arxivID, "v"); i > 0 && !strings.Contains(arxivID[i:], "/") {
		if _, rest := arxivID[:i], arxivID[i+1:]; allDigits(rest) {
			arxivID = arxivID[:i]
		}
	}
	if arxivID == "" {
		return nil, false
	}

	r := &types.Record{
		Type:      types.RecordPaper,
		Title:     strings.TrimSpace(e.Title),
		Summary:   strings.TrimSpace(e.Summary),
		Published: e.parsedPublished(),
		Venue:     "arXiv",
		Link:      "https://arxiv.org/abs/" + arxivID,
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Updated)); err == nil {
		r.Updated = t.UTC()
	}
	for _, author := range e.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	for _, c := range e.Categories {
		if term := strings.TrimSpace(c.Term); term != "" {
			r.Categories = append(r.Categories, term)
		}
	}
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			r.PDFLink = l.Href
		}
	}
	r.SetExternalID(types.NSArxiv, arxivID)
	if !finalize(r, dateThreshold) {
		return nil, false
	}
	return r, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
