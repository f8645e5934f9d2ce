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

const dblpBaseURL = "https://dblp.org/search/publ/api"

var dblpQueries = []string{
	"neural network", "distributed systems", "language model",
	"graph learning", "program synthesis", "data privacy",
}

// DBLPAdapter searches the publication API. DBLP reports year-only
// dates, so everything lands on January 1 with year fidelity and the
// threshold check is effectively a same-year check.
type DBLPAdapter struct {
	fetch *fetcher
	log   *logger.Logger
	now   func() time.Time
}

func NewDBLPAdapter(log *logger.Logger, limiter *ratelimit.Limiter) *DBLPAdapter {
	l := log.With("adapter", "dblp")
	return &DBLPAdapter{fetch: newFetcher(l, limiter), log: l, now: time.Now}
}

func (a *DBLPAdapter) Name() string { return "dblp" }

type dblpResult struct {
	Hits struct {
		Hit []dblpHit `xml:"hit"`
	} `xml:"hits"`
}

type dblpHit struct {
	Info struct {
		Key     string `xml:"key"`
		Title   string `xml:"title"`
		Venue   string `xml:"venue"`
		Year    string `xml:"year"`
		URL     string `xml:"ee"`
		DOI     string `xml:"doi"`
		Authors struct {
			Author []string `xml:"author"`
		} `xml:"authors"`
	} `xml:"info"`
}

func (a *DBLPAdapter) FetchLatest(ctx context.Context, limit int, dateThreshold time.Time) ([]*types.Record, error) {
	if limit <= 0 {
		limit = 25
	}
	query := rotate(dblpQueries, a.now())

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "xml")
	q.Set("h", fmt.Sprint(limit*2))

	var result dblpResult
	if err := a.fetch.getXML(ctx, dblpBaseURL+"?"+q.Encode(), nil, &result); err != nil {
		return nil, fmt.Errorf("dblp fetch: %w", err)
	}

	// Year-only fidelity: admit anything from the threshold year on.
	yearFloor := time.Date(dateThreshold.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	var out []*types.Record
	for _, hit := range result.Hits.Hit {
		if r, ok := a.toRecord(hit, yearFloor); ok {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	a.log.Debug("DBLP fetch done", "query", query, "records", len(out))
	return out, nil
}

func (a *DBLPAdapter) toRecord(hit dblpHit, dateThreshold time.Time) (*types.Record, bool) {
	info := hit.Info
	key := strings.TrimSpace(info.Key)
	if key == "" {
		return nil, false
	}
	year := 0
	fmt.Sscanf(strings.TrimSpace(info.Year), "%d", &year)
	if year == 0 {
		return nil, false
	}
	r := &types.Record{
		Type:         types.RecordPaper,
		Title:        strings.TrimSuffix(strings.TrimSpace(info.Title), "."),
		Venue:        strings.TrimSpace(info.Venue),
		Link:         info.URL,
		Published:    time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		DateFidelity: types.FidelityYear,
	}
	if r.Link == "" {
		r.Link = "https://dblp.org/rec/" + key
	}
	for _, author := range info.Authors.Author {
		if name := strings.TrimSpace(author); name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	r.SetExternalID(types.NSDBLP, key)
	if info.DOI != "" {
		r.SetExternalID(types.NSDOI, NormalizeDOI(info.DOI))
	}
	if !finalize(r, dateThreshold) {
		return nil, false
	}
	return r, true
}
