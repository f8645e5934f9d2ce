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

const crossrefBaseURL = "https://api.crossref.org/works"

// CrossrefAdapter fetches recently indexed works. Crossref's polite pool
// requires a contact mailto on every request.
type CrossrefAdapter struct {
	fetch  *fetcher
	log    *logger.Logger
	mailto string
}

func NewCrossrefAdapter(log *logger.Logger, limiter *ratelimit.Limiter, mailto string) *CrossrefAdapter {
	l := log.With("adapter", "crossref")
	return &CrossrefAdapter{fetch: newFetcher(l, limiter), log: l, mailto: mailto}
}

func (a *CrossrefAdapter) Name() string { return "crossref" }

type crossrefResponse struct {
	Message struct {
		Items []crossrefWork `json:"items"`
	} `json:"message"`
}

type crossrefWork struct {
	DOI      string     `json:"DOI"`
	Title    []string   `json:"title"`
	Abstract string     `json:"abstract"`
	URL      string     `json:"URL"`
	Subject  []string   `json:"subject"`
	Author   []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
	ContainerTitle []string `json:"container-title"`
	IsReferencedBy int      `json:"is-referenced-by-count"`
	Issued         struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"issued"`
}

func (a *CrossrefAdapter) FetchLatest(ctx context.Context, limit int, dateThreshold time.Time) ([]*types.Record, error) {
	if limit <= 0 {
		limit = 25
	}
	rows := limit
	if rows > 100 {
		rows = 100
	}

	var out []*types.Record
	for offset := 0; len(out) < limit; offset += rows {
		q := url.Values{}
		q.Set("filter", "from-index-date:"+dateThreshold.Format("2006-01-02")+",type:journal-article")
		q.Set("query", "technology")
		q.Set("rows", fmt.Sprint(rows))
		q.Set("offset", fmt.Sprint(offset))
		q.Set("sort", "indexed")
		q.Set("order", "desc")
		q.Set("mailto", a.mailto)

		var resp crossrefResponse
		if err := a.fetch.getJSON(ctx, crossrefBaseURL+"?"+q.Encode(), nil, &resp); err != nil {
			return out, fmt.Errorf("crossref fetch: %w", err)
		}
		for _, w := range resp.Message.Items {
			if r, ok := a.toRecord(w, dateThreshold); ok {
				out = append(out, r)
			}
			if len(out) >= limit {
				break
			}
		}
		if len(resp.Message.Items) < rows {
			break
		}
	}
	a.log.Debug("Crossref fetch done", "records", len(out))
	return out, nil
}

func (a *CrossrefAdapter) toRecord(w crossrefWork, dateThreshold time.Time) (*types.Record, bool) {
	doi := NormalizeDOI(w.DOI)
	if doi == "" || len(w.Title) == 0 {
		return nil, false
	}
	r := &types.Record{
		Type:      types.RecordPaper,
		Title:     strings.TrimSpace(w.Title[0]),
		Summary:   stripJATS(w.Abstract),
		Link:      w.URL,
		Citations: w.IsReferencedBy,
	}
	if len(w.ContainerTitle) > 0 {
		r.Venue = w.ContainerTitle[0]
	}
	r.Published, r.DateFidelity = crossrefDate(w.Issued.DateParts)
	for _, author := range w.Author {
		name := strings.TrimSpace(strings.TrimSpace(author.Given) + " " + strings.TrimSpace(author.Family))
		if name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	r.Categories = append(r.Categories, w.Subject...)
	r.SetExternalID(types.NSDOI, doi)
	r.SetExternalID(types.NSCrossref, doi)
	if !finalize(r, dateThreshold) {
		return nil, false
	}
	return r, true
}

// crossrefDate converts Crossref date-parts, which may carry a year, a
// year-month, or a full date, defaulting missing parts to 01.
func crossrefDate(parts [][]int) (time.Time, types.DateFidelity) {
	if len(parts) == 0 || len(parts[0]) == 0 {
		return time.Time{}, ""
	}
	p := parts[0]
	year, month, day := p[0], 1, 1
	fidelity := types.FidelityYear
	if len(p) > 1 && p[1] >= 1 && p[1] <= 12 {
		month = p[1]
		fidelity = types.FidelityMonth
	}
	if len(p) > 2 && p[2] >= 1 && p[2] <= 31 {
		day = p[2]
		fidelity = types.FidelityDay
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), fidelity
}

// stripJATS removes the XML markup Crossref abstracts arrive in.
func stripJATS(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
