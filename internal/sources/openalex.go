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

const openAlexBaseURL = "https://api.openalex.org/works"

// OpenAlexAdapter pages through recent works with the native cursor.
type OpenAlexAdapter struct {
	fetch *fetcher
	log   *logger.Logger
}

func NewOpenAlexAdapter(log *logger.Logger, limiter *ratelimit.Limiter) *OpenAlexAdapter {
	l := log.With("adapter", "openalex")
	return &OpenAlexAdapter{fetch: newFetcher(l, limiter), log: l}
}

func (a *OpenAlexAdapter) Name() string { return "openalex" }

type openAlexResponse struct {
	Meta struct {
		NextCursor string `json:"next_cursor"`
	} `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string `json:"id"`
	DOI             string `json:"doi"`
	Title           string `json:"title"`
	PublicationDate string `json:"publication_date"`
	CitedByCount    int    `json:"cited_by_count"`
	Authorships     []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	PrimaryLocation *struct {
		LandingPageURL string `json:"landing_page_url"`
		PdfURL         string `json:"pdf_url"`
		Source         *struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	Concepts []struct {
		DisplayName string  `json:"display_name"`
		Score       float64 `json:"score"`
	} `json:"concepts"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	IDs                   struct {
		PMID string `json:"pmid"`
	} `json:"ids"`
}

func (a *OpenAlexAdapter) FetchLatest(ctx context.Context, limit int, dateThreshold time.Time) ([]*types.Record, error) {
	if limit <= 0 {
		limit = 25
	}
	perPage := limit
	if perPage > 50 {
		perPage = 50
	}

	var out []*types.Record
	cursor := "*"
	for cursor != "" && len(out) < limit {
		q := url.Values{}
		q.Set("filter", "from_publication_date:"+dateThreshold.Format("2006-01-02")+",concepts.id:C154945302")
		q.Set("sort", "publication_date:desc")
		q.Set("per-page", fmt.Sprint(perPage))
		q.Set("cursor", cursor)

		var resp openAlexResponse
		if err := a.fetch.getJSON(ctx, openAlexBaseURL+"?"+q.Encode(), nil, &resp); err != nil {
			return out, fmt.Errorf("openalex fetch: %w", err)
		}
		for _, w := range resp.Results {
			if r, ok := a.toRecord(w, dateThreshold); ok {
				out = append(out, r)
			}
			if len(out) >= limit {
				break
			}
		}
		if len(resp.Results) < perPage {
			break
		}
		cursor = resp.Meta.NextCursor
	}
	a.log.Debug("OpenAlex fetch done", "records", len(out))
	return out, nil
}

func (a *OpenAlexAdapter) toRecord(w openAlexWork, dateThreshold time.Time) (*types.Record, bool) {
	oaID := strings.TrimPrefix(strings.TrimSpace(w.ID), "https://openalex.org/")
	if oaID == "" {
		return nil, false
	}
	r := &types.Record{
		Type:      types.RecordPaper,
		Title:     strings.TrimSpace(w.Title),
		Summary:   reconstructAbstract(w.AbstractInvertedIndex),
		Citations: w.CitedByCount,
	}
	if t, err := time.Parse("2006-01-02", w.PublicationDate); err == nil {
		r.Published = t.UTC()
	}
	for _, auth := range w.Authorships {
		if name := strings.TrimSpace(auth.Author.DisplayName); name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	if loc := w.PrimaryLocation; loc != nil {
		r.Link = loc.LandingPageURL
		r.PDFLink = loc.PdfURL
		if loc.Source != nil {
			r.Venue = loc.Source.DisplayName
		}
	}
	for _, c := range w.Concepts {
		if c.Score >= 0.4 && c.DisplayName != "" {
			r.Categories = append(r.Categories, c.DisplayName)
		}
	}
	r.SetExternalID(types.NSOpenAlex, oaID)
	if w.DOI != "" {
		r.SetExternalID(types.NSDOI, NormalizeDOI(w.DOI))
	}
	if pmid := strings.TrimPrefix(w.IDs.PMID, "https://pubmed.ncbi.nlm.nih.gov/"); pmid != "" && pmid != w.IDs.PMID {
		r.SetExternalID(types.NSPubmed, strings.TrimSuffix(pmid, "/"))
	}
	if !finalize(r, dateThreshold) {
		return nil, false
	}
	return r, true
}

// reconstructAbstract rebuilds plain text from OpenAlex's inverted index.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	maxPos := -1
	for _, positions := range index {
		for _, p := range positions {
			if p > maxPos {
				maxPos = p
			}
		}
	}
	if maxPos < 0 || maxPos > 5000 {
		return ""
	}
	words := make([]string, maxPos+1)
	for word, positions := range index {
		for _, p := range positions {
			if p >= 0 && p <= maxPos {
				words[p] = word
			}
		}
	}
	return strings.TrimSpace(strings.Join(words, " "))
}
