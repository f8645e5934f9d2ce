package sources

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/ratelimit"
	"github.com/techpulse/techpulse-backend/internal/types"
)

const s2BaseURL = "https://api.semanticscholar.org/graph/v1"

var s2Topics = []string{
	"large language models", "reinforcement learning", "computer vision",
	"speech recognition", "robotics", "quantum computing",
	"knowledge graphs", "federated learning",
}

const s2Fields = "title,abstract,year,publicationDate,authors,venue,citationCount,externalIds,openAccessPdf,url,fieldsOfStudy"

// SemanticScholarAdapter queries the Graph API paper search, one topic
// per cycle. An API key is optional and raises the allowed rate.
type SemanticScholarAdapter struct {
	fetch  *fetcher
	log    *logger.Logger
	apiKey string
	now    func() time.Time
}

func NewSemanticScholarAdapter(log *logger.Logger, limiter *ratelimit.Limiter) *SemanticScholarAdapter {
	l := log.With("adapter", "semanticscholar")
	return &SemanticScholarAdapter{
		fetch:  newFetcher(l, limiter),
		log:    l,
		apiKey: strings.TrimSpace(os.Getenv("SEMANTIC_SCHOLAR_API_KEY")),
		now:    time.Now,
	}
}

func (a *SemanticScholarAdapter) Name() string { return "semanticscholar" }

type s2SearchResponse struct {
	Total int       `json:"total"`
	Next  int       `json:"next"`
	Data  []s2Paper `json:"data"`
}

type s2Paper struct {
	PaperID         string `json:"paperId"`
	Title           string `json:"title"`
	Abstract        string `json:"abstract"`
	Year            int    `json:"year"`
	PublicationDate string `json:"publicationDate"`
	Venue           string `json:"venue"`
	URL             string `json:"url"`
	CitationCount   int    `json:"citationCount"`
	Authors         []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ExternalIDs   map[string]any `json:"externalIds"`
	FieldsOfStudy []string       `json:"fieldsOfStudy"`
	OpenAccessPdf *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

func (a *SemanticScholarAdapter) headers() map[string]string {
	if a.apiKey == "" {
		return nil
	}
	return map[string]string{"x-api-key": a.apiKey}
}

func (a *SemanticScholarAdapter) FetchLatest(ctx context.Context, limit int, dateThreshold time.Time) ([]*types.Record, error) {
	if limit <= 0 {
		limit = 25
	}
	topic := rotate(s2Topics, a.now())

	q := url.Values{}
	q.Set("query", topic)
	q.Set("limit", fmt.Sprint(limit))
	q.Set("sort", "publicationDate:desc")
	q.Set("fields", s2Fields)
	q.Set("publicationDateOrYear", dateThreshold.Format("2006-01-02")+":")

	var resp s2SearchResponse
	if err := a.fetch.getJSON(ctx, s2BaseURL+"/paper/search?"+q.Encode(), a.headers(), &resp); err != nil {
		return nil, fmt.Errorf("semantic scholar fetch: %w", err)
	}

	var out []*types.Record
	for _, p := range resp.Data {
		if r, ok := a.toRecord(p, dateThreshold); ok {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	a.log.Debug("Semantic Scholar search done", "topic", topic, "records", len(out))
	return out, nil
}

// Search implements the optional ad-hoc query surface.
func (a *SemanticScholarAdapter) Search(ctx context.Context, query string, limit int) ([]*types.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", fmt.Sprint(limit))
	q.Set("fields", s2Fields)

	var resp s2SearchResponse
	if err := a.fetch.getJSON(ctx, s2BaseURL+"/paper/search?"+q.Encode(), a.headers(), &resp); err != nil {
		return nil, fmt.Errorf("semantic scholar search: %w", err)
	}
	var out []*types.Record
	for _, p := range resp.Data {
		if r, ok := a.toRecord(p, time.Time{}); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Enrich backfills citation counts and missing external ids by paper id.
func (a *SemanticScholarAdapter) Enrich(ctx context.Context, r *types.Record) error {
	ssID := r.ExternalID(types.NSSemanticScholar)
	if ssID == "" {
		if doi := r.ExternalID(types.NSDOI); doi != "" {
			ssID = "DOI:" + doi
		} else if arxivID := r.ExternalID(types.NSArxiv); arxivID != "" {
			ssID = "arXiv:" + arxivID
		} else {
			return nil
		}
	}
	var p s2Paper
	u := s2BaseURL + "/paper/" + url.PathEscape(ssID) + "?fields=" + url.QueryEscape(s2Fields)
	if err := a.fetch.getJSON(ctx, u, a.headers(), &p); err != nil {
		return fmt.Errorf("semantic scholar enrich: %w", err)
	}
	if p.CitationCount > r.Citations {
		r.Citations = p.CitationCount
	}
	r.SetExternalID(types.NSSemanticScholar, p.PaperID)
	applyS2ExternalIDs(r, p.ExternalIDs)
	return nil
}

func (a *SemanticScholarAdapter) toRecord(p s2Paper, dateThreshold time.Time) (*types.Record, bool) {
	r := &types.Record{
		Type:      types.RecordPaper,
		Title:     strings.TrimSpace(p.Title),
		Summary:   strings.TrimSpace(p.Abstract),
		Venue:     strings.TrimSpace(p.Venue),
		Link:      p.URL,
		Citations: p.CitationCount,
	}
	if p.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", p.PublicationDate); err == nil {
			r.Published = t.UTC()
			r.DateFidelity = types.FidelityDay
		}
	}
	if r.Published.IsZero() && p.Year > 0 {
		r.Published = time.Date(p.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		r.DateFidelity = types.FidelityYear
	}
	for _, author := range p.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	r.Categories = append(r.Categories, p.FieldsOfStudy...)
	if p.OpenAccessPdf != nil {
		r.PDFLink = p.OpenAccessPdf.URL
	}
	r.SetExternalID(types.NSSemanticScholar, p.PaperID)
	applyS2ExternalIDs(r, p.ExternalIDs)
	if !finalize(r, dateThreshold) {
		return nil, false
	}
	return r, true
}

func applyS2ExternalIDs(r *types.Record, ids map[string]any) {
	for key, v := range ids {
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		switch strings.ToLower(key) {
		case "arxiv":
			r.SetExternalID(types.NSArxiv, s)
		case "doi":
			r.SetExternalID(types.NSDOI, NormalizeDOI(s))
		case "pubmed":
			r.SetExternalID(types.NSPubmed, s)
		case "dblp":
			r.SetExternalID(types.NSDBLP, s)
		}
	}
}

// NormalizeDOI lowercases and strips resolver prefixes so the same DOI
// from different sources collides.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(strings.ToLower(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}
