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

const (
	pubmedSearchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedFetchURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

var pubmedQueries = []string{
	"artificial intelligence", "machine learning diagnosis",
	"deep learning imaging", "computational biology",
	"digital health", "genomics sequencing",
}

// PubmedAdapter runs esearch for recent ids, then efetch for the
// article XML.
type PubmedAdapter struct {
	fetch *fetcher
	log   *logger.Logger
	now   func() time.Time
}

func NewPubmedAdapter(log *logger.Logger, limiter *ratelimit.Limiter) *PubmedAdapter {
	l := log.With("adapter", "pubmed")
	return &PubmedAdapter{fetch: newFetcher(l, limiter), log: l, now: time.Now}
}

func (a *PubmedAdapter) Name() string { return "pubmed" }

type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Medline struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    string `xml:"ArticleTitle"`
			Abstract struct {
				Text []string `xml:"AbstractText"`
			} `xml:"Abstract"`
			Journal struct {
				Title   string `xml:"Title"`
				Issue   struct {
					PubDate struct {
						Year  string `xml:"Year"`
						Month string `xml:"Month"`
						Day   string `xml:"Day"`
					} `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
			AuthorList struct {
				Authors []struct {
					LastName string `xml:"LastName"`
					ForeName string `xml:"ForeName"`
				} `xml:"Author"`
			} `xml:"AuthorList"`
			ELocationIDs []struct {
				Type  string `xml:"EIdType,attr"`
				Value string `xml:",chardata"`
			} `xml:"ELocationID"`
		} `xml:"Article"`
		Keywords struct {
			Keyword []string `xml:"Keyword"`
		} `xml:"KeywordList"`
	} `xml:"MedlineCitation"`
}

func (a *PubmedAdapter) FetchLatest(ctx context.Context, limit int, dateThreshold time.Time) ([]*types.Record, error) {
	if limit <= 0 {
		limit = 25
	}
	query := rotate(pubmedQueries, a.now())

	days := int(a.now().Sub(dateThreshold).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("term", query)
	q.Set("reldate", fmt.Sprint(days))
	q.Set("datetype", "pdat")
	q.Set("retmax", fmt.Sprint(limit))
	q.Set("sort", "pub_date")
	q.Set("retmode", "json")

	var search pubmedSearchResponse
	if err := a.fetch.getJSON(ctx, pubmedSearchURL+"?"+q.Encode(), nil, &search); err != nil {
		return nil, fmt.Errorf("pubmed esearch: %w", err)
	}
	ids := search.ESearchResult.IDList
	if len(ids) == 0 {
		return nil, nil
	}

	fq := url.Values{}
	fq.Set("db", "pubmed")
	fq.Set("id", strings.Join(ids, ","))
	fq.Set("retmode", "xml")

	var set pubmedArticleSet
	if err := a.fetch.getXML(ctx, pubmedFetchURL+"?"+fq.Encode(), nil, &set); err != nil {
		return nil, fmt.Errorf("pubmed efetch: %w", err)
	}

	var out []*types.Record
	for _, article := range set.Articles {
		if r, ok := a.toRecord(article, dateThreshold); ok {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	a.log.Debug("PubMed fetch done", "query", query, "records", len(out))
	return out, nil
}

func (a *PubmedAdapter) toRecord(article pubmedArticle, dateThreshold time.Time) (*types.Record, bool) {
	m := article.Medline
	pmid := strings.TrimSpace(m.PMID)
	if pmid == "" {
		return nil, false
	}
	r := &types.Record{
		Type:    types.RecordPaper,
		Title:   strings.TrimSpace(m.Article.Title),
		Summary: strings.TrimSpace(strings.Join(m.Article.Abstract.Text, " ")),
		Venue:   strings.TrimSpace(m.Article.Journal.Title),
		Link:    "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
	}
	pd := m.Article.Journal.Issue.PubDate
	r.Published, r.DateFidelity = pubmedDate(pd.Year, pd.Month, pd.Day)
	for _, author := range m.Article.AuthorList.Authors {
		name := strings.TrimSpace(strings.TrimSpace(author.ForeName) + " " + strings.TrimSpace(author.LastName))
		if name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	r.Categories = append(r.Categories, m.Keywords.Keyword...)
	r.SetExternalID(types.NSPubmed, pmid)
	for _, el := range m.Article.ELocationIDs {
		if strings.EqualFold(el.Type, "doi") {
			r.SetExternalID(types.NSDOI, NormalizeDOI(el.Value))
		}
	}
	if !finalize(r, dateThreshold) {
		return nil, false
	}
	return r, true
}

var pubmedMonths = map[string]time.Month{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

func pubmedDate(year, month, day string) (time.Time, types.DateFidelity) {
	y := 0
	fmt.Sscanf(strings.TrimSpace(year), "%d", &y)
	if y == 0 {
		return time.Time{}, ""
	}
	m, fidelity := time.January, types.FidelityYear
	ms := strings.ToLower(strings.TrimSpace(month))
	if len(ms) > 3 {
		ms = ms[:3]
	}
	if mm, ok := pubmedMonths[ms]; ok {
		m = mm
		fidelity = types.FidelityMonth
	} else if n := 0; ms != "" {
		if _, err := fmt.Sscanf(ms, "%d", &n); err == nil && n >= 1 && n <= 12 {
			m = time.Month(n)
			fidelity = types.FidelityMonth
		}
	}
	d := 1
	fmt.Sscanf(strings.TrimSpace(day), "%d", &d)
	if d >= 1 && d <= 31 && fidelity == types.FidelityMonth && strings.TrimSpace(day) != "" {
		fidelity = types.FidelityDay
	} else {
		d = 1
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), fidelity
}
