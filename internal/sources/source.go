package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/techpulse/techpulse-backend/internal/classify"
	"github.com/techpulse/techpulse-backend/internal/pkg/httpx"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/ratelimit"
	"github.com/techpulse/techpulse-backend/internal/textutil"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// Adapter is the contract every upstream implements. FetchLatest returns
// canonical records newer than dateThreshold, newest first, at most
// limit of them. A failed adapter returns an empty slice plus the error;
// the orchestrator treats that as a partial result.
type Adapter interface {
	Name() string
	FetchLatest(ctx context.Context, limit int, dateThreshold time.Time) ([]*types.Record, error)
}

// Searcher is the optional ad-hoc query surface some upstreams expose.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]*types.Record, error)
}

// Enricher backfills fields (citation counts, ids) onto existing records.
type Enricher interface {
	Enrich(ctx context.Context, r *types.Record) error
}

const requestTimeout = 30 * time.Second

// fetcher is the shared HTTP plumbing: one rate-limiter slot per
// request, a single 5 s-delayed retry on 429/5xx for the same page, and
// JSON/XML decoding.
type fetcher struct {
	log     *logger.Logger
	limiter *ratelimit.Limiter
	client  *http.Client
}

func newFetcher(log *logger.Logger, limiter *ratelimit.Limiter) *fetcher {
	return &fetcher{
		log:     log,
		limiter: limiter,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (f *fetcher) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := f.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		raw, err := f.doOnce(ctx, url, headers)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !httpx.IsRetryableError(err) {
			return nil, err
		}
		if attempt == 0 {
			f.log.Warn("Upstream request failed, retrying page once", "url", url, "error", err.Error())
			if sleepErr := httpx.Sleep(ctx, 5*time.Second); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}
	return nil, lastErr
}

func (f *fetcher) doOnce(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "techpulse-backend/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpx.StatusError{StatusCode: resp.StatusCode, Body: textutil.Truncate(string(raw), 300)}
	}
	return raw, nil
}

func (f *fetcher) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	raw, err := f.get(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode json from %s: %w", url, err)
	}
	return nil
}

func (f *fetcher) getXML(ctx context.Context, url string, headers map[string]string, out any) error {
	raw, err := f.get(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode xml from %s: %w", url, err)
	}
	return nil
}

// finalize applies the shared admission policy and annotations, then
// assigns the record identity. It returns false when the record must be
// rejected (empty title, non-English title, or predates the threshold).
func finalize(r *types.Record, dateThreshold time.Time) bool {
	if r.Title == "" || r.Published.IsZero() {
		return false
	}
	if !textutil.IsEnglish(r.Title) {
		return false
	}
	if r.Published.Before(dateThreshold) {
		return false
	}
	r.Title = textutil.CollapseWhitespace(r.Title)
	r.Authors = dedupeStrings(r.Authors)
	if r.DateFidelity == "" {
		r.DateFidelity = types.FidelityDay
	}
	if len(r.Tags) == 0 {
		r.Tags = classify.TagsForCategories(r.Categories)
	}
	if len(r.Technologies) == 0 {
		r.Technologies = classify.Technologies(r.Title, r.Summary)
	}
	if len(r.Industries) == 0 {
		texts := append([]string{r.Title, r.Summary}, r.Tags...)
		r.Industries = classify.Industries(texts...)
	}
	types.AssignID(r)
	return true
}

func dedupeStrings(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// rotate picks the query for this cycle: adapters diversify results
// across cycles by rotating on hour-of-day.
func rotate(options []string, now time.Time) string {
	if len(options) == 0 {
		return ""
	}
	return options[now.Hour()%len(options)]
}
