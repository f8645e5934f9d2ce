package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/techpulse/techpulse-backend/internal/catalog"
	"github.com/techpulse/techpulse-backend/internal/classify"
	"github.com/techpulse/techpulse-backend/internal/ingest"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

const (
	defaultPageSize  = 50
	maxPageSize      = 200
	minAutocompleteQ = 2
	maxAutocomplete  = 10
)

type PapersHandler struct {
	log       *logger.Logger
	store     *catalog.Store
	scheduler *ingest.Scheduler
}

func NewPapersHandler(log *logger.Logger, store *catalog.Store, scheduler *ingest.Scheduler) *PapersHandler {
	return &PapersHandler{
		log:       log.With("handler", "PapersHandler"),
		store:     store,
		scheduler: scheduler,
	}
}

// List serves the filtered, paginated catalog view. Filters are ANDed;
// an upstream failure never empties the response, the cached view is
// what it is.
func (h *PapersHandler) List(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	venue := strings.TrimSpace(c.Query("venue"))
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))
	source := strings.ToLower(strings.TrimSpace(c.Query("source")))
	limit := parseIntQuery(c, "limit", defaultPageSize)
	offset := parseIntQuery(c, "offset", 0)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var filtered []*types.Record
	for _, r := range h.store.Snapshot() {
		if category != "" && !containsFold(r.Categories, category) && !containsFold(r.Industries, category) {
			continue
		}
		if venue != "" && !strings.EqualFold(r.Venue, venue) {
			continue
		}
		if source != "" && string(r.Type) != source {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.Title), search) &&
			!strings.Contains(strings.ToLower(r.Summary), search) {
			continue
		}
		filtered = append(filtered, r)
	}

	total := len(filtered)
	end := offset + limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}
	items := filtered[offset:end]
	if items == nil {
		items = []*types.Record{}
	}
	RespondOK(c, ListEnvelope{
		Items:      items,
		Total:      total,
		LastUpdate: h.store.LastFetchTime(),
		HasMore:    end < total,
	})
}

type industryCount struct {
	Industry string `json:"industry"`
	Count    int    `json:"count"`
}

// Stats buckets the catalog by industry over a trailing period.
func (h *PapersHandler) Stats(c *gin.Context) {
	period := strings.ToLower(strings.TrimSpace(c.DefaultQuery("period", "month")))
	var cutoff time.Time
	now := time.Now().UTC()
	switch period {
	case "month":
		cutoff = now.AddDate(0, -1, 0)
	case "quarter":
		cutoff = now.AddDate(0, -3, 0)
	case "year":
		cutoff = now.AddDate(-1, 0, 0)
	default:
		RespondError(c, http.StatusBadRequest, "invalid_period", errors.New("period must be month, quarter or year"))
		return
	}

	counts := map[string]int{}
	total := 0
	for _, r := range h.store.Snapshot() {
		if r.Published.Before(cutoff) {
			continue
		}
		industries := r.Industries
		if len(industries) == 0 {
			industries = classify.Industries(r.Title, r.Summary)
		}
		for _, ind := range industries {
			counts[ind]++
		}
		total++
	}

	items := make([]industryCount, 0, len(counts))
	for ind, n := range counts {
		items = append(items, industryCount{Industry: ind, Count: n})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Industry < items[j].Industry
	})
	RespondOK(c, gin.H{
		"period":     period,
		"industries": items,
		"total":      total,
		"lastUpdate": h.store.LastFetchTime(),
	})
}

// Get looks a record up by canonical id or any external reference.
func (h *PapersHandler) Get(c *gin.Context) {
	id := c.Param("id")
	record, ok := h.store.Lookup(id)
	if !ok {
		RespondError(c, http.StatusNotFound, "record_not_found", errors.New("no record for "+id))
		return
	}
	RespondOK(c, record)
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

// Batch resolves many ids in one call. Unknown ids are skipped, not
// errors.
func (h *PapersHandler) Batch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	items := make([]*types.Record, 0, len(req.IDs))
	for _, id := range req.IDs {
		if record, ok := h.store.Lookup(id); ok {
			items = append(items, record)
		}
	}
	RespondOK(c, ListEnvelope{
		Items:      items,
		Total:      len(items),
		LastUpdate: h.store.LastFetchTime(),
	})
}

// Autocomplete returns up to ten title prefix-or-substring suggestions.
func (h *PapersHandler) Autocomplete(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if len(q) < minAutocompleteQ {
		RespondOK(c, gin.H{"suggestions": []string{}})
		return
	}
	var prefix, substring []string
	for _, r := range h.store.Snapshot() {
		title := strings.ToLower(r.Title)
		switch {
		case strings.HasPrefix(title, q):
			prefix = append(prefix, r.Title)
		case strings.Contains(title, q):
			substring = append(substring, r.Title)
		}
	}
	suggestions := append(prefix, substring...)
	if len(suggestions) > maxAutocomplete {
		suggestions = suggestions[:maxAutocomplete]
	}
	RespondOK(c, gin.H{"suggestions": suggestions})
}

// Refresh triggers an ingestion cycle. force=true widens the window to
// the forced lookback. A refresh already in flight is reported, not
// queued.
func (h *PapersHandler) Refresh(c *gin.Context) {
	force := strings.EqualFold(c.Query("force"), "true")
	err := h.scheduler.Refresh(c.Request.Context(), force)
	if errors.Is(err, ingest.ErrRefreshInFlight) {
		RespondOK(c, gin.H{"status": "already_running"})
		return
	}
	if err != nil {
		h.log.Error("Manual refresh failed", "error", err.Error())
		RespondError(c, http.StatusInternalServerError, "refresh_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"status":     "completed",
		"cacheSize":  h.store.Len(),
		"lastUpdate": h.store.LastFetchTime(),
	})
}

func parseIntQuery(c *gin.Context, name string, def int) int {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
