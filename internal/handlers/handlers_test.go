package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/techpulse/techpulse-backend/internal/analytics"
	"github.com/techpulse/techpulse-backend/internal/catalog"
	"github.com/techpulse/techpulse-backend/internal/handlers"
	"github.com/techpulse/techpulse-backend/internal/ingest"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/server"
	"github.com/techpulse/techpulse-backend/internal/signals"
	"github.com/techpulse/techpulse-backend/internal/types"
)

func testRouter(t *testing.T, records []*types.Record) (*gin.Engine, *catalog.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	store := catalog.NewStore(log, 1000)
	if len(records) > 0 {
		store.MergeBatch(records)
		store.SetLastFetchTime(time.Now().UTC())
	}

	persister := catalog.NewFilePersister(log, filepath.Join(t.TempDir(), "catalog.json"))
	orchestrator := ingest.NewOrchestrator(log, nil, store, persister, 1000)
	engine := analytics.NewEngine(log, signals.NewAggregator(log, store), nil, nil)
	scheduler := ingest.NewScheduler(log, orchestrator, engine, time.Minute, time.Hour)

	router := server.NewRouter(server.RouterConfig{
		PapersHandler:   handlers.NewPapersHandler(log, store, scheduler),
		InsightsHandler: handlers.NewInsightsHandler(log, engine),
		HealthHandler:   handlers.NewHealthHandler(store, scheduler),
	})
	return router, store
}

func seedRecords() []*types.Record {
	now := time.Now().UTC()
	return []*types.Record{
		{
			ID:           "arxiv:2401.00001",
			Type:         types.RecordPaper,
			Title:        "Quantum Error Correction at Scale",
			Summary:      "Surface codes on superconducting qubits.",
			Published:    now.AddDate(0, 0, -2),
			Venue:        "arXiv",
			Industries:   []string{"Computing"},
			Technologies: []string{"Quantum Computing"},
			ExternalIDs:  map[string]string{types.NSArxiv: "2401.00001", types.NSSemanticScholar: "SS123"},
		},
		{
			ID:          "doi:10.1000/xyz",
			Type:        types.RecordPaper,
			Title:       "Large Language Models for Code Review",
			Summary:     "Evaluation across open repositories.",
			Published:   now.AddDate(0, 0, -10),
			Venue:       "NeurIPS",
			Industries:  []string{"Software"},
			ExternalIDs: map[string]string{types.NSDOI: "10.1000/xyz"},
		},
		{
			ID:         "fp:news1",
			Type:       types.RecordNews,
			Title:      "Chip Startup Raises Series B",
			Published:  now.AddDate(0, -2, 0),
			Venue:      "Hacker News",
			Industries: []string{"Semiconductors"},
		},
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string, out any) int {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w.Code
}

func TestListFiltersAndPagination(t *testing.T) {
	router, _ := testRouter(t, seedRecords())

	var resp struct {
		Items   []types.Record `json:"items"`
		Total   int            `json:"total"`
		HasMore bool           `json:"hasMore"`
	}
	if code := doJSON(t, router, http.MethodGet, "/api/papers", "", &resp); code != http.StatusOK {
		t.Fatalf("list status %d", code)
	}
	if resp.Total != 3 || len(resp.Items) != 3 {
		t.Fatalf("expected 3 records, got total=%d items=%d", resp.Total, len(resp.Items))
	}

	if code := doJSON(t, router, http.MethodGet, "/api/papers?source=paper&search=quantum", "", &resp); code != http.StatusOK {
		t.Fatalf("filtered list status %d", code)
	}
	if resp.Total != 1 || resp.Items[0].ID != "arxiv:2401.00001" {
		t.Fatalf("unexpected filtered result %+v", resp)
	}

	if code := doJSON(t, router, http.MethodGet, "/api/papers?limit=2&offset=2", "", &resp); code != http.StatusOK {
		t.Fatalf("paged list status %d", code)
	}
	if resp.Total != 3 || len(resp.Items) != 1 || resp.HasMore {
		t.Fatalf("unexpected page total=%d items=%d hasMore=%v", resp.Total, len(resp.Items), resp.HasMore)
	}
}

func TestGetResolvesExternalReference(t *testing.T) {
	router, _ := testRouter(t, seedRecords())

	var record types.Record
	if code := doJSON(t, router, http.MethodGet, "/api/papers/semanticScholar:SS123", "", &record); code != http.StatusOK {
		t.Fatalf("get status %d", code)
	}
	if record.ID != "arxiv:2401.00001" {
		t.Fatalf("unexpected record %q", record.ID)
	}

	if code := doJSON(t, router, http.MethodGet, "/api/papers/missing-id", "", nil); code != http.StatusNotFound {
		t.Fatalf("missing record should 404, got %d", code)
	}
}

func TestBatchSkipsUnknownIDs(t *testing.T) {
	router, _ := testRouter(t, seedRecords())

	var resp struct {
		Items []types.Record `json:"items"`
		Total int            `json:"total"`
	}
	body := `{"ids":["arxiv:2401.00001","nope","fp:news1"]}`
	if code := doJSON(t, router, http.MethodPost, "/api/papers/batch", body, &resp); code != http.StatusOK {
		t.Fatalf("batch status %d", code)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 resolved records, got %d", resp.Total)
	}
}

func TestAutocompleteMinimumQueryLength(t *testing.T) {
	router, _ := testRouter(t, seedRecords())

	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	if code := doJSON(t, router, http.MethodGet, "/api/papers/autocomplete?q=q", "", &resp); code != http.StatusOK {
		t.Fatalf("autocomplete status %d", code)
	}
	if len(resp.Suggestions) != 0 {
		t.Fatalf("single-char query should return nothing, got %v", resp.Suggestions)
	}
	if code := doJSON(t, router, http.MethodGet, "/api/papers/autocomplete?q=quantum", "", &resp); code != http.StatusOK {
		t.Fatalf("autocomplete status %d", code)
	}
	if len(resp.Suggestions) != 1 || resp.Suggestions[0] != "Quantum Error Correction at Scale" {
		t.Fatalf("unexpected suggestions %v", resp.Suggestions)
	}
}

func TestStatsRejectsUnknownPeriod(t *testing.T) {
	router, _ := testRouter(t, seedRecords())

	if code := doJSON(t, router, http.MethodGet, "/api/papers/stats?period=decade", "", nil); code != http.StatusBadRequest {
		t.Fatalf("unknown period should 400, got %d", code)
	}

	var resp struct {
		Industries []struct {
			Industry string `json:"industry"`
			Count    int    `json:"count"`
		} `json:"industries"`
		Total int `json:"total"`
	}
	if code := doJSON(t, router, http.MethodGet, "/api/papers/stats?period=month", "", &resp); code != http.StatusOK {
		t.Fatalf("stats status %d", code)
	}
	if resp.Total != 2 {
		t.Fatalf("month window should cover 2 records, got %d", resp.Total)
	}
}

func TestRefreshCompletesWithNoAdapters(t *testing.T) {
	router, _ := testRouter(t, nil)

	var resp map[string]any
	if code := doJSON(t, router, http.MethodPost, "/api/papers/refresh", "", &resp); code != http.StatusOK {
		t.Fatalf("refresh status %d", code)
	}
	if resp["status"] != "completed" {
		t.Fatalf("unexpected refresh response %v", resp)
	}
}

func TestCombinedSignalRequiresTechnologyParam(t *testing.T) {
	router, _ := testRouter(t, seedRecords())

	if code := doJSON(t, router, http.MethodGet, "/api/insights/combined-signal", "", nil); code != http.StatusBadRequest {
		t.Fatalf("missing technology should 400, got %d", code)
	}
	var signal analytics.CombinedSignal
	if code := doJSON(t, router, http.MethodGet, "/api/insights/combined-signal?technology=Quantum+Computing", "", &signal); code != http.StatusOK {
		t.Fatalf("combined signal status %d", code)
	}
	if signal.Technology != "Quantum Computing" {
		t.Fatalf("unexpected signal %+v", signal)
	}
}

func TestMetaNarrativeServesTemplateDigest(t *testing.T) {
	router, _ := testRouter(t, seedRecords())

	var resp struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if code := doJSON(t, router, http.MethodGet, "/api/insights/meta-narrative", "", &resp); code != http.StatusOK {
		t.Fatalf("meta-narrative status %d", code)
	}
	if resp.Title == "" || resp.Body == "" {
		t.Fatalf("expected a populated digest, got %+v", resp)
	}
}

func TestHealthReportsCacheState(t *testing.T) {
	router, store := testRouter(t, seedRecords())

	var resp map[string]any
	if code := doJSON(t, router, http.MethodGet, "/health", "", &resp); code != http.StatusOK {
		t.Fatalf("health status %d", code)
	}
	if resp["status"] != "ok" {
		t.Fatalf("unexpected health payload %v", resp)
	}
	if int(resp["cacheSize"].(float64)) != store.Len() {
		t.Fatalf("cacheSize %v, want %d", resp["cacheSize"], store.Len())
	}
	if _, ok := resp["refreshInFlight"]; !ok {
		t.Fatal("health should report refreshInFlight")
	}
}
