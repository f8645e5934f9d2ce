package signals

import (
	"testing"
	"time"

	"github.com/techpulse/techpulse-backend/internal/catalog"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

func TestSentimentDifferential(t *testing.T) {
	news := &types.Record{
		Type:  types.RecordNews,
		Title: "Startup announces breakthrough funding milestone",
	}
	if s := Sentiment(news); s != 1 {
		t.Fatalf("all-positive text: got %v, want 1", s)
	}

	bad := &types.Record{
		Type:  types.RecordNews,
		Title: "Layoffs follow security breach and outage",
	}
	if s := Sentiment(bad); s != -1 {
		t.Fatalf("all-negative text: got %v, want -1", s)
	}

	mixed := &types.Record{
		Type:  types.RecordNews,
		Title: "Record growth despite layoffs",
	}
	if s := Sentiment(mixed); s <= -1 || s >= 1 {
		t.Fatalf("mixed text must land strictly inside (-1, 1), got %v", s)
	}

	paper := &types.Record{Type: types.RecordPaper, Title: "Breakthrough success growth"}
	if s := Sentiment(paper); s != 0 {
		t.Fatalf("non-news sentiment must be 0, got %v", s)
	}
}

func TestAggregatorWindowAndTechnologyFilter(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	store := catalog.NewStore(logger.NewNop(), 100)

	recent := &types.Record{
		ID: "arxiv:1", Type: types.RecordPaper,
		Title:        "Scaling Large Language Model Training",
		Published:    now.AddDate(0, 0, -5),
		Technologies: []string{"Large Language Models"},
	}
	old := &types.Record{
		ID: "arxiv:2", Type: types.RecordPaper,
		Title:        "Quantum Error Correction Advances",
		Published:    now.AddDate(0, 0, -90),
		Technologies: []string{"Quantum Computing"},
	}
	other := &types.Record{
		ID: "arxiv:3", Type: types.RecordPaper,
		Title:        "Robot Grasping In Cluttered Scenes",
		Published:    now.AddDate(0, 0, -3),
		Technologies: []string{"Robotics"},
	}
	store.MergeBatch([]*types.Record{recent, old, other})

	a := NewAggregator(logger.NewNop(), store)
	a.now = func() time.Time { return now }

	all := a.AllSignals(30)
	if len(all) != 2 {
		t.Fatalf("expected 2 signals inside the window, got %d", len(all))
	}
	if !all[0].Record.Published.After(all[1].Record.Published) {
		t.Fatalf("expected published-descending order")
	}

	llm := a.SignalsForTechnology("Large Language Models", 30)
	if len(llm) != 1 || llm[0].Record.ID != "arxiv:1" {
		t.Fatalf("technology filter failed: %+v", llm)
	}

	techs := Technologies(all)
	if len(techs) != 2 || techs[0] != "Large Language Models" || techs[1] != "Robotics" {
		t.Fatalf("unexpected technology set %v", techs)
	}
}

func TestSignalConfidenceBounds(t *testing.T) {
	r := &types.Record{
		ID: "arxiv:1", Type: types.RecordPaper,
		Title:     "A Thorough Survey of Caching",
		Summary:   "Long summary.",
		Citations: 12,
		ExternalIDs: map[string]string{
			types.NSArxiv: "1", types.NSDOI: "10.1/x",
		},
	}
	if c := signalConfidence(r); c != 1 {
		t.Fatalf("fully corroborated record: got %v, want 1", c)
	}
	bare := &types.Record{ID: "fp:1", Type: types.RecordPaper, Title: "Bare Minimum Title"}
	if c := signalConfidence(bare); c != 0.5 {
		t.Fatalf("bare record: got %v, want 0.5", c)
	}
}
