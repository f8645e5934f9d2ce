package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/techpulse/techpulse-backend/internal/catalog"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/signals"
	"github.com/techpulse/techpulse-backend/internal/types"
)

var testNow = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func sigAt(id string, typ types.RecordType, published time.Time, techs ...string) types.Signal {
	return types.Signal{
		Record: &types.Record{
			ID:           id,
			Type:         typ,
			Title:        "Signal " + id,
			Published:    published,
			Technologies: techs,
		},
		Technologies: techs,
	}
}

func TestMomentumSmoke(t *testing.T) {
	// 50 recent paper signals, 10 older, nothing else.
	var sigs []types.Signal
	for i := 0; i < 50; i++ {
		sigs = append(sigs, sigAt(fmt.Sprintf("r%d", i), types.RecordPaper, testNow.AddDate(0, 0, -5), "Quantum Computing"))
	}
	for i := 0; i < 10; i++ {
		sigs = append(sigs, sigAt(fmt.Sprintf("o%d", i), types.RecordPaper, testNow.AddDate(0, 0, -40), "Quantum Computing"))
	}

	row := momentumFor("Quantum Computing", sigs, 30, testNow)
	if row.BySource["paper"] != 4.0 {
		t.Fatalf("velocity_papers = %v, want 4.0", row.BySource["paper"])
	}
	if row.Momentum != 100 {
		t.Fatalf("momentum = %v, want 100", row.Momentum)
	}
	if row.Confidence != 1 {
		t.Fatalf("confidence = %v, want 1", row.Confidence)
	}
	if row.SignalCount != 60 {
		t.Fatalf("signalCount = %d, want 60", row.SignalCount)
	}
}

func TestMomentumBounds(t *testing.T) {
	cases := [][]types.Signal{
		nil,
		{sigAt("a", types.RecordPaper, testNow.AddDate(0, 0, -3), "Robotics")},
		{
			sigAt("a", types.RecordPaper, testNow.AddDate(0, 0, -40), "Robotics"),
			sigAt("b", types.RecordNews, testNow.AddDate(0, 0, -45), "Robotics"),
		},
	}
	for i, sigs := range cases {
		row := momentumFor("Robotics", sigs, 30, testNow)
		if row.Momentum < 0 || row.Momentum > 100 {
			t.Fatalf("case %d: momentum %v out of [0,100]", i, row.Momentum)
		}
		if row.Confidence < 0 || row.Confidence > 1 {
			t.Fatalf("case %d: confidence %v out of [0,1]", i, row.Confidence)
		}
	}
}

func TestVelocityZeroOlder(t *testing.T) {
	if v := velocity(5, 0); v != 1 {
		t.Fatalf("velocity with no older signals = %v, want 1", v)
	}
	if v := velocity(0, 0); v != 0 {
		t.Fatalf("velocity with no signals = %v, want 0", v)
	}
	if v := velocity(2, 4); v != -0.5 {
		t.Fatalf("shrinking velocity = %v, want -0.5", v)
	}
}

func TestGrowthSparseSeries(t *testing.T) {
	// One non-zero month: no trend, score 0, low confidence.
	sigs := []types.Signal{
		sigAt("a", types.RecordNews, testNow.AddDate(0, 0, -3)),
		sigAt("b", types.RecordNews, testNow.AddDate(0, 0, -4)),
	}
	row := growthFor("Healthcare", sigs, testNow)
	if row.GrowthScore != 0 {
		t.Fatalf("sparse series score = %v, want 0", row.GrowthScore)
	}
	if row.Confidence > 0.3 {
		t.Fatalf("sparse series confidence = %v, want <= 0.3", row.Confidence)
	}
}

func TestGrowthScoreBounds(t *testing.T) {
	var sigs []types.Signal
	for m := 0; m < 6; m++ {
		for i := 0; i < (6-m)*3; i++ {
			sigs = append(sigs, sigAt(fmt.Sprintf("%d-%d", m, i), types.RecordNews, testNow.AddDate(0, -m, -1)))
		}
	}
	row := growthFor("Finance", sigs, testNow)
	if row.GrowthScore < 0 || row.GrowthScore > 100 {
		t.Fatalf("growthScore %v out of [0,100]", row.GrowthScore)
	}
	if row.GrowthRate <= 0 {
		t.Fatalf("expected positive growth rate for an increasing series, got %v", row.GrowthRate)
	}
}

func TestEmergingQualification(t *testing.T) {
	// 20 recent signals in a 30-day window: rate 0.67 > 0.5, total < 100.
	var sigs []types.Signal
	for i := 0; i < 20; i++ {
		sigs = append(sigs, sigAt(fmt.Sprintf("e%d", i), types.RecordPaper, testNow.AddDate(0, 0, -2), "Neuromorphic Chips"))
	}
	row, ok := emergingFor("Neuromorphic Chips", sigs, 1, 30, testNow)
	if !ok {
		t.Fatalf("expected qualification")
	}
	if row.RecentSignals != 20 || row.TotalSignals != 20 {
		t.Fatalf("unexpected counts: %+v", row)
	}
	// 0.4*1 (velocity) + 0.3 (low volume) + 0.2*1 (mentions) + 0.1*10.
	want := 0.4 + 0.3 + 0.2 + 1.0
	if row.Score != want {
		t.Fatalf("score = %v, want %v", row.Score, want)
	}

	// Too established: total >= 100 never qualifies.
	var many []types.Signal
	for i := 0; i < 120; i++ {
		many = append(many, sigAt(fmt.Sprintf("m%d", i), types.RecordPaper, testNow.AddDate(0, 0, -2), "Machine Learning"))
	}
	if _, ok := emergingFor("Machine Learning", many, 0, 30, testNow); ok {
		t.Fatalf("expected a 120-signal technology to be disqualified")
	}

	// Too quiet: rate under 0.5 per day.
	quiet := sigs[:5]
	if _, ok := emergingFor("Neuromorphic Chips", quiet, 0, 30, testNow); ok {
		t.Fatalf("expected a low-rate technology to be disqualified")
	}
}

func podcastWithBreakdown(id, videoID string, published time.Time, insights ...types.Insight) *types.Record {
	r := &types.Record{
		ID:        id,
		Type:      types.RecordPodcast,
		Title:     "Episode " + id,
		Venue:     "Tech Pulse Pod",
		Published: published,
	}
	r.Metadata = map[string]any{
		"breakdown": &types.Breakdown{
			VideoID: videoID,
			Segments: []types.Segment{
				{Title: "Main", StartTime: "00:10:00", Insights: insights},
			},
		},
	}
	return r
}

func TestLeaderQuotes(t *testing.T) {
	strong := types.Insight{
		Type:       types.InsightNuancedOpinion,
		Text:       "I predict quantum computing will break classical encryption by 2030.",
		DepthScore: 0.9,
		Speaker:    "Dr. Chen",
		Timestamp:  "00:14:30",
	}
	weak := types.Insight{
		Type:       types.InsightTacticalAdvice,
		Text:       "Quantum computing will matter, bet on it.",
		DepthScore: 0.5,
	}
	noKeyword := types.Insight{
		Type:       types.InsightFramework,
		Text:       "Quantum computing has three hardware families today.",
		DepthScore: 0.95,
	}

	podcasts := []*types.Record{
		podcastWithBreakdown("yt:a", "a", testNow.AddDate(0, 0, -2), strong, noKeyword),
		podcastWithBreakdown("yt:b", "b", testNow.AddDate(0, 0, -10), weak),
	}
	quotes := topLeaderQuotes(leaderQuotesFor("quantum computing", podcasts))
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes (keyword-less insight dropped), got %d", len(quotes))
	}
	if quotes[0].Speaker != "Dr. Chen" || quotes[0].Confidence != 0.9 {
		t.Fatalf("expected confidence ordering, got %+v", quotes[0])
	}
	if quotes[1].Speaker != "Tech Pulse Pod" {
		t.Fatalf("expected venue fallback speaker, got %q", quotes[1].Speaker)
	}
	if quotes[0].Timestamp != "00:14:30" || quotes[1].Timestamp != "00:10:00" {
		t.Fatalf("timestamp fallback wrong: %q %q", quotes[0].Timestamp, quotes[1].Timestamp)
	}
}

func TestBreakdownFromMetadataRoundTrip(t *testing.T) {
	// After a JSON round trip the breakdown arrives as a plain map.
	r := podcastWithBreakdown("yt:c", "c", testNow, types.Insight{
		Type: types.InsightFramework, Text: "Robotics will eat manufacturing.", DepthScore: 0.8,
	})
	r.Metadata["breakdown"] = map[string]any{
		"videoId": "c",
		"segments": []any{
			map[string]any{
				"title":     "Main",
				"startTime": "00:00:00",
				"insights": []any{
					map[string]any{"type": "framework", "text": "Robotics will eat manufacturing.", "depth_score": 0.8},
				},
			},
		},
	}
	b, ok := breakdownFromRecord(r)
	if !ok || b.VideoID != "c" || len(b.Segments) != 1 {
		t.Fatalf("map-shaped breakdown not decoded: %+v ok=%v", b, ok)
	}
}

func TestPredictionsTemplateFallback(t *testing.T) {
	store := catalog.NewStore(logger.NewNop(), 1000)
	var batch []*types.Record
	for i := 0; i < 40; i++ {
		batch = append(batch, &types.Record{
			ID:           fmt.Sprintf("arxiv:%d", i),
			Type:         types.RecordPaper,
			Title:        fmt.Sprintf("Large Language Model Study %d", i),
			Published:    testNow.AddDate(0, 0, -(i%20 + 1)),
			Technologies: []string{"Large Language Models"},
		})
	}
	store.MergeBatch(batch)

	agg := signals.NewAggregator(logger.NewNop(), store)
	e := NewEngine(logger.NewNop(), agg, nil, nil)
	e.now = func() time.Time { return testNow }

	reads := e.Predictions(context.Background())
	if len(reads) == 0 {
		t.Fatalf("expected at least one read")
	}
	for _, r := range reads {
		if r.GeneratedBy != "Template" {
			t.Fatalf("expected Template generator without an LLM client, got %q", r.GeneratedBy)
		}
		if r.Summary == "" || r.FullRead == "" {
			t.Fatalf("template read has empty sections: %+v", r)
		}
		if r.Score < 0 || r.Score > 100 {
			t.Fatalf("score %v out of [0,100]", r.Score)
		}
	}
	// Cached after the first call.
	if again := e.Predictions(context.Background()); len(again) != len(reads) {
		t.Fatalf("cache returned different length")
	}
}

func TestMetaNarrativeTemplateFallback(t *testing.T) {
	store := catalog.NewStore(logger.NewNop(), 100)
	store.MergeBatch([]*types.Record{{
		ID:           "arxiv:nn",
		Type:         types.RecordPaper,
		Title:        "Diffusion Models Revisited",
		Published:    testNow.AddDate(0, 0, -3),
		Technologies: []string{"Generative AI"},
	}})
	agg := signals.NewAggregator(logger.NewNop(), store)
	e := NewEngine(logger.NewNop(), agg, nil, nil)
	e.now = func() time.Time { return testNow }

	n := e.MetaNarrative(context.Background())
	if n == nil || n.Title == "" || n.Body == "" {
		t.Fatalf("expected a non-empty template narrative, got %+v", n)
	}
	if n.GeneratedAt.IsZero() {
		t.Fatalf("narrative missing generated_at")
	}
	if again := e.MetaNarrative(context.Background()); again != n {
		t.Fatalf("expected the cached narrative on the second call")
	}
}

func TestListOrdering(t *testing.T) {
	rows := []types.TechnologyMomentum{
		{Technology: "B", Momentum: 50, SignalCount: 5},
		{Technology: "A", Momentum: 50, SignalCount: 5},
		{Technology: "C", Momentum: 80, SignalCount: 1},
		{Technology: "D", Momentum: 50, SignalCount: 9},
	}
	sortMomentum(rows)
	got := []string{rows[0].Technology, rows[1].Technology, rows[2].Technology, rows[3].Technology}
	want := []string{"C", "D", "A", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestCombinedSignalRequiresTechnology(t *testing.T) {
	store := catalog.NewStore(logger.NewNop(), 100)
	agg := signals.NewAggregator(logger.NewNop(), store)
	e := NewEngine(logger.NewNop(), agg, nil, nil)
	if _, err := e.CombinedSignal(""); err == nil {
		t.Fatalf("expected error for empty technology")
	}
}
