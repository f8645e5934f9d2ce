package breakdown

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/techpulse/techpulse-backend/internal/catalog"
	"github.com/techpulse/techpulse-backend/internal/clients/pinecone"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

type fakeLLM struct {
	name     string
	jsonBy   map[string]string
	jsonErr  error
	textOut  string
	textErr  error
	jsonCall int
}

func (f *fakeLLM) Name() string {
	if f.name == "" {
		return "fake-model"
	}
	return f.name
}

func (f *fakeLLM) GenerateText(context.Context, string, string, int) (string, error) {
	return f.textOut, f.textErr
}

func (f *fakeLLM) GenerateJSON(_ context.Context, system, _ string, out any) error {
	f.jsonCall++
	if f.jsonErr != nil {
		return f.jsonErr
	}
	for key, payload := range f.jsonBy {
		if strings.Contains(system, key) {
			return json.Unmarshal([]byte(payload), out)
		}
	}
	return errors.New("no canned response")
}

const sampleTranscript = "00:00:10 [Host]: Welcome to the show.\n" +
	"00:02:00 [Guest]: In my experience scaling teams is the hard part.\n" +
	"00:06:30 [Guest]: You should invest in developer tooling early.\n" +
	"00:11:45 [Host]: Revenue grew 40 percent year over year."

func TestTimeSegmentFallbackFiveMinuteWindows(t *testing.T) {
	b := NewBuilder(logger.NewNop(), nil)
	bd, err := b.Build(context.Background(), "vid1", "Scaling Teams", sampleTranscript)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if bd.GeneratedBy != "Template" {
		t.Fatalf("GeneratedBy = %q, want Template", bd.GeneratedBy)
	}
	if len(bd.Segments) != 3 {
		t.Fatalf("expected 3 five-minute segments, got %d", len(bd.Segments))
	}
	if bd.Segments[0].StartTime != "00:00:00" || bd.Segments[1].StartTime != "00:05:00" || bd.Segments[2].StartTime != "00:10:00" {
		t.Fatalf("unexpected segment starts: %q %q %q",
			bd.Segments[0].StartTime, bd.Segments[1].StartTime, bd.Segments[2].StartTime)
	}
	if len(bd.OverallStructure.MainTopics) != 3 {
		t.Fatalf("structure should list every segment, got %v", bd.OverallStructure.MainTopics)
	}
	if bd.Summary == "" {
		t.Fatal("template summary must not be empty")
	}
}

func TestKeywordInsightFallback(t *testing.T) {
	b := NewBuilder(logger.NewNop(), nil)
	bd, err := b.Build(context.Background(), "vid1", "Scaling Teams", sampleTranscript)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	byType := map[types.InsightType]int{}
	for _, seg := range bd.Segments {
		for _, in := range seg.Insights {
			byType[in.Type]++
			if in.DepthScore < minDepthScore {
				t.Fatalf("shallow insight survived filter: %+v", in)
			}
		}
	}
	if byType[types.InsightPersonalExperience] == 0 {
		t.Fatal("expected a personal_experience insight from 'in my experience'")
	}
	if byType[types.InsightTacticalAdvice] == 0 {
		t.Fatal("expected a tactical_advice insight from 'you should'")
	}
	if byType[types.InsightQuantitativeClaim] == 0 {
		t.Fatal("expected a quantitative_claim insight from '40 percent'")
	}
}

func TestLLMSegmentationAndDepthFilter(t *testing.T) {
	client := &fakeLLM{
		name: "fake-model",
		jsonBy: map[string]string{
			"segment podcast transcripts": `{"segments":[{"title":"AI Infrastructure","startTime":"00:00:00","endTime":"00:10:00","summary":"Infra costs.","topics":["AI Infrastructure"]}],"overallStructure":{"intro":"Costs","mainTopics":["AI Infrastructure"],"conclusion":"Wrap"}}`,
			"extract insights":            `{"insights":[{"type":"quantitative_claim","text":"Training costs doubled.","depth_score":0.9,"timestamp":"00:01:00"},{"type":"nuanced_opinion","text":"Too shallow.","depth_score":0.2,"timestamp":"00:02:00"},{"type":"bogus_type","text":"Dropped.","depth_score":0.9,"timestamp":"00:03:00"}]}`,
		},
		textOut: "A focused discussion of AI infrastructure economics.",
	}
	b := NewBuilder(logger.NewNop(), client)
	bd, err := b.Build(context.Background(), "vid2", "Infra Economics", sampleTranscript)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if bd.GeneratedBy != "fake-model" {
		t.Fatalf("GeneratedBy = %q, want fake-model", bd.GeneratedBy)
	}
	if len(bd.Segments) != 1 || bd.Segments[0].Title != "AI Infrastructure" {
		t.Fatalf("unexpected segments %+v", bd.Segments)
	}
	insights := bd.Segments[0].Insights
	if len(insights) != 1 {
		t.Fatalf("expected 1 surviving insight, got %d: %+v", len(insights), insights)
	}
	if insights[0].Type != types.InsightQuantitativeClaim {
		t.Fatalf("unexpected insight %+v", insights[0])
	}
	if bd.Summary != "A focused discussion of AI infrastructure economics." {
		t.Fatalf("unexpected summary %q", bd.Summary)
	}
}

func TestStanceAndCertaintyHeuristics(t *testing.T) {
	cases := []struct {
		claim     string
		stance    types.Stance
		certainty types.Certainty
	}{
		{"This is a bubble and the risk is real.", types.StanceCritical, types.CertaintyMedium},
		{"A promising breakthrough that will reshape chips.", types.StanceOptimistic, types.CertaintyHigh},
		{"It might matter for some promising workloads.", types.StanceOptimistic, types.CertaintyLow},
		{"Latency stayed flat across releases.", types.StanceNeutral, types.CertaintyMedium},
	}
	for _, c := range cases {
		if got := stanceFor(c.claim); got != c.stance {
			t.Fatalf("stanceFor(%q) = %q, want %q", c.claim, got, c.stance)
		}
		if got := certaintyFor(c.claim); got != c.certainty {
			t.Fatalf("certaintyFor(%q) = %q, want %q", c.claim, got, c.certainty)
		}
	}
}

func TestAtomsFromBreakdown(t *testing.T) {
	bd := &types.Breakdown{
		VideoID: "vid3",
		Segments: []types.Segment{
			{
				Title:     "Open Models",
				Topics:    []string{"Open Source AI"},
				StartTime: "00:00:00",
				EndTime:   "00:05:00",
				Insights: []types.Insight{
					{Type: types.InsightNuancedOpinion, Text: "Open weights are an opportunity for Llama adoption.", DepthScore: 0.8},
					{Type: types.InsightFramework, Text: "   ", DepthScore: 0.9},
				},
			},
			{
				Title:     "Closing",
				StartTime: "00:05:00",
				EndTime:   "00:08:00",
				Insights: []types.Insight{
					{Type: types.InsightTradeoff, Text: "cheaper inference trades against quality", DepthScore: 0.6},
				},
			},
		},
	}
	atoms := AtomsFromBreakdown(bd)
	if len(atoms) != 2 {
		t.Fatalf("expected 2 atoms, got %d", len(atoms))
	}
	first := atoms[0]
	if first.Topic != "Open Source AI" {
		t.Fatalf("topic should prefer Topics[0], got %q", first.Topic)
	}
	if first.SegmentIndex != 0 || atoms[1].SegmentIndex != 1 {
		t.Fatalf("segment indexes wrong: %d %d", first.SegmentIndex, atoms[1].SegmentIndex)
	}
	if first.Stance != types.StanceOptimistic {
		t.Fatalf("stance = %q, want Optimistic", first.Stance)
	}
	if first.Entity != "Llama" {
		t.Fatalf("entity = %q, want Llama", first.Entity)
	}
	if atoms[1].Entity != "Closing" {
		t.Fatalf("entity should fall back to topic, got %q", atoms[1].Entity)
	}
	if first.ID == "" || first.ID == atoms[1].ID {
		t.Fatal("atoms need distinct ids")
	}
}

type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
		out[i][0] = float32(i + 1)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

type fakeIndex struct {
	upserts   [][]pinecone.Vector
	neighbors []pinecone.QueryMatch
}

func (f *fakeIndex) Upsert(_ context.Context, vectors []pinecone.Vector) error {
	f.upserts = append(f.upserts, vectors)
	return nil
}

func (f *fakeIndex) Neighbors(context.Context, []float32, int, float64) ([]pinecone.QueryMatch, error) {
	return f.neighbors, nil
}

type fakeAtomStore struct {
	replaced map[string][]*types.InsightAtom
	byID     map[string]*types.InsightAtom
}

func (f *fakeAtomStore) ReplaceForVideo(_ context.Context, videoID string, atoms []*types.InsightAtom) error {
	if f.replaced == nil {
		f.replaced = map[string][]*types.InsightAtom{}
	}
	f.replaced[videoID] = atoms
	return nil
}

func (f *fakeAtomStore) GetAtom(_ context.Context, id string) (*types.InsightAtom, error) {
	return f.byID[id], nil
}

type fakeLinkStore struct{ saved []*types.AtomLink }

func (f *fakeLinkStore) SaveLinks(_ context.Context, links []*types.AtomLink) error {
	f.saved = append(f.saved, links...)
	return nil
}

func sampleBreakdown(n int) *types.Breakdown {
	seg := types.Segment{Title: "Topic", StartTime: "00:00:00", EndTime: "00:05:00"}
	for i := 0; i < n; i++ {
		seg.Insights = append(seg.Insights, types.Insight{
			Type:       types.InsightQuantitativeClaim,
			Text:       strings.Repeat("x", i+1) + " grew a lot.",
			DepthScore: 0.8,
		})
	}
	return &types.Breakdown{VideoID: "vid9", Segments: []types.Segment{seg}}
}

func TestIngestBatchesOfFive(t *testing.T) {
	index := &fakeIndex{}
	store := &fakeAtomStore{}
	g := NewIngestor(logger.NewNop(), nil, &fakeEmbedder{dim: 4}, index, store, nil, nil)

	atoms, err := g.Ingest(context.Background(), sampleBreakdown(12))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(atoms) != 12 {
		t.Fatalf("expected 12 atoms, got %d", len(atoms))
	}
	if len(store.replaced["vid9"]) != 12 {
		t.Fatalf("store should hold replaced atoms, got %d", len(store.replaced["vid9"]))
	}
	if len(index.upserts) != 3 {
		t.Fatalf("12 atoms should upsert in 3 batches, got %d", len(index.upserts))
	}
	if len(index.upserts[0]) != 5 || len(index.upserts[1]) != 5 || len(index.upserts[2]) != 2 {
		t.Fatalf("unexpected batch sizes %d %d %d",
			len(index.upserts[0]), len(index.upserts[1]), len(index.upserts[2]))
	}
	for _, a := range atoms {
		if len(a.Embedding) != 4 {
			t.Fatalf("atom missing embedding: %+v", a)
		}
	}
}

func TestIngestDisabledWithoutVectorTier(t *testing.T) {
	g := NewIngestor(logger.NewNop(), nil, nil, nil, &fakeAtomStore{}, nil, nil)
	atoms, err := g.Ingest(context.Background(), sampleBreakdown(3))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if atoms != nil {
		t.Fatalf("disabled tier should be a no-op, got %d atoms", len(atoms))
	}
}

func TestCorrelatePersistsOnlyTypedEdges(t *testing.T) {
	other := &types.InsightAtom{ID: "other-1", VideoID: "other-vid", Claim: "GPU supply is constrained."}
	index := &fakeIndex{neighbors: []pinecone.QueryMatch{
		{ID: "other-1", Score: 0.9, Metadata: map[string]any{"video_id": "other-vid", "topic": "GPUs"}},
		{ID: "same-vid", Score: 0.8, Metadata: map[string]any{"video_id": "vid9"}},
	}}
	store := &fakeAtomStore{byID: map[string]*types.InsightAtom{"other-1": other}}
	links := &fakeLinkStore{}
	client := &fakeLLM{jsonBy: map[string]string{
		"classify the relationship": `{"type":"CORROBORATION","confidence":0.85}`,
	}}
	g := NewIngestor(logger.NewNop(), client, &fakeEmbedder{dim: 4}, index, store, links, nil)

	atoms := []*types.InsightAtom{{
		ID: "a1", VideoID: "vid9", Claim: "Chip shortages persist.", Embedding: []float32{1, 0, 0, 0},
	}}
	if err := g.Correlate(context.Background(), atoms); err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if len(links.saved) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links.saved))
	}
	l := links.saved[0]
	if l.FromAtomID != "a1" || l.ToAtomID != "other-1" || l.Type != types.LinkCorroboration {
		t.Fatalf("unexpected link %+v", l)
	}
	if l.Confidence != 0.85 {
		t.Fatalf("confidence = %v, want 0.85", l.Confidence)
	}
}

type fakeTranscripts struct {
	byVideo map[string]string
	calls   atomic.Int32
}

func (f *fakeTranscripts) Transcript(_ context.Context, videoID string) (string, error) {
	f.calls.Add(1)
	return f.byVideo[videoID], nil
}

func TestProcessorAttachesBreakdown(t *testing.T) {
	log := logger.NewNop()
	store := catalog.NewStore(log, 100)
	record := &types.Record{
		ID:          "yt:vid1",
		Type:        types.RecordPodcast,
		Title:       "Scaling Teams",
		Published:   time.Now().UTC(),
		ExternalIDs: map[string]string{types.NSYouTube: "vid1"},
	}
	store.MergeBatch([]*types.Record{record})

	source := &fakeTranscripts{byVideo: map[string]string{"vid1": sampleTranscript}}
	builder := NewBuilder(log, nil)
	ingestor := NewIngestor(log, nil, nil, nil, nil, nil, nil)
	p := NewProcessor(log, source, builder, ingestor, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	p.HandleNewPodcasts([]*types.Record{record})

	deadline := time.Now().Add(2 * time.Second)
	for {
		stored, _ := store.Get("yt:vid1")
		if stored != nil {
			if _, ok := stored.Metadata["breakdown"]; ok {
				bd, isBreakdown := stored.Metadata["breakdown"].(*types.Breakdown)
				if !isBreakdown || bd.VideoID != "vid1" {
					t.Fatalf("unexpected breakdown payload %+v", stored.Metadata["breakdown"])
				}
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("breakdown never attached to the stored record")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Already-processed records are skipped on the next handoff.
	stored, _ := store.Get("yt:vid1")
	p.HandleNewPodcasts([]*types.Record{stored})
	time.Sleep(50 * time.Millisecond)
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected 1 transcript fetch, got %d", got)
	}
}

func TestCorrelateDropsUnrelated(t *testing.T) {
	index := &fakeIndex{neighbors: []pinecone.QueryMatch{
		{ID: "other-1", Score: 0.9, Metadata: map[string]any{"video_id": "other-vid", "topic": "GPUs"}},
	}}
	store := &fakeAtomStore{byID: map[string]*types.InsightAtom{
		"other-1": {ID: "other-1", Claim: "Unrelated claim."},
	}}
	links := &fakeLinkStore{}
	client := &fakeLLM{jsonBy: map[string]string{
		"classify the relationship": `{"type":"UNRELATED","confidence":0.9}`,
	}}
	g := NewIngestor(logger.NewNop(), client, &fakeEmbedder{dim: 4}, index, store, links, nil)

	atoms := []*types.InsightAtom{{ID: "a1", VideoID: "vid9", Claim: "Something.", Embedding: []float32{1}}}
	if err := g.Correlate(context.Background(), atoms); err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if len(links.saved) != 0 {
		t.Fatalf("UNRELATED edges must not persist, got %d", len(links.saved))
	}
}
