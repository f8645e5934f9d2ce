package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

func paper(id, title string, published time.Time) *types.Record {
	return &types.Record{
		ID:           id,
		Type:         types.RecordPaper,
		Title:        title,
		Published:    published,
		DateFidelity: types.FidelityDay,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMergeTwoAdaptersWithOverlap(t *testing.T) {
	s := NewStore(logger.NewNop(), 100)

	a1 := paper("arxiv:2401.00001", "Retrieval Augmented Planning", day(2024, 1, 3))
	a1.SetExternalID(types.NSArxiv, "2401.00001")
	a2 := paper("arxiv:2401.00002", "Sparse Expert Routing at Scale", day(2024, 1, 2))
	a2.SetExternalID(types.NSArxiv, "2401.00002")
	a3 := paper("arxiv:2401.00003", "Contrastive Audio Pretraining", day(2024, 1, 1))
	a3.SetExternalID(types.NSArxiv, "2401.00003")

	res := s.MergeBatch([]*types.Record{a1, a2, a3})
	if res.New != 3 || res.Updated != 0 {
		t.Fatalf("first batch: got %+v", res)
	}

	// Adapter B re-reports 00002 under its DOI, same title.
	b1 := paper("doi:10.1/x", "Sparse Expert Routing at Scale", day(2024, 1, 2))
	b1.SetExternalID(types.NSDOI, "10.1/x")
	b1.Citations = 7
	b2 := paper("doi:10.2/y", "Verified Compilation of Tensor Programs", day(2024, 1, 2))
	b2.SetExternalID(types.NSDOI, "10.2/y")
	b3 := paper("doi:10.3/z", "Field Studies of Robot Deployment", day(2024, 1, 1))
	b3.SetExternalID(types.NSDOI, "10.3/z")

	res = s.MergeBatch([]*types.Record{b1, b2, b3})
	if res.New != 2 || res.Updated != 1 {
		t.Fatalf("second batch: got %+v", res)
	}
	if s.Len() != 5 {
		t.Fatalf("expected catalog size 5, got %d", s.Len())
	}
	merged, ok := s.Get("arxiv:2401.00002")
	if !ok {
		t.Fatalf("merged record lost its original id")
	}
	if merged.ExternalID(types.NSArxiv) != "2401.00002" || merged.ExternalID(types.NSDOI) != "10.1/x" {
		t.Fatalf("expected both external ids, got %v", merged.ExternalIDs)
	}
	if merged.Citations != 7 {
		t.Fatalf("expected max citations taken, got %d", merged.Citations)
	}
	if !s.LastPaperDate().Equal(day(2024, 1, 3)) {
		t.Fatalf("expected lastPaperDate 2024-01-03, got %v", s.LastPaperDate())
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	s := NewStore(logger.NewNop(), 100)
	batch := func() []*types.Record {
		r := paper("arxiv:2401.00001", "A Study of Caching", day(2024, 1, 3))
		r.SetExternalID(types.NSArxiv, "2401.00001")
		return []*types.Record{r}
	}
	s.MergeBatch(batch())
	before := s.Len()
	res := s.MergeBatch(batch())
	if res.New != 0 || res.Updated != 1 {
		t.Fatalf("re-ingest: got %+v", res)
	}
	if s.Len() != before {
		t.Fatalf("re-ingesting the same payload changed the catalog: %d -> %d", before, s.Len())
	}
}

func TestTitleCollisionIgnoresCaseAndPunctuation(t *testing.T) {
	s := NewStore(logger.NewNop(), 100)
	r1 := paper("fp:1", "Attention Is All You Need!", day(2024, 1, 1))
	s.MergeBatch([]*types.Record{r1})

	r2 := paper("fp:2", "attention is all you need", day(2024, 1, 1))
	res := s.MergeBatch([]*types.Record{r2})
	if res.New != 0 || res.Updated != 1 {
		t.Fatalf("expected title collision, got %+v", res)
	}
}

func TestShortTitlesSkipFingerprint(t *testing.T) {
	s := NewStore(logger.NewNop(), 100)
	s.MergeBatch([]*types.Record{paper("fp:1", "Go", day(2024, 1, 1))})
	res := s.MergeBatch([]*types.Record{paper("fp:2", "Go", day(2024, 1, 2))})
	if res.New != 1 {
		t.Fatalf("expected short titles not to collide, got %+v", res)
	}
}

func TestEvictionDropsOldestPublished(t *testing.T) {
	s := NewStore(logger.NewNop(), 3)
	var batch []*types.Record
	for i := 1; i <= 5; i++ {
		batch = append(batch, paper(fmt.Sprintf("fp:%d", i), fmt.Sprintf("Catalog Entry Number %d", i), day(2024, 1, i)))
	}
	res := s.MergeBatch(batch)
	if res.Evicted != 2 {
		t.Fatalf("expected 2 evictions, got %+v", res)
	}
	if s.Len() != 3 {
		t.Fatalf("ceiling not enforced: %d", s.Len())
	}
	for _, gone := range []string{"fp:1", "fp:2"} {
		if _, ok := s.Get(gone); ok {
			t.Fatalf("expected %s evicted", gone)
		}
	}
	for _, kept := range []string{"fp:3", "fp:4", "fp:5"} {
		if _, ok := s.Get(kept); !ok {
			t.Fatalf("expected %s kept", kept)
		}
	}
}

func TestMergeOrderInsensitive(t *testing.T) {
	mk := func() (a, b, c *types.Record) {
		a = paper("arxiv:1", "Profiles of Distributed Tracing", day(2024, 1, 1))
		a.SetExternalID(types.NSArxiv, "1")
		b = paper("doi:10.1/t", "Profiles of Distributed Tracing", day(2024, 1, 1))
		b.SetExternalID(types.NSDOI, "10.1/t")
		b.Citations = 4
		c = paper("fp:other", "An Unrelated Catalog Record", day(2024, 1, 2))
		return
	}

	s1 := NewStore(logger.NewNop(), 100)
	a, b, c := mk()
	s1.MergeBatch([]*types.Record{a})
	s1.MergeBatch([]*types.Record{b, c})

	s2 := NewStore(logger.NewNop(), 100)
	a, b, c = mk()
	s2.MergeBatch([]*types.Record{b, c})
	s2.MergeBatch([]*types.Record{a})

	if s1.Len() != 2 || s2.Len() != 2 {
		t.Fatalf("expected 2 records each, got %d and %d", s1.Len(), s2.Len())
	}
	for _, s := range []*Store{s1, s2} {
		var merged *types.Record
		for _, r := range s.Snapshot() {
			if r.Title == "Profiles of Distributed Tracing" {
				merged = r
			}
		}
		if merged == nil {
			t.Fatalf("merged record missing")
		}
		if merged.Citations != 4 {
			t.Fatalf("expected citations carried through merge, got %d", merged.Citations)
		}
		if merged.ExternalID(types.NSArxiv) == "" || merged.ExternalID(types.NSDOI) == "" {
			t.Fatalf("expected external ids unioned, got %v", merged.ExternalIDs)
		}
	}
}

func TestMergePrefersHigherDateFidelity(t *testing.T) {
	yearOnly := paper("dblp:conf/x/Y24", "Compilers for Quantum Circuits", day(2024, 1, 1))
	yearOnly.DateFidelity = types.FidelityYear
	precise := paper("doi:10.9/q", "Compilers for Quantum Circuits", day(2024, 6, 12))
	precise.DateFidelity = types.FidelityDay

	m := mergeRecords(yearOnly, precise)
	if !m.Published.Equal(day(2024, 6, 12)) || m.DateFidelity != types.FidelityDay {
		t.Fatalf("expected day-fidelity date preferred, got %v %q", m.Published, m.DateFidelity)
	}

	// Genuinely different years: earliest wins regardless of fidelity.
	early := paper("a", "Another Title Entirely Here", day(2023, 3, 1))
	early.DateFidelity = types.FidelityDay
	late := paper("b", "Another Title Entirely Here", day(2024, 1, 1))
	late.DateFidelity = types.FidelityYear
	m = mergeRecords(late, early)
	if !m.Published.Equal(day(2023, 3, 1)) {
		t.Fatalf("expected earliest published retained, got %v", m.Published)
	}
}

func TestCollapseBatchFoldsIntraBatchDuplicates(t *testing.T) {
	r1 := paper("arxiv:7", "Streaming Joins under Skew", day(2024, 2, 1))
	r1.SetExternalID(types.NSArxiv, "7")
	r2 := paper("doi:10.5/j", "Streaming Joins Under Skew", day(2024, 2, 1))
	r2.SetExternalID(types.NSDOI, "10.5/j")
	r2.Summary = "A longer abstract describing the join algorithm in detail."

	out := CollapseBatch([]*types.Record{r1, r2})
	if len(out) != 1 {
		t.Fatalf("expected collapse to 1, got %d", len(out))
	}
	if out[0].ID != "arxiv:7" {
		t.Fatalf("expected first record's id to win, got %q", out[0].ID)
	}
	if out[0].Summary == "" {
		t.Fatalf("expected longer summary absorbed")
	}
}

func TestFilePersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.json")
	p := NewFilePersister(logger.NewNop(), path)
	ctx := context.Background()

	if doc, err := p.Load(ctx); err != nil || doc != nil {
		t.Fatalf("expected (nil, nil) before first save, got (%v, %v)", doc, err)
	}

	s := NewStore(logger.NewNop(), 100)
	r := paper("arxiv:2401.00001", "Persistent Catalog State", day(2024, 1, 3))
	r.SetExternalID(types.NSArxiv, "2401.00001")
	s.MergeBatch([]*types.Record{r})
	s.SetLastFetchTime(day(2024, 1, 4))

	if err := p.Save(ctx, s.Document()); err != nil {
		t.Fatalf("save: %v", err)
	}
	doc, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.Papers) != 1 || !doc.LastFetchTime.Equal(day(2024, 1, 4)) || !doc.LastPaperDate.Equal(day(2024, 1, 3)) {
		t.Fatalf("unexpected document: %+v", doc)
	}

	restored := NewStore(logger.NewNop(), 100)
	restored.Hydrate(doc)
	if restored.Len() != 1 || !restored.LastPaperDate().Equal(day(2024, 1, 3)) {
		t.Fatalf("hydrate lost state: len=%d lastPaperDate=%v", restored.Len(), restored.LastPaperDate())
	}
	if _, ok := restored.Get("arxiv:2401.00001"); !ok {
		t.Fatalf("hydrated record missing")
	}
}
