package breakdown

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/techpulse/techpulse-backend/internal/clients/pinecone"
	"github.com/techpulse/techpulse-backend/internal/llm"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

const atomBatchSize = 5

// AtomStore persists atoms relationally. Re-processing a video replaces
// its previous atoms.
type AtomStore interface {
	ReplaceForVideo(ctx context.Context, videoID string, atoms []*types.InsightAtom) error
	GetAtom(ctx context.Context, id string) (*types.InsightAtom, error)
}

// LinkStore persists typed edges between atoms.
type LinkStore interface {
	SaveLinks(ctx context.Context, links []*types.AtomLink) error
}

// VectorIndex is the slice of the vector store the ingestor uses.
// *pinecone.VectorStore satisfies it.
type VectorIndex interface {
	Upsert(ctx context.Context, vectors []pinecone.Vector) error
	Neighbors(ctx context.Context, vector []float32, topK int, minScore float64) ([]pinecone.QueryMatch, error)
}

// GraphMirror optionally mirrors atoms and links into a graph database.
type GraphMirror interface {
	MirrorAtoms(ctx context.Context, atoms []*types.InsightAtom) error
	MirrorLinks(ctx context.Context, links []*types.AtomLink) error
}

// Ingestor turns breakdown insights into embedded atoms and stores
// them. Every collaborator except the logger may be nil; missing ones
// disable their tier without failing the pipeline.
type Ingestor struct {
	log      *logger.Logger
	client   llm.Client
	embedder llm.Embedder
	vectors  VectorIndex
	atoms    AtomStore
	links    LinkStore
	graph    GraphMirror
}

func NewIngestor(log *logger.Logger, client llm.Client, embedder llm.Embedder, vectors VectorIndex, atoms AtomStore, links LinkStore, graph GraphMirror) *Ingestor {
	return &Ingestor{
		log:      log.With("service", "AtomIngestor"),
		client:   client,
		embedder: embedder,
		vectors:  vectors,
		atoms:    atoms,
		links:    links,
		graph:    graph,
	}
}

// Enabled reports whether the knowledge-graph tier is configured at
// all. Without an embedder and a vector store there is nothing to do.
func (g *Ingestor) Enabled() bool {
	return g != nil && g.embedder != nil && g.vectors != nil
}

// Ingest extracts atoms from a breakdown, embeds them, and persists
// them in batches, replacing any previous atoms for the video.
func (g *Ingestor) Ingest(ctx context.Context, bd *types.Breakdown) ([]*types.InsightAtom, error) {
	if !g.Enabled() {
		return nil, nil
	}
	atoms := AtomsFromBreakdown(bd)
	if len(atoms) == 0 {
		return nil, nil
	}

	texts := make([]string, len(atoms))
	for i, a := range atoms {
		texts[i] = a.Claim
	}
	embeddings, err := g.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed atoms: %w", err)
	}
	if len(embeddings) != len(atoms) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d atoms", len(embeddings), len(atoms))
	}
	for i := range atoms {
		atoms[i].Embedding = embeddings[i]
	}

	if g.atoms != nil {
		if err := g.atoms.ReplaceForVideo(ctx, bd.VideoID, atoms); err != nil {
			return nil, fmt.Errorf("replace atoms: %w", err)
		}
	}

	for start := 0; start < len(atoms); start += atomBatchSize {
		end := start + atomBatchSize
		if end > len(atoms) {
			end = len(atoms)
		}
		batch := make([]pinecone.Vector, 0, end-start)
		for _, a := range atoms[start:end] {
			batch = append(batch, pinecone.Vector{
				ID:     a.ID,
				Values: a.Embedding,
				Metadata: map[string]any{
					"video_id": a.VideoID,
					"topic":    a.Topic,
					"entity":   a.Entity,
					"stance":   string(a.Stance),
				},
			})
		}
		if err := g.vectors.Upsert(ctx, batch); err != nil {
			return nil, fmt.Errorf("upsert atom batch: %w", err)
		}
	}

	if g.graph != nil {
		if err := g.graph.MirrorAtoms(ctx, atoms); err != nil {
			g.log.Warn("Graph mirror failed for atoms", "videoId", bd.VideoID, "error", err.Error())
		}
	}
	g.log.Info("Ingested insight atoms", "videoId", bd.VideoID, "count", len(atoms))
	return atoms, nil
}

// AtomsFromBreakdown flattens segment insights into atoms, assigning
// stance and certainty from keyword heuristics.
func AtomsFromBreakdown(bd *types.Breakdown) []*types.InsightAtom {
	var out []*types.InsightAtom
	for i, seg := range bd.Segments {
		topic := seg.Title
		if len(seg.Topics) > 0 {
			topic = seg.Topics[0]
		}
		for _, in := range seg.Insights {
			claim := strings.TrimSpace(in.Text)
			if claim == "" {
				continue
			}
			out = append(out, &types.InsightAtom{
				ID:           uuid.NewString(),
				VideoID:      bd.VideoID,
				SegmentIndex: i,
				Topic:        topic,
				Entity:       entityFor(claim, topic),
				Claim:        claim,
				Stance:       stanceFor(claim),
				Certainty:    certaintyFor(claim),
				Quote:        in.Context,
				StartTime:    seg.StartTime,
				EndTime:      seg.EndTime,
			})
		}
	}
	return out
}

var criticalCues = []string{"risk", "overhyped", "concern", "fail", "skeptical", "problem", "decline", "danger", "worried", "bubble"}

var optimisticCues = []string{"opportunity", "promising", "excited", "breakthrough", "bullish", "growth", "transform", "unlock"}

func stanceFor(claim string) types.Stance {
	lower := strings.ToLower(claim)
	for _, c := range criticalCues {
		if strings.Contains(lower, c) {
			return types.StanceCritical
		}
	}
	for _, c := range optimisticCues {
		if strings.Contains(lower, c) {
			return types.StanceOptimistic
		}
	}
	return types.StanceNeutral
}

var highCertaintyCues = []string{"definitely", "certainly", "proven", "always", "will ", "inevitable", "no doubt"}

var lowCertaintyCues = []string{"might", "maybe", "could", "possibly", "perhaps", "speculat", "not sure"}

func certaintyFor(claim string) types.Certainty {
	lower := strings.ToLower(claim)
	for _, c := range lowCertaintyCues {
		if strings.Contains(lower, c) {
			return types.CertaintyLow
		}
	}
	for _, c := range highCertaintyCues {
		if strings.Contains(lower, c) {
			return types.CertaintyHigh
		}
	}
	return types.CertaintyMedium
}

// entityFor picks the first multi-word capitalized run from the claim,
// falling back to the segment topic.
func entityFor(claim, topic string) string {
	words := strings.Fields(claim)
	var run []string
	for i, w := range words {
		trimmed := strings.Trim(w, ".,!?;:\"'()")
		if trimmed != "" && trimmed[0] >= 'A' && trimmed[0] <= 'Z' && i > 0 {
			run = append(run, trimmed)
			continue
		}
		if len(run) > 0 {
			break
		}
	}
	if len(run) > 0 {
		return strings.Join(run, " ")
	}
	return topic
}
