package breakdown

import (
	"context"
	"fmt"
	"strings"

	"github.com/techpulse/techpulse-backend/internal/types"
)

const (
	neighborTopK      = 6
	neighborMinCosine = 0.75
)

// Correlate finds prior atoms similar to the given ones, classifies
// each candidate edge with the LLM, and persists every non-UNRELATED
// link. It is meant to run asynchronously after Ingest.
func (g *Ingestor) Correlate(ctx context.Context, atoms []*types.InsightAtom) error {
	if !g.Enabled() || g.client == nil || g.links == nil {
		return nil
	}
	var links []*types.AtomLink
	for _, atom := range atoms {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(atom.Embedding) == 0 {
			continue
		}
		matches, err := g.vectors.Neighbors(ctx, atom.Embedding, neighborTopK, neighborMinCosine)
		if err != nil {
			g.log.Warn("Neighbor query failed", "atomId", atom.ID, "error", err.Error())
			continue
		}
		for _, m := range matches {
			if m.ID == atom.ID {
				continue
			}
			if vid, _ := m.Metadata["video_id"].(string); vid == atom.VideoID {
				continue
			}
			link, err := g.classifyEdge(ctx, atom, m.ID, m.Metadata)
			if err != nil {
				g.log.Warn("Edge classification failed", "from", atom.ID, "to", m.ID, "error", err.Error())
				continue
			}
			if link != nil {
				links = append(links, link)
			}
		}
	}
	if len(links) == 0 {
		return nil
	}
	if err := g.links.SaveLinks(ctx, links); err != nil {
		return fmt.Errorf("save atom links: %w", err)
	}
	if g.graph != nil {
		if err := g.graph.MirrorLinks(ctx, links); err != nil {
			g.log.Warn("Graph mirror failed for links", "count", len(links), "error", err.Error())
		}
	}
	g.log.Info("Persisted atom links", "count", len(links))
	return nil
}

type edgeResponse struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// classifyEdge asks the LLM how two claims relate. UNRELATED and
// unrecognized types yield no link.
func (g *Ingestor) classifyEdge(ctx context.Context, from *types.InsightAtom, toID string, toMeta map[string]any) (*types.AtomLink, error) {
	other := ""
	if g.atoms != nil {
		atom, err := g.atoms.GetAtom(ctx, toID)
		if err == nil && atom != nil {
			other = atom.Claim
		}
	}
	if other == "" {
		if topic, _ := toMeta["topic"].(string); topic != "" {
			other = "A claim about " + topic
		} else {
			return nil, nil
		}
	}

	system := "You classify the relationship between two claims. Respond with JSON: " +
		`{"type","confidence"}. ` +
		"Allowed types: CORROBORATION, CONTRADICTION, EXTENSION, PREDICTION_CHECK, RELATED, UNRELATED. " +
		"confidence is 0 to 1."
	prompt := fmt.Sprintf("Claim A: %s\nClaim B: %s", from.Claim, other)

	var parsed edgeResponse
	if err := g.client.GenerateJSON(ctx, system, prompt, &parsed); err != nil {
		return nil, err
	}
	edgeType := strings.ToUpper(strings.TrimSpace(parsed.Type))
	if edgeType == types.LinkUnrelated || !types.ValidLinkType(edgeType) {
		return nil, nil
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	return &types.AtomLink{
		FromAtomID: from.ID,
		ToAtomID:   toID,
		Type:       edgeType,
		Confidence: parsed.Confidence,
	}, nil
}
