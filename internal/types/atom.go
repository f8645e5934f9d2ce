package types

// Stance is the speaker's disposition toward the claim's subject.
type Stance string

const (
	StanceCritical   Stance = "Critical"
	StanceOptimistic Stance = "Optimistic"
	StanceNeutral    Stance = "Neutral"
)

// Certainty is how firmly the claim was asserted.
type Certainty string

const (
	CertaintyLow    Certainty = "Low"
	CertaintyMedium Certainty = "Medium"
	CertaintyHigh   Certainty = "High"
)

// Link types between atoms in the knowledge graph.
const (
	LinkCorroboration   = "CORROBORATION"
	LinkContradiction   = "CONTRADICTION"
	LinkExtension       = "EXTENSION"
	LinkPredictionCheck = "PREDICTION_CHECK"
	LinkRelated         = "RELATED"
	LinkUnrelated       = "UNRELATED"
)

// ValidLinkType reports whether t is a persistable edge type. UNRELATED
// is a valid classifier output but is never persisted.
func ValidLinkType(t string) bool {
	switch t {
	case LinkCorroboration, LinkContradiction, LinkExtension,
		LinkPredictionCheck, LinkRelated:
		return true
	}
	return false
}

// InsightAtom is a single factual claim extracted from a video, eligible
// for embedding and linking in the knowledge graph.
type InsightAtom struct {
	ID           string    `json:"id"`
	VideoID      string    `json:"video_id"`
	SegmentIndex int       `json:"segment_index"`
	Topic        string    `json:"topic"`
	Entity       string    `json:"entity"`
	Claim        string    `json:"claim"`
	Stance       Stance    `json:"stance"`
	Certainty    Certainty `json:"certainty"`
	Quote        string    `json:"quote,omitempty"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

// AtomLink is a typed edge between two atoms with a confidence scalar.
type AtomLink struct {
	FromAtomID string  `json:"from_atom_id"`
	ToAtomID   string  `json:"to_atom_id"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}
