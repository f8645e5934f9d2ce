package types

// InsightType classifies what kind of claim an insight carries.
type InsightType string

const (
	InsightFramework          InsightType = "framework"
	InsightTacticalAdvice     InsightType = "tactical_advice"
	InsightTradeoff           InsightType = "tradeoff"
	InsightPersonalExperience InsightType = "personal_experience"
	InsightQuantitativeClaim  InsightType = "quantitative_claim"
	InsightNuancedOpinion     InsightType = "nuanced_opinion"
)

// ValidInsightType reports whether t is one of the recognized types.
func ValidInsightType(t InsightType) bool {
	switch t {
	case InsightFramework, InsightTacticalAdvice, InsightTradeoff,
		InsightPersonalExperience, InsightQuantitativeClaim, InsightNuancedOpinion:
		return true
	}
	return false
}

// Insight is a single extracted claim inside a segment.
type Insight struct {
	Type       InsightType `json:"type"`
	Text       string      `json:"text"`
	DepthScore float64     `json:"depth_score"`
	Speaker    string      `json:"speaker,omitempty"`
	Timestamp  string      `json:"timestamp"`
	Context    string      `json:"context,omitempty"`
}

// Segment is one topic-coherent span of a transcript.
type Segment struct {
	Title             string    `json:"title"`
	StartTime         string    `json:"startTime"`
	EndTime           string    `json:"endTime"`
	Summary           string    `json:"summary"`
	Topics            []string  `json:"topics,omitempty"`
	TranscriptSnippet string    `json:"transcriptSnippet,omitempty"`
	Insights          []Insight `json:"insights,omitempty"`
	KeyTakeaways      []string  `json:"keyTakeaways,omitempty"`
}

// OverallStructure summarizes how the video is organized.
type OverallStructure struct {
	Intro      string   `json:"intro,omitempty"`
	MainTopics []string `json:"mainTopics,omitempty"`
	Conclusion string   `json:"conclusion,omitempty"`
}

// Breakdown is the topic-segmented, insight-annotated view of one video.
// It is attached to podcast records under metadata.breakdown.
type Breakdown struct {
	VideoID          string           `json:"videoId"`
	Segments         []Segment        `json:"segments"`
	OverallStructure OverallStructure `json:"overallStructure"`
	Summary          string           `json:"summary,omitempty"`
	GeneratedBy      string           `json:"generatedBy,omitempty"`
}
