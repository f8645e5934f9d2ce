package types

// Signal is the analytics-facing view over a canonical record: the record
// plus technology, industry and sentiment annotations.
type Signal struct {
	Record       *Record  `json:"record"`
	Technologies []string `json:"technologies"`
	Industries   []string `json:"industries"`
	Sentiment    float64  `json:"sentiment"`
	Confidence   float64  `json:"confidence"`
}

// TechnologyMomentum is one row of the momentum list.
type TechnologyMomentum struct {
	Technology  string             `json:"technology"`
	Momentum    float64            `json:"momentum"`
	Confidence  float64            `json:"confidence"`
	SignalCount int                `json:"signalCount"`
	BySource    map[string]float64 `json:"bySource,omitempty"`
}

// IndustryGrowth is one row of the industry growth list.
type IndustryGrowth struct {
	Industry    string  `json:"industry"`
	GrowthRate  float64 `json:"growthRate"`
	GrowthScore float64 `json:"growthScore"`
	Confidence  float64 `json:"confidence"`
	SignalCount int     `json:"signalCount"`
}

// EmergingTechnology is one row of the emerging list.
type EmergingTechnology struct {
	Technology    string  `json:"technology"`
	Score         float64 `json:"score"`
	Velocity      float64 `json:"velocity"`
	RecentSignals int     `json:"recentSignals"`
	TotalSignals  int     `json:"totalSignals"`
	LeaderQuotes  int     `json:"leaderQuotes"`
}

// LeaderQuote is a prediction-flavored quote pulled from a breakdown.
type LeaderQuote struct {
	Technology string  `json:"technology"`
	Speaker    string  `json:"speaker,omitempty"`
	Quote      string  `json:"quote"`
	VideoID    string  `json:"videoId"`
	Timestamp  string  `json:"timestamp"`
	Confidence float64 `json:"confidence"`
	Published  string  `json:"published,omitempty"`
}

// TechnologyRead is the narrative output for one technology.
type TechnologyRead struct {
	Technology  string  `json:"technology"`
	Score       float64 `json:"score"`
	Momentum    float64 `json:"momentum"`
	PatentCount int     `json:"patentCount"`
	QuoteCount  int     `json:"quoteCount"`
	SignalCount int     `json:"signalCount"`
	Summary     string  `json:"summary"`
	FullRead    string  `json:"fullRead"`
	GeneratedBy string  `json:"generatedBy"`
}
