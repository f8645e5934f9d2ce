package signals

import (
	"strings"

	"github.com/techpulse/techpulse-backend/internal/types"
)

var positiveWords = map[string]bool{
	"breakthrough": true, "growth": true, "record": true, "surge": true,
	"success": true, "improve": true, "improves": true, "improved": true,
	"launch": true, "launches": true, "funding": true, "adoption": true,
	"milestone": true, "win": true, "wins": true, "gain": true, "gains": true,
	"innovative": true, "efficient": true, "faster": true, "better": true,
	"promising": true, "advance": true, "advances": true, "boost": true,
}

var negativeWords = map[string]bool{
	"layoff": true, "layoffs": true, "decline": true, "drop": true,
	"fail": true, "fails": true, "failed": true, "failure": true,
	"breach": true, "hack": true, "lawsuit": true, "ban": true,
	"banned": true, "risk": true, "risks": true, "concern": true,
	"concerns": true, "shutdown": true, "loss": true, "losses": true,
	"slow": true, "slower": true, "worse": true, "crisis": true,
	"vulnerability": true, "outage": true,
}

// Sentiment scores a news text as the positive/negative word
// differential over the matched word count, clamped to [-1, 1].
// Non-news records always score 0.
func Sentiment(r *types.Record) float64 {
	if r.Type != types.RecordNews {
		return 0
	}
	text := strings.ToLower(r.Title + " " + r.Summary)
	var pos, neg int
	for _, word := range strings.FieldsFunc(text, func(c rune) bool {
		return !('a' <= c && c <= 'z') && !('0' <= c && c <= '9')
	}) {
		if positiveWords[word] {
			pos++
		}
		if negativeWords[word] {
			neg++
		}
	}
	matched := pos + neg
	if matched == 0 {
		return 0
	}
	score := float64(pos-neg) / float64(matched)
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}
