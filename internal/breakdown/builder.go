package breakdown

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/techpulse/techpulse-backend/internal/llm"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/transcripts"
	"github.com/techpulse/techpulse-backend/internal/types"
)

const (
	maxTranscriptChars = 50000
	fallbackWindow     = 5 * time.Minute
	minDepthScore      = 0.4
	maxSnippetChars    = 600
	templateGenerator  = "Template"
)

// Builder turns a formatted transcript into a Breakdown. The LLM
// client may be nil; every stage has a deterministic fallback.
type Builder struct {
	log    *logger.Logger
	client llm.Client
}

func NewBuilder(log *logger.Logger, client llm.Client) *Builder {
	return &Builder{
		log:    log.With("service", "BreakdownBuilder"),
		client: client,
	}
}

// Build produces the breakdown for one video. It never fails outright:
// when the LLM is absent or misbehaves the result is template-built and
// marked GeneratedBy "Template".
func (b *Builder) Build(ctx context.Context, videoID, title, transcript string) (*types.Breakdown, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("empty transcript for video %s", videoID)
	}
	lines := transcripts.Parse(transcript)

	bd := &types.Breakdown{VideoID: videoID, GeneratedBy: templateGenerator}
	if b.client != nil {
		bd.GeneratedBy = b.client.Name()
	}

	segments, structure, ok := b.llmSegment(ctx, title, transcript)
	if !ok {
		segments, structure = timeSegment(lines)
		bd.GeneratedBy = templateGenerator
	}

	for i := range segments {
		insights, llmOK := b.llmInsights(ctx, &segments[i])
		if !llmOK {
			insights = keywordInsights(&segments[i])
		}
		segments[i].Insights = filterShallow(insights)
	}

	bd.Segments = segments
	bd.OverallStructure = structure
	bd.Summary = b.summarize(ctx, title, segments)
	return bd, nil
}

type segmentationResponse struct {
	Segments         []types.Segment        `json:"segments"`
	OverallStructure types.OverallStructure `json:"overallStructure"`
}

func (b *Builder) llmSegment(ctx context.Context, title, transcript string) ([]types.Segment, types.OverallStructure, bool) {
	if b.client == nil {
		return nil, types.OverallStructure{}, false
	}
	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars]
	}
	system := "You segment podcast transcripts by topic shift. Respond with JSON: " +
		`{"segments":[{"title","startTime","endTime","summary","topics":[],"transcriptSnippet","keyTakeaways":[]}],"overallStructure":{"intro","mainTopics":[],"conclusion"}}. ` +
		"Timestamps are HH:MM:SS taken from the transcript lines."
	prompt := fmt.Sprintf("Video: %s\n\nTranscript:\n%s", title, transcript)

	var parsed segmentationResponse
	if err := b.client.GenerateJSON(ctx, system, prompt, &parsed); err != nil {
		b.log.Warn("Segmentation call failed, using time-based fallback", "error", err.Error())
		return nil, types.OverallStructure{}, false
	}
	if len(parsed.Segments) == 0 {
		b.log.Warn("Segmentation returned no segments, using time-based fallback")
		return nil, types.OverallStructure{}, false
	}
	for i := range parsed.Segments {
		if parsed.Segments[i].Title == "" {
			parsed.Segments[i].Title = fmt.Sprintf("Segment %d", i+1)
		}
	}
	return parsed.Segments, parsed.OverallStructure, true
}

// timeSegment cuts the transcript at five-minute boundaries.
func timeSegment(lines []transcripts.Segment) ([]types.Segment, types.OverallStructure) {
	if len(lines) == 0 {
		return nil, types.OverallStructure{}
	}
	var out []types.Segment
	windowStart := time.Duration(0)
	var bucket []transcripts.Segment
	flush := func(end time.Duration) {
		if len(bucket) == 0 {
			return
		}
		var texts []string
		for _, l := range bucket {
			texts = append(texts, l.Text)
		}
		snippet := strings.Join(texts, " ")
		if len(snippet) > maxSnippetChars {
			snippet = snippet[:maxSnippetChars]
		}
		out = append(out, types.Segment{
			Title:             fmt.Sprintf("Part %d", len(out)+1),
			StartTime:         transcripts.FormatTimestamp(windowStart),
			EndTime:           transcripts.FormatTimestamp(end),
			Summary:           firstSentence(snippet),
			TranscriptSnippet: snippet,
		})
		bucket = bucket[:0]
	}
	for _, line := range lines {
		for line.Offset >= windowStart+fallbackWindow {
			flush(windowStart + fallbackWindow)
			windowStart += fallbackWindow
		}
		bucket = append(bucket, line)
	}
	last := lines[len(lines)-1].Offset
	flush(last + time.Second)

	structure := types.OverallStructure{}
	if len(out) > 0 {
		structure.Intro = out[0].Summary
		structure.Conclusion = out[len(out)-1].Summary
		for _, s := range out {
			structure.MainTopics = append(structure.MainTopics, s.Title)
		}
	}
	return out, structure
}

type insightResponse struct {
	Insights []types.Insight `json:"insights"`
}

func (b *Builder) llmInsights(ctx context.Context, seg *types.Segment) ([]types.Insight, bool) {
	if b.client == nil {
		return nil, false
	}
	system := "You extract insights from a podcast segment. Respond with JSON: " +
		`{"insights":[{"type","text","depth_score","speaker","timestamp","context"}]}. ` +
		"Allowed types: framework, tactical_advice, tradeoff, personal_experience, quantitative_claim, nuanced_opinion. " +
		"depth_score is 0 to 1."
	prompt := fmt.Sprintf("Segment: %s (%s - %s)\nSummary: %s\nTranscript:\n%s",
		seg.Title, seg.StartTime, seg.EndTime, seg.Summary, seg.TranscriptSnippet)

	var parsed insightResponse
	if err := b.client.GenerateJSON(ctx, system, prompt, &parsed); err != nil {
		b.log.Warn("Insight call failed, using keyword fallback", "segment", seg.Title, "error", err.Error())
		return nil, false
	}
	var valid []types.Insight
	for _, in := range parsed.Insights {
		if !types.ValidInsightType(in.Type) || strings.TrimSpace(in.Text) == "" {
			continue
		}
		if in.Timestamp == "" {
			in.Timestamp = seg.StartTime
		}
		valid = append(valid, in)
	}
	return valid, true
}

// insightCues maps surface markers to insight types for the keyword
// fallback. First match wins.
var insightCues = []struct {
	cue string
	typ types.InsightType
}{
	{"trade-off", types.InsightTradeoff},
	{"tradeoff", types.InsightTradeoff},
	{"on the other hand", types.InsightTradeoff},
	{"in my experience", types.InsightPersonalExperience},
	{"when i was", types.InsightPersonalExperience},
	{"we learned", types.InsightPersonalExperience},
	{"you should", types.InsightTacticalAdvice},
	{"my advice", types.InsightTacticalAdvice},
	{"recommend", types.InsightTacticalAdvice},
	{"framework", types.InsightFramework},
	{"mental model", types.InsightFramework},
	{"percent", types.InsightQuantitativeClaim},
	{"%", types.InsightQuantitativeClaim},
	{"billion", types.InsightQuantitativeClaim},
	{"million", types.InsightQuantitativeClaim},
	{"i think", types.InsightNuancedOpinion},
	{"arguably", types.InsightNuancedOpinion},
}

func keywordInsights(seg *types.Segment) []types.Insight {
	var out []types.Insight
	for _, sentence := range splitSentences(seg.TranscriptSnippet) {
		lower := strings.ToLower(sentence)
		for _, c := range insightCues {
			if strings.Contains(lower, c.cue) {
				out = append(out, types.Insight{
					Type:       c.typ,
					Text:       sentence,
					DepthScore: 0.5,
					Timestamp:  seg.StartTime,
				})
				break
			}
		}
	}
	return out
}

func filterShallow(insights []types.Insight) []types.Insight {
	var out []types.Insight
	for _, in := range insights {
		if in.DepthScore >= minDepthScore {
			out = append(out, in)
		}
	}
	return out
}

func (b *Builder) summarize(ctx context.Context, title string, segments []types.Segment) string {
	if b.client != nil {
		prompt := fmt.Sprintf("Video: %s\nSegments:\n", title)
		for _, s := range segments {
			prompt += "- " + s.Title + ": " + s.Summary + "\n"
		}
		out, err := b.client.GenerateText(ctx,
			"Write a two to three sentence summary of this podcast episode.", prompt, 300)
		if err == nil && strings.TrimSpace(out) != "" {
			return strings.TrimSpace(out)
		}
		if err != nil {
			b.log.Warn("Summary call failed, using template", "error", err.Error())
		}
	}
	return templateSummary(title, segments)
}

func templateSummary(title string, segments []types.Segment) string {
	insightCount := 0
	var topics []string
	for _, s := range segments {
		insightCount += len(s.Insights)
		if len(topics) < 3 {
			topics = append(topics, s.Title)
		}
	}
	summary := fmt.Sprintf("%s covers %d segments including %s.", title, len(segments), strings.Join(topics, ", "))
	if insightCount > 0 {
		summary += fmt.Sprintf(" It yields %d notable insights.", insightCount)
	}
	return summary
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(text[start : i+1])
			if len(s) > 10 {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); len(tail) > 10 {
		out = append(out, tail)
	}
	return out
}

func firstSentence(text string) string {
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return strings.TrimSpace(text[:i+1])
		}
	}
	return strings.TrimSpace(text)
}
