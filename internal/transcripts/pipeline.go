package transcripts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/techpulse/techpulse-backend/internal/clients/assemblyai"
	"github.com/techpulse/techpulse-backend/internal/clients/openai"
	"github.com/techpulse/techpulse-backend/internal/pkg/httpx"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
)

// WhisperClient is the slice of the OpenAI client the pipeline needs.
type WhisperClient interface {
	TranscribeAudio(ctx context.Context, filename string, audio []byte) ([]openai.WhisperSegment, error)
}

// AssemblyClient is the slice of the AssemblyAI client the pipeline
// needs.
type AssemblyClient interface {
	Transcribe(ctx context.Context, audio []byte) ([]assemblyai.Utterance, error)
}

// Downloader abstracts yt-dlp for tests.
type Downloader interface {
	Download(ctx context.Context, videoID string) (*AudioFile, error)
	Split(ctx context.Context, f *AudioFile) ([]string, []chunkSpan, error)
	Cleanup(f *AudioFile, chunks []string)
}

// CaptionSource abstracts the caption fetcher for tests.
type CaptionSource interface {
	Fetch(ctx context.Context, videoID string) ([]Segment, error)
}

// Pipeline produces transcripts by walking a fallback chain: a
// dedicated transcript service, published captions, Whisper over the
// downloaded audio, then AssemblyAI. Videos where every method fails
// are marked unavailable for 24 hours.
type Pipeline struct {
	log        *logger.Logger
	serviceURL string
	httpClient *http.Client
	captions   CaptionSource
	downloader Downloader
	whisper    WhisperClient
	assembly   AssemblyClient
	cache      UnavailabilityCache
}

// NewPipeline wires the chain. Any of captions, downloader, whisper,
// and assembly may be nil; nil stages are skipped. serviceURL may be
// empty.
func NewPipeline(log *logger.Logger, serviceURL string, captions CaptionSource, downloader Downloader, whisper WhisperClient, assembly AssemblyClient, cache UnavailabilityCache) *Pipeline {
	if cache == nil {
		cache = NewMemoryUnavailabilityCache()
	}
	return &Pipeline{
		log:        log.With("service", "TranscriptPipeline"),
		serviceURL: strings.TrimRight(serviceURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		captions:   captions,
		downloader: downloader,
		whisper:    whisper,
		assembly:   assembly,
		cache:      cache,
	}
}

// Transcript returns the formatted transcript for a video, or an empty
// string when no method could produce one. Only infrastructure errors
// (context cancellation) are returned as errors.
func (p *Pipeline) Transcript(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", errors.New("empty video id")
	}
	if p.cache.IsUnavailable(ctx, videoID) {
		p.log.Debug("Transcript cached as unavailable", "videoId", videoID)
		return "", nil
	}

	if segments := p.tryService(ctx, videoID); len(segments) > 0 {
		return Format(segments), nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if segments := p.tryCaptions(ctx, videoID); len(segments) > 0 {
		return Format(segments), nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if segments := p.tryAudio(ctx, videoID); len(segments) > 0 {
		return Format(segments), nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	p.log.Info("All transcript methods failed, marking unavailable", "videoId", videoID)
	p.cache.MarkUnavailable(ctx, videoID)
	return "", nil
}

type serviceResponse struct {
	Transcript string `json:"transcript"`
}

func (p *Pipeline) tryService(ctx context.Context, videoID string) []Segment {
	if p.serviceURL == "" {
		return nil
	}
	q := url.Values{}
	q.Set("url", "https://www.youtube.com/watch?v="+videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serviceURL+"/transcript?"+q.Encode(), nil)
	if err != nil {
		return nil
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.log.Warn("Transcript service unreachable", "videoId", videoID, "error", err.Error())
		return nil
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := &httpx.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
		p.log.Warn("Transcript service error", "videoId", videoID, "error", err.Error())
		return nil
	}
	var parsed serviceResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		p.log.Warn("Transcript service returned invalid JSON", "videoId", videoID, "error", err.Error())
		return nil
	}
	return Parse(parsed.Transcript)
}

func (p *Pipeline) tryCaptions(ctx context.Context, videoID string) []Segment {
	if p.captions == nil {
		return nil
	}
	segments, err := p.captions.Fetch(ctx, videoID)
	if err != nil {
		p.log.Debug("Caption fetch failed", "videoId", videoID, "error", err.Error())
		return nil
	}
	return segments
}

// tryAudio downloads the audio once and feeds it to Whisper, falling
// back to AssemblyAI on the same file. A blocked download skips both.
func (p *Pipeline) tryAudio(ctx context.Context, videoID string) []Segment {
	if p.downloader == nil || (p.whisper == nil && p.assembly == nil) {
		return nil
	}
	audio, err := p.downloader.Download(ctx, videoID)
	if err != nil {
		if errors.Is(err, ErrBlocked) {
			p.log.Info("Video blocked, skipping audio methods", "videoId", videoID, "error", err.Error())
		} else {
			p.log.Warn("Audio download failed", "videoId", videoID, "error", err.Error())
		}
		return nil
	}
	var chunks []string
	defer func() { p.downloader.Cleanup(audio, chunks) }()

	if p.whisper != nil {
		segments, werr := p.whisperTranscribe(ctx, audio, &chunks)
		if werr != nil {
			p.log.Warn("Whisper transcription failed", "videoId", videoID, "error", werr.Error())
		} else if len(segments) > 0 {
			return segments
		}
	}
	if p.assembly != nil {
		segments, aerr := p.assemblyTranscribe(ctx, audio)
		if aerr != nil {
			p.log.Warn("AssemblyAI transcription failed", "videoId", videoID, "error", aerr.Error())
		} else if len(segments) > 0 {
			return segments
		}
	}
	return nil
}

func (p *Pipeline) whisperTranscribe(ctx context.Context, audio *AudioFile, chunks *[]string) ([]Segment, error) {
	paths, spans, err := p.downloader.Split(ctx, audio)
	if err != nil {
		return nil, err
	}
	*chunks = paths

	var out []Segment
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		whisperSegs, err := p.whisper.TranscribeAudio(ctx, filepath.Base(path), data)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		out = append(out, shiftWhisperSegments(whisperSegs, spans[i].Offset)...)
	}
	return out, nil
}

// shiftWhisperSegments rebases chunk-relative timestamps onto the
// video timeline.
func shiftWhisperSegments(segs []openai.WhisperSegment, offset time.Duration) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		out = append(out, Segment{
			Offset: offset + time.Duration(s.Start*float64(time.Second)),
			Text:   text,
		})
	}
	return out
}

func (p *Pipeline) assemblyTranscribe(ctx context.Context, audio *AudioFile) ([]Segment, error) {
	data, err := os.ReadFile(audio.Path)
	if err != nil {
		return nil, err
	}
	utterances, err := p.assembly.Transcribe(ctx, data)
	if err != nil {
		return nil, err
	}
	out := make([]Segment, 0, len(utterances))
	for _, u := range utterances {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}
		speaker := u.Speaker
		if speaker != "" && len(speaker) <= 2 {
			speaker = "Speaker " + speaker
		}
		out = append(out, Segment{
			Offset:  time.Duration(u.Start) * time.Millisecond,
			Speaker: speaker,
			Text:    text,
		})
	}
	return out, nil
}
