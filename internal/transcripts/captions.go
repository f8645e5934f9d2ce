package transcripts

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/httpx"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
)

const timedTextURL = "https://video.google.com/timedtext"

// captionLangs is the preference order; an empty string means "any
// published track".
var captionLangs = []string{"en", "en-US", "en-GB", ""}

// CaptionFetcher pulls already-published caption tracks.
type CaptionFetcher struct {
	log    *logger.Logger
	client *http.Client
}

func NewCaptionFetcher(log *logger.Logger) *CaptionFetcher {
	return &CaptionFetcher{
		log:    log.With("service", "CaptionFetcher"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type timedText struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

// Fetch tries each preferred language and returns the first non-empty
// track as segments.
func (f *CaptionFetcher) Fetch(ctx context.Context, videoID string) ([]Segment, error) {
	var lastErr error
	for _, lang := range captionLangs {
		segments, err := f.fetchLang(ctx, videoID, lang)
		if err != nil {
			lastErr = err
			continue
		}
		if len(segments) > 0 {
			return segments, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no caption track for video %s", videoID)
}

func (f *CaptionFetcher) fetchLang(ctx context.Context, videoID, lang string) ([]Segment, error) {
	q := url.Values{}
	q.Set("v", videoID)
	if lang != "" {
		q.Set("lang", lang)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, timedTextURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpx.StatusError{StatusCode: resp.StatusCode, Body: "timedtext " + strconv.Itoa(resp.StatusCode)}
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var tt timedText
	if err := xml.Unmarshal(raw, &tt); err != nil {
		return nil, fmt.Errorf("decode captions: %w", err)
	}
	var out []Segment
	for _, t := range tt.Texts {
		text := html.UnescapeString(t.Body)
		if text == "" {
			continue
		}
		out = append(out, Segment{
			Offset: time.Duration(t.Start * float64(time.Second)),
			Text:   text,
		})
	}
	return out, nil
}
