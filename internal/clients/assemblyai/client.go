package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/httpx"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
)

const (
	defaultBaseURL = "https://api.assemblyai.com"
	maxPollWait    = 10 * time.Minute
	pollInterval   = 5 * time.Second
)

// Utterance is one speaker-attributed span. Start and End are
// milliseconds from the start of the audio.
type Utterance struct {
	Speaker string `json:"speaker"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Text    string `json:"text"`
}

// Client drives the upload-then-poll transcription flow.
type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
	uploads    *http.Client
}

// New requires ASSEMBLYAI_API_KEY.
func New(log *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("ASSEMBLYAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing ASSEMBLYAI_API_KEY")
	}
	baseURL := strings.TrimSpace(os.Getenv("ASSEMBLYAI_BASE_URL"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		log:        log.With("service", "AssemblyAIClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		uploads:    &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// NewFromEnv returns (nil, nil) when no API key is configured.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(os.Getenv("ASSEMBLYAI_API_KEY")) == "" {
		return nil, nil
	}
	return New(log)
}

// Transcribe uploads the audio buffer, submits a transcription job with
// speaker labels, and polls until it completes or the wait budget runs
// out.
func (c *Client) Transcribe(ctx context.Context, audio []byte) ([]Utterance, error) {
	uploadURL, err := c.upload(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("assemblyai upload: %w", err)
	}
	id, err := c.submit(ctx, uploadURL)
	if err != nil {
		return nil, fmt.Errorf("assemblyai submit: %w", err)
	}
	return c.poll(ctx, id)
}

func (c *Client) upload(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.uploads.Do(req)
	if err != nil {
		return "", err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &httpx.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("upload response missing upload_url")
	}
	return out.UploadURL, nil
}

func (c *Client) submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"audio_url":      audioURL,
		"speaker_labels": true,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &httpx.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("transcript response missing id")
	}
	return out.ID, nil
}

type transcriptStatus struct {
	Status     string      `json:"status"`
	Error      string      `json:"error"`
	Utterances []Utterance `json:"utterances"`
	Words      []struct {
		Text  string `json:"text"`
		Start int    `json:"start"`
		End   int    `json:"end"`
	} `json:"words"`
	Text string `json:"text"`
}

func (c *Client) poll(ctx context.Context, id string) ([]Utterance, error) {
	deadline := time.Now().Add(maxPollWait)
	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("assemblyai poll: timed out after %s", maxPollWait)
		}
		req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v2/transcript/"+id, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		raw, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &httpx.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
		}

		var st transcriptStatus
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, err
		}
		switch st.Status {
		case "completed":
			return utterancesFrom(st), nil
		case "error":
			return nil, fmt.Errorf("assemblyai transcription failed: %s", st.Error)
		}
		if err := httpx.Sleep(ctx, pollInterval); err != nil {
			return nil, err
		}
	}
}

// utterancesFrom prefers speaker-labelled utterances and falls back to
// word timings grouped into one span, then to the plain text.
func utterancesFrom(st transcriptStatus) []Utterance {
	if len(st.Utterances) > 0 {
		return st.Utterances
	}
	if len(st.Words) > 0 {
		var b strings.Builder
		for i, w := range st.Words {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(w.Text)
		}
		return []Utterance{{
			Speaker: "Speaker",
			Start:   st.Words[0].Start,
			End:     st.Words[len(st.Words)-1].End,
			Text:    b.String(),
		}}
	}
	if strings.TrimSpace(st.Text) != "" {
		return []Utterance{{Speaker: "Speaker", Text: strings.TrimSpace(st.Text)}}
	}
	return nil
}
