package transcripts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
)

const (
	maxAudioDuration = 2 * time.Hour
	// Whisper rejects uploads over 25 MB; splits aim under 20 to leave
	// headroom for container overhead.
	whisperMaxBytes = 25 * 1024 * 1024
	chunkTargetByte = 20 * 1024 * 1024
)

// ErrBlocked marks downloads that can never succeed for this video:
// age-restricted, private, or 403-refused. It short-circuits the
// remaining audio-based methods.
var ErrBlocked = errors.New("transcripts: download blocked")

// ErrTooLong rejects videos over the duration ceiling.
var ErrTooLong = errors.New("transcripts: audio exceeds duration limit")

// AudioFile is a downloaded audio track on local disk.
type AudioFile struct {
	Path     string
	Size     int64
	Duration time.Duration
}

// AudioDownloader shells out to yt-dlp for extraction and ffprobe /
// ffmpeg for probing and splitting.
type AudioDownloader struct {
	log     *logger.Logger
	workDir string
	runner  func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)
}

func NewAudioDownloader(log *logger.Logger, workDir string) *AudioDownloader {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &AudioDownloader{
		log:     log.With("service", "AudioDownloader"),
		workDir: workDir,
		runner:  runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Download extracts the audio track for a video. Blocked downloads
// return ErrBlocked; videos over two hours return ErrTooLong.
func (d *AudioDownloader) Download(ctx context.Context, videoID string) (*AudioFile, error) {
	out := filepath.Join(d.workDir, "audio-"+videoID+".m4a")
	_, stderr, err := d.runner(ctx, "yt-dlp",
		"-f", "bestaudio[ext=m4a]/bestaudio",
		"--no-playlist",
		"-o", out,
		"https://www.youtube.com/watch?v="+videoID,
	)
	if err != nil {
		if isBlockedOutput(string(stderr)) {
			return nil, fmt.Errorf("%w: %s", ErrBlocked, firstLine(string(stderr)))
		}
		return nil, fmt.Errorf("yt-dlp: %w: %s", err, firstLine(string(stderr)))
	}

	info, err := os.Stat(out)
	if err != nil {
		return nil, fmt.Errorf("downloaded audio missing: %w", err)
	}
	duration, err := d.probeDuration(ctx, out)
	if err != nil {
		return nil, err
	}
	if duration > maxAudioDuration {
		_ = os.Remove(out)
		return nil, fmt.Errorf("%w: %s", ErrTooLong, duration)
	}
	return &AudioFile{Path: out, Size: info.Size(), Duration: duration}, nil
}

func (d *AudioDownloader) probeDuration(ctx context.Context, path string) (time.Duration, error) {
	stdout, stderr, err := d.runner(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w: %s", err, firstLine(string(stderr)))
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(stdout)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// chunkSpan is one slice of the audio timeline.
type chunkSpan struct {
	Offset time.Duration
	Length time.Duration
}

// chunkPlan splits an oversized file into equal spans whose estimated
// size stays under the chunk target. Files already under the Whisper
// limit get a single full-length span.
func chunkPlan(size int64, duration time.Duration) []chunkSpan {
	if size <= whisperMaxBytes || duration <= 0 {
		return []chunkSpan{{Offset: 0, Length: duration}}
	}
	n := int((size + chunkTargetByte - 1) / chunkTargetByte)
	if n < 2 {
		n = 2
	}
	per := duration / time.Duration(n)
	spans := make([]chunkSpan, 0, n)
	for i := 0; i < n; i++ {
		offset := time.Duration(i) * per
		length := per
		if i == n-1 {
			length = duration - offset
		}
		spans = append(spans, chunkSpan{Offset: offset, Length: length})
	}
	return spans
}

// Split cuts the file into chunk files per the plan and returns their
// paths alongside the span offsets. Single-span plans reuse the
// original file.
func (d *AudioDownloader) Split(ctx context.Context, f *AudioFile) ([]string, []chunkSpan, error) {
	spans := chunkPlan(f.Size, f.Duration)
	if len(spans) == 1 {
		return []string{f.Path}, spans, nil
	}
	paths := make([]string, 0, len(spans))
	for i, span := range spans {
		out := fmt.Sprintf("%s.chunk%d.m4a", f.Path, i)
		_, stderr, err := d.runner(ctx, "ffmpeg",
			"-y",
			"-i", f.Path,
			"-ss", fmt.Sprintf("%.3f", span.Offset.Seconds()),
			"-t", fmt.Sprintf("%.3f", span.Length.Seconds()),
			"-c", "copy",
			out,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("ffmpeg split chunk %d: %w: %s", i, err, firstLine(string(stderr)))
		}
		paths = append(paths, out)
	}
	return paths, spans, nil
}

// Cleanup removes the audio file and any chunks cut from it.
func (d *AudioDownloader) Cleanup(f *AudioFile, chunks []string) {
	for _, p := range chunks {
		if p != "" && p != f.Path {
			_ = os.Remove(p)
		}
	}
	_ = os.Remove(f.Path)
}

func isBlockedOutput(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range []string{"403", "age-restricted", "age restricted", "private video", "sign in to confirm"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
