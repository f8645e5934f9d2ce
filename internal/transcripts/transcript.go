package transcripts

import (
	"fmt"
	"strings"
	"time"
)

// Segment is one speaker-attributed span of a transcript. Offset is
// measured from the start of the video.
type Segment struct {
	Offset  time.Duration
	Speaker string
	Text    string
}

// FormatTimestamp renders an offset as HH:MM:SS.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Parse reads formatted transcript lines back into segments. Input
// that does not match the line format becomes a single zero-offset
// segment so raw prose still flows through the pipeline.
func Parse(transcript string) []Segment {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil
	}
	var out []Segment
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seg, ok := parseLine(line)
		if !ok {
			return []Segment{{Offset: 0, Text: transcript}}
		}
		out = append(out, seg)
	}
	return out
}

func parseLine(line string) (Segment, bool) {
	var h, m, s int
	if n, err := fmt.Sscanf(line, "%02d:%02d:%02d", &h, &m, &s); err != nil || n != 3 {
		return Segment{}, false
	}
	rest := strings.TrimSpace(line[8:])
	seg := Segment{Offset: time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second}
	if strings.HasPrefix(rest, "[") {
		if end := strings.Index(rest, "]:"); end > 0 {
			seg.Speaker = rest[1:end]
			rest = strings.TrimSpace(rest[end+2:])
		}
	}
	seg.Text = rest
	return seg, seg.Text != ""
}

// Format renders segments one per line as "HH:MM:SS [Speaker]: text".
func Format(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		speaker := s.Speaker
		if speaker == "" {
			speaker = "Speaker"
		}
		fmt.Fprintf(&b, "%s [%s]: %s\n", FormatTimestamp(s.Offset), speaker, text)
	}
	return strings.TrimRight(b.String(), "\n")
}
