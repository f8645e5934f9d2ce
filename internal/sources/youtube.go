package sources

import (
	"context"
	"strings"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/ratelimit"
	"github.com/techpulse/techpulse-backend/internal/types"
)

const youtubeFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id="

// ChannelInfo identifies one tracked YouTube channel.
type ChannelInfo struct {
	ID   string
	Name string
}

// ChannelLister supplies the channels to poll. The channels table repo
// implements it; when no registry is wired the adapter falls back to a
// built-in list.
type ChannelLister interface {
	ListChannels(ctx context.Context) ([]ChannelInfo, error)
}

var defaultChannels = []ChannelInfo{
	{ID: "UCSHZKyawb77ixDdsGog4iWA", Name: "Lex Fridman"},
	{ID: "UCcefcZRL2oaA_uBNeo5UOWg", Name: "Y Combinator"},
	{ID: "UCP7jMXSY2xbc3KCAE0MHQ-A", Name: "Google DeepMind"},
	{ID: "UCXZCJLdBC09xxGZ6gcdrc6A", Name: "OpenAI"},
}

// YouTubeAdapter polls channel Atom feeds and emits podcast records.
// Transcript and breakdown enrichment happen downstream; the adapter
// only normalizes the feed entries.
type YouTubeAdapter struct {
	fetch    *fetcher
	log      *logger.Logger
	channels ChannelLister
}

func NewYouTubeAdapter(log *logger.Logger, limiter *ratelimit.Limiter, channels ChannelLister) *YouTubeAdapter {
	l := log.With("adapter", "youtube")
	return &YouTubeAdapter{fetch: newFetcher(l, limiter), log: l, channels: channels}
}

func (a *YouTubeAdapter) Name() string { return "youtube" }

type youtubeFeed struct {
	Entries []youtubeEntry `xml:"entry"`
}

type youtubeEntry struct {
	VideoID   string `xml:"videoId"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	Author    struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Group struct {
		Description string `xml:"description"`
	} `xml:"group"`
}

func (a *YouTubeAdapter) FetchLatest(ctx context.Context, limit int, dateThreshold time.Time) ([]*types.Record, error) {
	if limit <= 0 {
		limit = 25
	}
	channels := defaultChannels
	if a.channels != nil {
		listed, err := a.channels.ListChannels(ctx)
		if err != nil {
			a.log.Warn("Channel registry unavailable, using built-in list", "error", err.Error())
		} else if len(listed) > 0 {
			channels = listed
		}
	}

	var out []*types.Record
	for _, ch := range channels {
		if len(out) >= limit {
			break
		}
		var feed youtubeFeed
		if err := a.fetch.getXML(ctx, youtubeFeedURL+ch.ID, nil, &feed); err != nil {
			a.log.Warn("Channel feed fetch failed", "channel", ch.Name, "error", err.Error())
			continue
		}
		for _, e := range feed.Entries {
			if r, ok := a.toRecord(e, ch, dateThreshold); ok {
				out = append(out, r)
			}
			if len(out) >= limit {
				break
			}
		}
	}
	a.log.Debug("YouTube fetch done", "channels", len(channels), "records", len(out))
	return out, nil
}

func (a *YouTubeAdapter) toRecord(e youtubeEntry, ch ChannelInfo, dateThreshold time.Time) (*types.Record, bool) {
	videoID := strings.TrimSpace(e.VideoID)
	if videoID == "" {
		return nil, false
	}
	venue := ch.Name
	if venue == "" {
		venue = strings.TrimSpace(e.Author.Name)
	}
	r := &types.Record{
		Type:    types.RecordPodcast,
		Title:   strings.TrimSpace(e.Title),
		Summary: strings.TrimSpace(e.Group.Description),
		Venue:   venue,
		Link:    "https://www.youtube.com/watch?v=" + videoID,
		Metadata: map[string]any{
			"channelId": ch.ID,
		},
	}
	if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
		r.Published = t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, e.Updated); err == nil {
		r.Updated = t.UTC()
	}
	if venue != "" {
		r.Authors = []string{venue}
	}
	r.SetExternalID(types.NSYouTube, videoID)
	if !finalize(r, dateThreshold) {
		return nil, false
	}
	return r, true
}
