package sources

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/ratelimit"
	"github.com/techpulse/techpulse-backend/internal/types"
)

const githubSearchURL = "https://api.github.com/search/repositories"

var githubTopics = []string{
	"machine-learning", "llm", "ai-agents", "vector-database",
	"robotics", "quantum-computing", "self-hosted",
}

// GitHubAdapter surfaces recently created repositories via the search
// API. Unauthenticated search gets 10 requests a minute, which is why
// the default rate for this source is the lowest in the registry; a
// GITHUB_TOKEN raises the ceiling.
type GitHubAdapter struct {
	fetch *fetcher
	log   *logger.Logger
	token string
	now   func() time.Time
}

func NewGitHubAdapter(log *logger.Logger, limiter *ratelimit.Limiter) *GitHubAdapter {
	l := log.With("adapter", "github")
	return &GitHubAdapter{
		fetch: newFetcher(l, limiter),
		log:   l,
		token: strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
		now:   time.Now,
	}
}

func (a *GitHubAdapter) Name() string { return "github" }

func (a *GitHubAdapter) headers() map[string]string {
	h := map[string]string{"Accept": "application/vnd.github+json"}
	if a.token != "" {
		h["Authorization"] = "Bearer " + a.token
	}
	return h
}

type githubSearchResponse struct {
	Items []githubRepo `json:"items"`
}

type githubRepo struct {
	FullName    string   `json:"full_name"`
	Description string   `json:"description"`
	HTMLURL     string   `json:"html_url"`
	CreatedAt   string   `json:"created_at"`
	PushedAt    string   `json:"pushed_at"`
	Stargazers  int      `json:"stargazers_count"`
	Forks       int      `json:"forks_count"`
	Language    string   `json:"language"`
	Topics      []string `json:"topics"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (a *GitHubAdapter) FetchLatest(ctx context.Context, limit int, dateThreshold time.Time) ([]*types.Record, error) {
	if limit <= 0 {
		limit = 25
	}
	topic := rotate(githubTopics, a.now())

	q := url.Values{}
	q.Set("q", fmt.Sprintf("topic:%s created:>=%s", topic, dateThreshold.Format("2006-01-02")))
	q.Set("sort", "stars")
	q.Set("order", "desc")
	q.Set("per_page", fmt.Sprint(limit))

	var resp githubSearchResponse
	if err := a.fetch.getJSON(ctx, githubSearchURL+"?"+q.Encode(), a.headers(), &resp); err != nil {
		return nil, fmt.Errorf("github fetch: %w", err)
	}

	var out []*types.Record
	for _, repo := range resp.Items {
		if r, ok := a.toRecord(repo, dateThreshold); ok {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	a.log.Debug("GitHub fetch done", "topic", topic, "records", len(out))
	return out, nil
}

func (a *GitHubAdapter) toRecord(repo githubRepo, dateThreshold time.Time) (*types.Record, bool) {
	if repo.FullName == "" {
		return nil, false
	}
	r := &types.Record{
		Type:    types.RecordGitHub,
		Title:   repo.FullName,
		Summary: strings.TrimSpace(repo.Description),
		Link:    repo.HTMLURL,
		Venue:   "GitHub",
		Authors: []string{repo.Owner.Login},
		Metadata: map[string]any{
			"stars":    repo.Stargazers,
			"forks":    repo.Forks,
			"language": repo.Language,
		},
	}
	if t, err := time.Parse(time.RFC3339, repo.CreatedAt); err == nil {
		r.Published = t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, repo.PushedAt); err == nil {
		r.Updated = t.UTC()
	}
	r.Categories = append(r.Categories, repo.Topics...)
	if !finalize(r, dateThreshold) {
		return nil, false
	}
	return r, true
}
