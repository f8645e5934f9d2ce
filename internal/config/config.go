package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/platform/envutil"
)

// Config is the process-wide configuration. Everything is env-first with
// sane defaults; an optional YAML file can override per-source settings.
type Config struct {
	LogMode string

	RefreshInterval time.Duration
	DeepRefresh     time.Duration

	MaxRecords int

	// Sources enabled for the ingestion cycle, in no particular order.
	Sources []string

	// Requests per second per source. Missing sources fall back to
	// DefaultRateLimits.
	RateLimits map[string]float64

	// "openai", "anthropic" or "none".
	LLMProvider string

	// Empty disables knowledge-graph ingestion.
	EmbeddingProvider string

	// Optional primary transcript micro-service.
	TranscriptServiceURL string

	// "file" or "relational".
	StoreBackend string

	// File-backend catalog document path.
	CatalogPath string

	// Polite contact appended to Crossref requests.
	CrossrefMailto string
}

// DefaultRateLimits holds the per-source request budgets agreed with each
// upstream's usage policy.
var DefaultRateLimits = map[string]float64{
	"arxiv":           1.0,
	"semanticscholar": 1.0,
	"openalex":        1.0,
	"crossref":        10.0,
	"pubmed":          2.0,
	"dblp":            1.0,
	"github":          0.5,
	"hackernews":      2.0,
	"patents":         1.0,
	"youtube":         1.0,
}

var defaultSources = []string{
	"arxiv", "semanticscholar", "openalex", "crossref", "pubmed",
	"dblp", "github", "hackernews", "patents", "youtube",
}

type fileConfig struct {
	Sources    []string           `yaml:"sources"`
	RateLimits map[string]float64 `yaml:"rate_limits"`
}

func Load(log *logger.Logger) (*Config, error) {
	cfg := &Config{
		LogMode:              envutil.String("LOG_MODE", "development"),
		RefreshInterval:      time.Duration(envutil.Int("REFRESH_INTERVAL_MINUTES", 10)) * time.Minute,
		DeepRefresh:          time.Duration(envutil.Int("DEEP_REFRESH_HOURS", 6)) * time.Hour,
		MaxRecords:           envutil.Int("MAX_RECORDS", 10000),
		LLMProvider:          strings.ToLower(envutil.String("LLM_PROVIDER", "none")),
		EmbeddingProvider:    strings.ToLower(envutil.String("EMBEDDING_PROVIDER", "")),
		TranscriptServiceURL: envutil.String("TRANSCRIPT_SERVICE_URL", ""),
		StoreBackend:         strings.ToLower(envutil.String("STORE_BACKEND", "file")),
		CatalogPath:          envutil.String("CATALOG_PATH", "data/catalog.json"),
		CrossrefMailto:       envutil.String("CROSSREF_MAILTO", "ops@techpulse.dev"),
		Sources:              append([]string(nil), defaultSources...),
		RateLimits:           map[string]float64{},
	}
	for k, v := range DefaultRateLimits {
		cfg.RateLimits[k] = v
	}

	switch cfg.LLMProvider {
	case "openai", "anthropic", "none":
	default:
		return nil, fmt.Errorf("config: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	switch cfg.StoreBackend {
	case "file", "relational":
	default:
		return nil, fmt.Errorf("config: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if path := envutil.String("SOURCES_CONFIG", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
		log.Info("Source config file applied", "path", path)
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if len(fc.Sources) > 0 {
		c.Sources = fc.Sources
	}
	for name, rps := range fc.RateLimits {
		if rps > 0 {
			c.RateLimits[strings.ToLower(name)] = rps
		}
	}
	return nil
}

// Rate returns the configured requests/second for a source.
func (c *Config) Rate(source string) float64 {
	if v, ok := c.RateLimits[strings.ToLower(source)]; ok && v > 0 {
		return v
	}
	return 1.0
}
