package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("SOURCES_CONFIG", "")
	cfg, err := Load(logger.NewNop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Sources) != len(defaultSources) {
		t.Fatalf("expected %d default sources, got %v", len(defaultSources), cfg.Sources)
	}
	if cfg.StoreBackend != "file" || cfg.LLMProvider != "none" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if got := cfg.Rate("crossref"); got != 10.0 {
		t.Fatalf("crossref rate %v", got)
	}
	if got := cfg.Rate("never-configured"); got != 1.0 {
		t.Fatalf("fallback rate %v", got)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "watson")
	if _, err := Load(logger.NewNop()); err == nil {
		t.Fatal("expected error for unknown LLM provider")
	}
}

func TestSourceFileOverridesSourcesAndRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	doc := "sources:\n  - arxiv\n  - hackernews\nrate_limits:\n  ArXiv: 3.5\n  github: -1\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SOURCES_CONFIG", path)
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("STORE_BACKEND", "file")

	cfg, err := Load(logger.NewNop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0] != "arxiv" || cfg.Sources[1] != "hackernews" {
		t.Fatalf("sources %v", cfg.Sources)
	}
	if got := cfg.Rate("arxiv"); got != 3.5 {
		t.Fatalf("arxiv rate %v", got)
	}
	// Non-positive overrides are ignored; the default survives.
	if got := cfg.Rate("github"); got != 0.5 {
		t.Fatalf("github rate %v", got)
	}
}
