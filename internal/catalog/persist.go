package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// Document is the durable shape of the catalog.
type Document struct {
	Papers        []*types.Record `json:"papers"`
	LastFetchTime time.Time       `json:"lastFetchTime"`
	LastPaperDate time.Time       `json:"lastPaperDate"`
}

// Persister stores and reloads the catalog document. Load returns
// (nil, nil) when nothing has been persisted yet.
type Persister interface {
	Save(ctx context.Context, doc *Document) error
	Load(ctx context.Context) (*Document, error)
}

// FilePersister writes the document as one JSON file, atomically:
// write to a temp file in the same directory, fsync, then rename over
// the target.
type FilePersister struct {
	path string
	log  *logger.Logger
}

func NewFilePersister(log *logger.Logger, path string) *FilePersister {
	return &FilePersister{path: path, log: log.With("service", "FilePersister")}
}

func (p *FilePersister) Save(_ context.Context, doc *Document) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp catalog file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp catalog file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp catalog file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp catalog file: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("swap catalog file: %w", err)
	}
	return nil
}

func (p *FilePersister) Load(_ context.Context) (*Document, error) {
	raw, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog file: %w", err)
	}
	return &doc, nil
}
