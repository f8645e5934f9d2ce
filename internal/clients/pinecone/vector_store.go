package pinecone

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
)

const defaultNamespace = "insight-atoms"

// VectorStore wraps the raw client with index-host resolution and the
// atom-centric operations the knowledge graph needs.
type VectorStore struct {
	log       *logger.Logger
	client    Client
	indexName string
	namespace string

	mu   sync.Mutex
	host string
}

// NewVectorStore resolves the index host lazily on first use.
func NewVectorStore(log *logger.Logger, client Client, indexName string) (*VectorStore, error) {
	if client == nil {
		return nil, fmt.Errorf("pinecone client required")
	}
	indexName = strings.TrimSpace(indexName)
	if indexName == "" {
		return nil, fmt.Errorf("index name required")
	}
	namespace := strings.TrimSpace(os.Getenv("PINECONE_NAMESPACE"))
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &VectorStore{
		log:       log.With("service", "VectorStore"),
		client:    client,
		indexName: indexName,
		namespace: namespace,
	}, nil
}

// NewVectorStoreFromEnv returns (nil, nil) when Pinecone is not
// configured.
func NewVectorStoreFromEnv(log *logger.Logger) (*VectorStore, error) {
	client, err := NewFromEnv(log)
	if err != nil || client == nil {
		return nil, err
	}
	indexName := strings.TrimSpace(os.Getenv("PINECONE_INDEX"))
	if indexName == "" {
		log.Warn("PINECONE_API_KEY set but PINECONE_INDEX missing, vector store disabled")
		return nil, nil
	}
	return NewVectorStore(log, client, indexName)
}

func (s *VectorStore) resolveHost(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host != "" {
		return s.host, nil
	}
	desc, err := s.client.DescribeIndex(ctx, s.indexName)
	if err != nil {
		return "", err
	}
	s.host = desc.Host
	return s.host, nil
}

// Upsert writes vectors with their metadata.
func (s *VectorStore) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	host, err := s.resolveHost(ctx)
	if err != nil {
		return fmt.Errorf("resolve index host: %w", err)
	}
	if _, err := s.client.UpsertVectors(ctx, host, UpsertRequest{
		Vectors:   vectors,
		Namespace: s.namespace,
	}); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	return nil
}

// Neighbors queries for the nearest vectors and drops matches below
// minScore.
func (s *VectorStore) Neighbors(ctx context.Context, vector []float32, topK int, minScore float64) ([]QueryMatch, error) {
	host, err := s.resolveHost(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve index host: %w", err)
	}
	resp, err := s.client.Query(ctx, host, QueryRequest{
		Namespace:       s.namespace,
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	var out []QueryMatch
	for _, m := range resp.Matches {
		if m.Score >= minScore {
			out = append(out, m)
		}
	}
	return out, nil
}
