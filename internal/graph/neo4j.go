package graph

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// Client wraps the Neo4j driver. The graph tier is optional; NewFromEnv
// returns (nil, nil) when NEO4J_URI is unset.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

func NewFromEnv(log *logger.Logger) (*Client, error) {
	uri := strings.TrimSpace(os.Getenv("NEO4J_URI"))
	if uri == "" {
		return nil, nil
	}

	user := strings.TrimSpace(os.Getenv("NEO4J_USER"))
	if user == "" {
		user = "neo4j"
	}
	password := strings.TrimSpace(os.Getenv("NEO4J_PASSWORD"))
	database := strings.TrimSpace(os.Getenv("NEO4J_DATABASE"))

	timeoutSec := 10
	if v := strings.TrimSpace(os.Getenv("NEO4J_TIMEOUT_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""), func(cfg *neo4j.Config) {
		cfg.SocketConnectTimeout = time.Duration(timeoutSec) * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: database,
		log:      log.With("client", "Neo4j"),
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}

// Mirror pushes insight atoms and their typed links into the graph.
// It satisfies the breakdown package's GraphMirror.
type Mirror struct {
	client *Client
	log    *logger.Logger
}

func NewMirror(log *logger.Logger, client *Client) *Mirror {
	return &Mirror{
		client: client,
		log:    log.With("service", "GraphMirror"),
	}
}

// MirrorAtoms MERGEs atom nodes keyed by id. Embeddings stay out of the
// graph; the vector store owns them.
func (m *Mirror) MirrorAtoms(ctx context.Context, atoms []*types.InsightAtom) error {
	if m == nil || m.client == nil || m.client.Driver == nil || len(atoms) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	nodes := make([]map[string]any, 0, len(atoms))
	for _, a := range atoms {
		if a == nil || a.ID == "" {
			continue
		}
		nodes = append(nodes, map[string]any{
			"id":            a.ID,
			"video_id":      a.VideoID,
			"segment_index": int64(a.SegmentIndex),
			"topic":         a.Topic,
			"entity":        a.Entity,
			"claim":         a.Claim,
			"stance":        string(a.Stance),
			"certainty":     string(a.Certainty),
			"quote":         a.Quote,
			"start_time":    a.StartTime,
			"end_time":      a.EndTime,
			"synced_at":     now,
		})
	}
	if len(nodes) == 0 {
		return nil
	}

	session := m.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.client.Database,
	})
	defer session.Close(ctx)

	// Best-effort; restricted users may not hold schema privileges.
	if res, err := session.Run(ctx, `CREATE CONSTRAINT atom_id_unique IF NOT EXISTS FOR (a:InsightAtom) REQUIRE a.id IS UNIQUE`, nil); err != nil {
		m.log.Warn("Graph schema init failed, continuing", "error", err.Error())
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $nodes AS n
MERGE (a:InsightAtom {id: n.id})
SET a += n
`, map[string]any{"nodes": nodes})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// MirrorLinks MERGEs typed relationships between already-mirrored
// atoms. Relationship types cannot be parameterized in Cypher, so links
// are grouped per type.
func (m *Mirror) MirrorLinks(ctx context.Context, links []*types.AtomLink) error {
	if m == nil || m.client == nil || m.client.Driver == nil || len(links) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	byType := map[string][]map[string]any{}
	for _, l := range links {
		if l == nil || l.FromAtomID == "" || l.ToAtomID == "" || !types.ValidLinkType(l.Type) {
			continue
		}
		byType[l.Type] = append(byType[l.Type], map[string]any{
			"from_id":    l.FromAtomID,
			"to_id":      l.ToAtomID,
			"confidence": l.Confidence,
			"synced_at":  now,
		})
	}
	if len(byType) == 0 {
		return nil
	}

	session := m.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.client.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for edgeType, rels := range byType {
			query := fmt.Sprintf(`
UNWIND $rels AS r
MATCH (a:InsightAtom {id: r.from_id})
MATCH (b:InsightAtom {id: r.to_id})
MERGE (a)-[e:%s]->(b)
SET e.confidence = r.confidence,
    e.synced_at = r.synced_at
`, edgeType)
			res, err := tx.Run(ctx, query, map[string]any{"rels": rels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}
