package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Relational rows for the optional Postgres backend. Canonical records are
// stored as jsonb payloads with the columns the query paths filter on
// broken out and indexed.

type PaperRow struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	Type      string         `gorm:"column:type;index" json:"type"`
	Title     string         `gorm:"column:title;index" json:"title"`
	Venue     string         `gorm:"column:venue;index" json:"venue"`
	Published time.Time      `gorm:"column:published;index" json:"published"`
	Updated   time.Time      `gorm:"column:updated" json:"updated"`
	Payload   datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (PaperRow) TableName() string { return "papers" }

type PodcastRow struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	VideoID   string         `gorm:"column:video_id;uniqueIndex" json:"video_id"`
	ChannelID string         `gorm:"column:channel_id;index" json:"channel_id"`
	Title     string         `gorm:"column:title" json:"title"`
	Published time.Time      `gorm:"column:published;index" json:"published"`
	Payload   datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	Breakdown datatypes.JSON `gorm:"type:jsonb;column:breakdown" json:"breakdown,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (PodcastRow) TableName() string { return "podcasts" }

type Channel struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"column:name" json:"name"`
	FeedURL     string    `gorm:"column:feed_url" json:"feed_url"`
	LastChecked time.Time `gorm:"column:last_checked" json:"last_checked"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Channel) TableName() string { return "channels" }

// Snapshot tables carry a monotonically increasing generated_at; readers
// always select the most recent row.

type TechnologyReadsSnapshot struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GeneratedAt time.Time      `gorm:"column:generated_at;index" json:"generated_at"`
	Payload     datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
}

func (TechnologyReadsSnapshot) TableName() string { return "technology_reads_snapshots" }

type TechnologyPredictionsSnapshot struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GeneratedAt time.Time      `gorm:"column:generated_at;index" json:"generated_at"`
	Payload     datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
}

func (TechnologyPredictionsSnapshot) TableName() string { return "technology_predictions_snapshots" }

type InsightAtomRow struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	VideoID      string         `gorm:"column:video_id;index" json:"video_id"`
	SegmentIndex int            `gorm:"column:segment_index" json:"segment_index"`
	Topic        string         `gorm:"column:topic;index" json:"topic"`
	Entity       string         `gorm:"column:entity;index" json:"entity"`
	Claim        string         `gorm:"column:claim" json:"claim"`
	Stance       string         `gorm:"column:stance" json:"stance"`
	Certainty    string         `gorm:"column:certainty" json:"certainty"`
	Quote        string         `gorm:"column:quote" json:"quote,omitempty"`
	StartTime    string         `gorm:"column:start_time" json:"start_time"`
	EndTime      string         `gorm:"column:end_time" json:"end_time"`
	Embedding    datatypes.JSON `gorm:"type:jsonb;column:embedding" json:"embedding,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (InsightAtomRow) TableName() string { return "insight_atoms" }

type AtomLinkRow struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FromAtomID string    `gorm:"column:from_atom_id;index" json:"from_atom_id"`
	ToAtomID   string    `gorm:"column:to_atom_id;index" json:"to_atom_id"`
	Type       string    `gorm:"column:type" json:"type"`
	Confidence float64   `gorm:"column:confidence" json:"confidence"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (AtomLinkRow) TableName() string { return "atom_links" }

// CatalogMeta is a single-row table holding the catalog watermarks
// that accompany the persisted records.
type CatalogMeta struct {
	ID            int       `gorm:"primaryKey" json:"id"`
	LastFetchTime time.Time `gorm:"column:last_fetch_time" json:"last_fetch_time"`
	LastPaperDate time.Time `gorm:"column:last_paper_date" json:"last_paper_date"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CatalogMeta) TableName() string { return "catalog_meta" }

type MetaNarrative struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GeneratedAt time.Time      `gorm:"column:generated_at;index" json:"generated_at"`
	Title       string         `gorm:"column:title" json:"title"`
	Body        string         `gorm:"column:body" json:"body"`
	Payload     datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload,omitempty"`
}

func (MetaNarrative) TableName() string { return "meta_narratives" }
