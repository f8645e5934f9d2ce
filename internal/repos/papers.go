package repos

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

const paperBatchSize = 500

// PaperRepo stores canonical records relationally. Each record is a
// jsonb payload with the filterable columns broken out.
type PaperRepo interface {
	UpsertBatch(ctx context.Context, records []*types.Record) error
	LoadAll(ctx context.Context) ([]*types.Record, error)
	DeleteNotIn(ctx context.Context, keepIDs []string) error
}

type paperRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaperRepo(db *gorm.DB, baseLog *logger.Logger) PaperRepo {
	return &paperRepo{db: db, log: baseLog.With("repo", "PaperRepo")}
}

func paperRowFrom(r *types.Record) (*types.PaperRow, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", r.ID, err)
	}
	return &types.PaperRow{
		ID:        r.ID,
		Type:      string(r.Type),
		Title:     r.Title,
		Venue:     r.Venue,
		Published: r.Published,
		Updated:   r.UpdatedOrPublished(),
		Payload:   payload,
	}, nil
}

func (pr *paperRepo) UpsertBatch(ctx context.Context, records []*types.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]*types.PaperRow, 0, len(records))
	for _, r := range records {
		row, err := paperRowFrom(r)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return pr.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "title", "venue", "published", "updated", "payload", "updated_at"}),
		}).
		CreateInBatches(&rows, paperBatchSize).Error
}

func (pr *paperRepo) LoadAll(ctx context.Context) ([]*types.Record, error) {
	var rows []*types.PaperRow
	if err := pr.db.WithContext(ctx).
		Order("published ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*types.Record, 0, len(rows))
	for _, row := range rows {
		var rec types.Record
		if err := json.Unmarshal(row.Payload, &rec); err != nil {
			pr.log.Warn("Skipping undecodable paper row", "id", row.ID, "error", err.Error())
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

// DeleteNotIn removes rows evicted from the in-memory catalog so the
// relational copy tracks the bounded ceiling.
func (pr *paperRepo) DeleteNotIn(ctx context.Context, keepIDs []string) error {
	if len(keepIDs) == 0 {
		return nil
	}
	return pr.db.WithContext(ctx).
		Where("id NOT IN ?", keepIDs).
		Delete(&types.PaperRow{}).Error
}
