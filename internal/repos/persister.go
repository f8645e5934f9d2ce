package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/techpulse/techpulse-backend/internal/catalog"
	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// StorePersister is the relational catalog.Persister: records go to the
// papers table, the watermarks to the single-row catalog_meta table.
type StorePersister struct {
	db     *gorm.DB
	papers PaperRepo
	log    *logger.Logger
}

func NewStorePersister(db *gorm.DB, baseLog *logger.Logger) *StorePersister {
	return &StorePersister{
		db:     db,
		papers: NewPaperRepo(db, baseLog),
		log:    baseLog.With("service", "StorePersister"),
	}
}

func (sp *StorePersister) Save(ctx context.Context, doc *catalog.Document) error {
	if err := sp.papers.UpsertBatch(ctx, doc.Papers); err != nil {
		return err
	}
	if len(doc.Papers) > 0 {
		keep := make([]string, 0, len(doc.Papers))
		for _, r := range doc.Papers {
			keep = append(keep, r.ID)
		}
		if err := sp.papers.DeleteNotIn(ctx, keep); err != nil {
			return err
		}
	}
	meta := &types.CatalogMeta{
		ID:            1,
		LastFetchTime: doc.LastFetchTime,
		LastPaperDate: doc.LastPaperDate,
	}
	return sp.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_fetch_time", "last_paper_date", "updated_at"}),
		}).
		Create(meta).Error
}

func (sp *StorePersister) Load(ctx context.Context) (*catalog.Document, error) {
	var meta types.CatalogMeta
	err := sp.db.WithContext(ctx).
		Where("id = ?", 1).
		First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	papers, err := sp.papers.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return &catalog.Document{
		Papers:        papers,
		LastFetchTime: meta.LastFetchTime,
		LastPaperDate: meta.LastPaperDate,
	}, nil
}
