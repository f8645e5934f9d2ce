package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// NarrativeRepo stores generated meta narratives, the periodic prose
// syntheses of what the knowledge graph currently says.
type NarrativeRepo interface {
	Save(ctx context.Context, narrative *types.MetaNarrative) error
	Latest(ctx context.Context, limit int) ([]*types.MetaNarrative, error)
}

type narrativeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNarrativeRepo(db *gorm.DB, baseLog *logger.Logger) NarrativeRepo {
	return &narrativeRepo{db: db, log: baseLog.With("repo", "NarrativeRepo")}
}

func (nr *narrativeRepo) Save(ctx context.Context, narrative *types.MetaNarrative) error {
	return nr.db.WithContext(ctx).Create(narrative).Error
}

func (nr *narrativeRepo) Latest(ctx context.Context, limit int) ([]*types.MetaNarrative, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []*types.MetaNarrative
	if err := nr.db.WithContext(ctx).
		Order("generated_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
