package repos

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// SnapshotRepo persists dated analytics snapshots. It satisfies the
// analytics engine's SnapshotStore: readers always get the most recent
// generation, writers append a new row per recompute.
type SnapshotRepo interface {
	SaveReads(ctx context.Context, reads []types.TechnologyRead) error
	LatestReads(ctx context.Context) ([]types.TechnologyRead, time.Time, error)
	SavePredictions(ctx context.Context, reads []types.TechnologyRead) error
	LatestPredictions(ctx context.Context) ([]types.TechnologyRead, time.Time, error)
}

type snapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return &snapshotRepo{db: db, log: baseLog.With("repo", "SnapshotRepo"), now: time.Now}
}

func (sr *snapshotRepo) SaveReads(ctx context.Context, reads []types.TechnologyRead) error {
	payload, err := json.Marshal(reads)
	if err != nil {
		return err
	}
	row := &types.TechnologyReadsSnapshot{GeneratedAt: sr.now().UTC(), Payload: payload}
	return sr.db.WithContext(ctx).Create(row).Error
}

func (sr *snapshotRepo) LatestReads(ctx context.Context) ([]types.TechnologyRead, time.Time, error) {
	var row types.TechnologyReadsSnapshot
	err := sr.db.WithContext(ctx).
		Order("generated_at DESC").
		Limit(1).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	var reads []types.TechnologyRead
	if err := json.Unmarshal(row.Payload, &reads); err != nil {
		return nil, time.Time{}, err
	}
	return reads, row.GeneratedAt, nil
}

func (sr *snapshotRepo) SavePredictions(ctx context.Context, reads []types.TechnologyRead) error {
	payload, err := json.Marshal(reads)
	if err != nil {
		return err
	}
	row := &types.TechnologyPredictionsSnapshot{GeneratedAt: sr.now().UTC(), Payload: payload}
	return sr.db.WithContext(ctx).Create(row).Error
}

func (sr *snapshotRepo) LatestPredictions(ctx context.Context) ([]types.TechnologyRead, time.Time, error) {
	var row types.TechnologyPredictionsSnapshot
	err := sr.db.WithContext(ctx).
		Order("generated_at DESC").
		Limit(1).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	var reads []types.TechnologyRead
	if err := json.Unmarshal(row.Payload, &reads); err != nil {
		return nil, time.Time{}, err
	}
	return reads, row.GeneratedAt, nil
}
