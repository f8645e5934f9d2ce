package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// PodcastRepo tracks podcast records and their breakdowns. Breakdowns
// are written once per video and replaced only on re-processing.
type PodcastRepo interface {
	Upsert(ctx context.Context, record *types.Record) error
	SaveBreakdown(ctx context.Context, videoID string, bd *types.Breakdown) error
	GetBreakdown(ctx context.Context, videoID string) (*types.Breakdown, error)
	HasBreakdown(ctx context.Context, videoID string) (bool, error)
}

type podcastRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPodcastRepo(db *gorm.DB, baseLog *logger.Logger) PodcastRepo {
	return &podcastRepo{db: db, log: baseLog.With("repo", "PodcastRepo")}
}

func (pr *podcastRepo) Upsert(ctx context.Context, record *types.Record) error {
	videoID := record.ExternalID(types.NSYouTube)
	if videoID == "" {
		return fmt.Errorf("podcast record %s has no video id", record.ID)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode podcast %s: %w", record.ID, err)
	}
	channelID, _ := record.Metadata["channelId"].(string)
	row := &types.PodcastRow{
		ID:        record.ID,
		VideoID:   videoID,
		ChannelID: channelID,
		Title:     record.Title,
		Published: record.Published,
		Payload:   payload,
	}
	return pr.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"channel_id", "title", "published", "payload", "updated_at"}),
		}).
		Create(row).Error
}

func (pr *podcastRepo) SaveBreakdown(ctx context.Context, videoID string, bd *types.Breakdown) error {
	payload, err := json.Marshal(bd)
	if err != nil {
		return fmt.Errorf("encode breakdown for %s: %w", videoID, err)
	}
	res := pr.db.WithContext(ctx).
		Model(&types.PodcastRow{}).
		Where("video_id = ?", videoID).
		Update("breakdown", payload)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no podcast row for video %s", videoID)
	}
	return nil
}

func (pr *podcastRepo) GetBreakdown(ctx context.Context, videoID string) (*types.Breakdown, error) {
	var row types.PodcastRow
	err := pr.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(row.Breakdown) == 0 {
		return nil, nil
	}
	var bd types.Breakdown
	if err := json.Unmarshal(row.Breakdown, &bd); err != nil {
		return nil, fmt.Errorf("decode breakdown for %s: %w", videoID, err)
	}
	return &bd, nil
}

func (pr *podcastRepo) HasBreakdown(ctx context.Context, videoID string) (bool, error) {
	var count int64
	err := pr.db.WithContext(ctx).
		Model(&types.PodcastRow{}).
		Where("video_id = ? AND breakdown IS NOT NULL", videoID).
		Count(&count).Error
	return count > 0, err
}
