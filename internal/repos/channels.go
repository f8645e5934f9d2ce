package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/sources"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// ChannelRepo is the registry of tracked YouTube channels. It satisfies
// sources.ChannelLister for the podcast adapter.
type ChannelRepo interface {
	ListChannels(ctx context.Context) ([]sources.ChannelInfo, error)
	Upsert(ctx context.Context, channels []*types.Channel) error
	TouchChecked(ctx context.Context, channelID string) error
}

type channelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChannelRepo(db *gorm.DB, baseLog *logger.Logger) ChannelRepo {
	return &channelRepo{db: db, log: baseLog.With("repo", "ChannelRepo")}
}

func (cr *channelRepo) ListChannels(ctx context.Context) ([]sources.ChannelInfo, error) {
	var rows []*types.Channel
	if err := cr.db.WithContext(ctx).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]sources.ChannelInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, sources.ChannelInfo{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (cr *channelRepo) Upsert(ctx context.Context, channels []*types.Channel) error {
	if len(channels) == 0 {
		return nil
	}
	return cr.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "feed_url", "updated_at"}),
		}).
		Create(&channels).Error
}

func (cr *channelRepo) TouchChecked(ctx context.Context, channelID string) error {
	return cr.db.WithContext(ctx).
		Model(&types.Channel{}).
		Where("id = ?", channelID).
		Update("last_checked", time.Now().UTC()).Error
}
