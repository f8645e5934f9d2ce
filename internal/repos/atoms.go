package repos

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// AtomRepo persists insight atoms. Re-processing a video replaces its
// previous atoms in one transaction.
type AtomRepo interface {
	ReplaceForVideo(ctx context.Context, videoID string, atoms []*types.InsightAtom) error
	GetAtom(ctx context.Context, id string) (*types.InsightAtom, error)
	ListForVideo(ctx context.Context, videoID string) ([]*types.InsightAtom, error)
}

type atomRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAtomRepo(db *gorm.DB, baseLog *logger.Logger) AtomRepo {
	return &atomRepo{db: db, log: baseLog.With("repo", "AtomRepo")}
}

func atomRowFrom(a *types.InsightAtom) (*types.InsightAtomRow, error) {
	var embedding []byte
	if len(a.Embedding) > 0 {
		raw, err := json.Marshal(a.Embedding)
		if err != nil {
			return nil, err
		}
		embedding = raw
	}
	return &types.InsightAtomRow{
		ID:           a.ID,
		VideoID:      a.VideoID,
		SegmentIndex: a.SegmentIndex,
		Topic:        a.Topic,
		Entity:       a.Entity,
		Claim:        a.Claim,
		Stance:       string(a.Stance),
		Certainty:    string(a.Certainty),
		Quote:        a.Quote,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Embedding:    embedding,
	}, nil
}

func atomFromRow(row *types.InsightAtomRow) *types.InsightAtom {
	atom := &types.InsightAtom{
		ID:           row.ID,
		VideoID:      row.VideoID,
		SegmentIndex: row.SegmentIndex,
		Topic:        row.Topic,
		Entity:       row.Entity,
		Claim:        row.Claim,
		Stance:       types.Stance(row.Stance),
		Certainty:    types.Certainty(row.Certainty),
		Quote:        row.Quote,
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
	}
	if len(row.Embedding) > 0 {
		_ = json.Unmarshal(row.Embedding, &atom.Embedding)
	}
	return atom
}

func (ar *atomRepo) ReplaceForVideo(ctx context.Context, videoID string, atoms []*types.InsightAtom) error {
	rows := make([]*types.InsightAtomRow, 0, len(atoms))
	for _, a := range atoms {
		row, err := atomRowFrom(a)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return ar.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", videoID).Delete(&types.InsightAtomRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (ar *atomRepo) GetAtom(ctx context.Context, id string) (*types.InsightAtom, error) {
	var row types.InsightAtomRow
	err := ar.db.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return atomFromRow(&row), nil
}

func (ar *atomRepo) ListForVideo(ctx context.Context, videoID string) ([]*types.InsightAtom, error) {
	var rows []*types.InsightAtomRow
	if err := ar.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("segment_index ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*types.InsightAtom, 0, len(rows))
	for _, row := range rows {
		out = append(out, atomFromRow(row))
	}
	return out, nil
}

// LinkRepo persists typed edges between atoms.
type LinkRepo interface {
	SaveLinks(ctx context.Context, links []*types.AtomLink) error
	ListForAtom(ctx context.Context, atomID string) ([]*types.AtomLink, error)
}

type linkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLinkRepo(db *gorm.DB, baseLog *logger.Logger) LinkRepo {
	return &linkRepo{db: db, log: baseLog.With("repo", "LinkRepo")}
}

func (lr *linkRepo) SaveLinks(ctx context.Context, links []*types.AtomLink) error {
	if len(links) == 0 {
		return nil
	}
	rows := make([]*types.AtomLinkRow, 0, len(links))
	for _, l := range links {
		rows = append(rows, &types.AtomLinkRow{
			FromAtomID: l.FromAtomID,
			ToAtomID:   l.ToAtomID,
			Type:       l.Type,
			Confidence: l.Confidence,
		})
	}
	return lr.db.WithContext(ctx).Create(&rows).Error
}

func (lr *linkRepo) ListForAtom(ctx context.Context, atomID string) ([]*types.AtomLink, error) {
	var rows []*types.AtomLinkRow
	if err := lr.db.WithContext(ctx).
		Where("from_atom_id = ? OR to_atom_id = ?", atomID, atomID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*types.AtomLink, 0, len(rows))
	for _, row := range rows {
		out = append(out, &types.AtomLink{
			FromAtomID: row.FromAtomID,
			ToAtomID:   row.ToAtomID,
			Type:       row.Type,
			Confidence: row.Confidence,
		})
	}
	return out, nil
}
