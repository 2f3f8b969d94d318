package repository

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"ideaboard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreviewLen bounds the content preview shown for flagged items.
const PreviewLen = 200

// FlagRepository defines the gateway operations on flags.
type FlagRepository interface {
	Create(ctx context.Context, flag *models.Flag) (bool, error)
	Exists(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (bool, error)
	ListFlagged(ctx context.Context) ([]models.FlaggedItem, error)
	Clear(ctx context.Context, targetType models.TargetType, targetID uint) (int64, error)
	CountFlaggedTargets(ctx context.Context) (int64, error)
}

type flagRepository struct {
	db *gorm.DB
}

// NewFlagRepository creates a new FlagRepository
func NewFlagRepository(db *gorm.DB) FlagRepository {
	return &flagRepository{db: db}
}

// Create inserts a flag; a repeat flag from the same user is ignored and
// reported as not created.
func (r *flagRepository) Create(ctx context.Context, flag *models.Flag) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(flag)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *flagRepository) Exists(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Flag{}).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		Count(&n).Error
	return n > 0, err
}

// ListFlagged aggregates flags per target, most flagged first, then oldest
// first, with a short preview of the flagged content.
func (r *flagRepository) ListFlagged(ctx context.Context) ([]models.FlaggedItem, error) {
	rows, err := r.db.WithContext(ctx).Model(&models.Flag{}).
		Select("target_type, target_id, COUNT(*) AS flag_count, MIN(created_at) AS first_flagged").
		Group("target_type, target_id").
		Order("flag_count DESC").Order("first_flagged ASC").Order("target_type ASC").Order("target_id ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.FlaggedItem
	var ideaIDs, commentIDs []uint
	for rows.Next() {
		var item models.FlaggedItem
		var first dbTime
		if err := rows.Scan(&item.TargetType, &item.TargetID, &item.FlagCount, &first); err != nil {
			return nil, fmt.Errorf("scan flagged item: %w", err)
		}
		item.FirstFlagged = first.Time
		items = append(items, item)
		switch item.TargetType {
		case models.TargetIdea:
			ideaIDs = append(ideaIDs, item.TargetID)
		case models.TargetComment:
			commentIDs = append(commentIDs, item.TargetID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	previews, err := r.previews(ctx, ideaIDs, commentIDs)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].ContentPreview = previews[previewKey{items[i].TargetType, items[i].TargetID}]
	}

	// sqlite compares text timestamps; re-sort on parsed values so the order
	// is the same on every backend.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].FlagCount != items[j].FlagCount {
			return items[i].FlagCount > items[j].FlagCount
		}
		return items[i].FirstFlagged.Before(items[j].FirstFlagged)
	})
	return items, nil
}

type previewKey struct {
	targetType models.TargetType
	targetID   uint
}

func (r *flagRepository) previews(ctx context.Context, ideaIDs, commentIDs []uint) (map[previewKey]string, error) {
	out := make(map[previewKey]string, len(ideaIDs)+len(commentIDs))
	if len(ideaIDs) > 0 {
		var ideas []models.Idea
		if err := r.db.WithContext(ctx).Select("id", "title", "content").Where("id IN ?", ideaIDs).Find(&ideas).Error; err != nil {
			return nil, err
		}
		for _, idea := range ideas {
			out[previewKey{models.TargetIdea, idea.ID}] = truncate(idea.Title+": "+idea.Content, PreviewLen)
		}
	}
	if len(commentIDs) > 0 {
		var comments []models.Comment
		if err := r.db.WithContext(ctx).Select("id", "content").Where("id IN ?", commentIDs).Find(&comments).Error; err != nil {
			return nil, err
		}
		for _, c := range comments {
			out[previewKey{models.TargetComment, c.ID}] = truncate(c.Content, PreviewLen)
		}
	}
	return out, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func (r *flagRepository) Clear(ctx context.Context, targetType models.TargetType, targetID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Delete(&models.Flag{})
	return res.RowsAffected, res.Error
}

// CountFlaggedTargets counts distinct flagged targets.
func (r *flagRepository) CountFlaggedTargets(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM (SELECT target_type, target_id FROM flags GROUP BY target_type, target_id) AS flagged").
		Scan(&n).Error
	return n, err
}

// deleteFlagsFor removes all flags on the given targets. It must run inside
// a transaction.
func deleteFlagsFor(tx *gorm.DB, targetType models.TargetType, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Where("target_type = ? AND target_id IN ?", targetType, ids).Delete(&models.Flag{}).Error
}
