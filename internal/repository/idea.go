package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"ideaboard/internal/models"

	"gorm.io/gorm"
)

// VoteDrift reports an idea whose stored vote_count disagreed with its votes.
type VoteDrift struct {
	IdeaID uint  `json:"idea_id"`
	Stored int64 `json:"stored"`
	Actual int64 `json:"actual"`
}

// IdeaRepository defines the gateway operations on ideas.
type IdeaRepository interface {
	Create(ctx context.Context, idea *models.Idea) error
	GetByID(ctx context.Context, id uint) (*models.Idea, error)
	GetWithAuthor(ctx context.Context, id uint) (*models.IdeaWithAuthor, error)
	List(ctx context.Context, q models.IdeaQuery) ([]models.IdeaWithAuthor, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Idea, error)
	ListOffTopic(ctx context.Context) ([]models.IdeaWithAuthor, error)
	ListAll(ctx context.Context) ([]models.IdeaWithAuthor, error)
	CommentCounts(ctx context.Context) (map[uint]int64, error)
	UpdateContent(ctx context.Context, id uint, title, content, tags string) error
	UpdateOwnContent(ctx context.Context, id, userID uint, title, content, tags string) error
	UpdateStage(ctx context.Context, id uint, stage models.Stage) error
	TogglePin(ctx context.Context, id uint) (bool, error)
	SetOffTopic(ctx context.Context, id uint, offTopic bool) error
	ToggleComments(ctx context.Context, id uint) (bool, error)
	Delete(ctx context.Context, id uint) error
	DeleteAll(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context) (ideas int64, votes int64, err error)
	ReconcileVoteCounts(ctx context.Context) ([]VoteDrift, error)
}

type ideaRepository struct {
	db *gorm.DB
}

// NewIdeaRepository creates a new IdeaRepository
func NewIdeaRepository(db *gorm.DB) IdeaRepository {
	return &ideaRepository{db: db}
}

const ideaWithAuthorColumns = "i.*, u.name AS author_name, u.email AS author_email"

func (r *ideaRepository) withAuthor(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("ideas AS i").
		Select(ideaWithAuthorColumns).
		Joins("JOIN users u ON u.id = i.user_id")
}

func (r *ideaRepository) Create(ctx context.Context, idea *models.Idea) error {
	return r.db.WithContext(ctx).Create(idea).Error
}

func (r *ideaRepository) GetByID(ctx context.Context, id uint) (*models.Idea, error) {
	var idea models.Idea
	if err := r.db.WithContext(ctx).First(&idea, id).Error; err != nil {
		return nil, err
	}
	return &idea, nil
}

func (r *ideaRepository) GetWithAuthor(ctx context.Context, id uint) (*models.IdeaWithAuthor, error) {
	var rows []models.IdeaWithAuthor
	if err := r.withAuthor(ctx).Where("i.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// List returns the public board: off-topic and private ideas are excluded,
// pinned ideas come first, and ties break on id so ordering is deterministic.
func (r *ideaRepository) List(ctx context.Context, q models.IdeaQuery) ([]models.IdeaWithAuthor, error) {
	tx := r.withAuthor(ctx).Where("i.is_public = ? AND i.is_off_topic = ?", true, false)

	if search := strings.TrimSpace(q.Search); search != "" {
		like := likePattern(search)
		tx = tx.Where(
			`(LOWER(i.title) LIKE ? ESCAPE '\' OR LOWER(i.content) LIKE ? ESCAPE '\' `+
				`OR LOWER(i.tags) LIKE ? ESCAPE '\' OR LOWER(u.name) LIKE ? ESCAPE '\')`,
			like, like, like, like,
		)
	}

	tx = tx.Order("i.is_pinned DESC")
	if q.Sort == models.SortRecent {
		tx = tx.Order("i.created_at DESC")
	} else {
		tx = tx.Order("i.vote_count DESC").Order("i.created_at DESC")
	}

	var ideas []models.IdeaWithAuthor
	err := tx.Order("i.id DESC").Scan(&ideas).Error
	return ideas, err
}

func (r *ideaRepository) ListByUser(ctx context.Context, userID uint) ([]models.Idea, error) {
	var ideas []models.Idea
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&ideas).Error
	return ideas, err
}

func (r *ideaRepository) ListOffTopic(ctx context.Context) ([]models.IdeaWithAuthor, error) {
	var ideas []models.IdeaWithAuthor
	err := r.withAuthor(ctx).
		Where("i.is_off_topic = ?", true).
		Order("i.created_at DESC").Order("i.id DESC").
		Scan(&ideas).Error
	return ideas, err
}

// ListAll returns every idea in id order, for export.
func (r *ideaRepository) ListAll(ctx context.Context) ([]models.IdeaWithAuthor, error) {
	var ideas []models.IdeaWithAuthor
	err := r.withAuthor(ctx).Order("i.id ASC").Scan(&ideas).Error
	return ideas, err
}

// CommentCounts returns non-deleted comment counts per idea in one query.
func (r *ideaRepository) CommentCounts(ctx context.Context) (map[uint]int64, error) {
	var rows []struct {
		IdeaID uint
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("idea_id, COUNT(*) AS count").
		Where("is_deleted = ?", false).
		Group("idea_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.IdeaID] = row.Count
	}
	return counts, nil
}

func requireAffected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ideaRepository) UpdateContent(ctx context.Context, id uint, title, content, tags string) error {
	return requireAffected(r.db.WithContext(ctx).Model(&models.Idea{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "content": content, "tags": tags}))
}

// UpdateOwnContent edits an idea only when userID is its author.
func (r *ideaRepository) UpdateOwnContent(ctx context.Context, id, userID uint, title, content, tags string) error {
	return requireAffected(r.db.WithContext(ctx).Model(&models.Idea{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"title": title, "content": content, "tags": tags}))
}

func (r *ideaRepository) UpdateStage(ctx context.Context, id uint, stage models.Stage) error {
	return requireAffected(r.db.WithContext(ctx).Model(&models.Idea{}).
		Where("id = ?", id).
		Update("stage", stage))
}

func (r *ideaRepository) TogglePin(ctx context.Context, id uint) (bool, error) {
	var pinned bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var idea models.Idea
		if err := lockForUpdate(tx).Select("id", "is_pinned").First(&idea, id).Error; err != nil {
			return err
		}
		pinned = !idea.IsPinned
		var pinnedAt *time.Time
		if pinned {
			now := tx.NowFunc().UTC()
			pinnedAt = &now
		}
		return tx.Model(&models.Idea{}).Where("id = ?", id).
			Updates(map[string]interface{}{"is_pinned": pinned, "pinned_at": pinnedAt}).Error
	})
	return pinned, err
}

// SetOffTopic sets the off-topic flag. Marking an idea off-topic also
// dismisses the flags raised against it.
func (r *ideaRepository) SetOffTopic(ctx context.Context, id uint, offTopic bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Idea{}).Where("id = ?", id).Update("is_off_topic", offTopic)
		if err := requireAffected(res); err != nil {
			return err
		}
		if !offTopic {
			return nil
		}
		return deleteFlagsFor(tx, models.TargetIdea, []uint{id})
	})
}

func (r *ideaRepository) ToggleComments(ctx context.Context, id uint) (bool, error) {
	var enabled bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var idea models.Idea
		if err := lockForUpdate(tx).Select("id", "comments_enabled").First(&idea, id).Error; err != nil {
			return err
		}
		enabled = !idea.CommentsEnabled
		return tx.Model(&models.Idea{}).Where("id = ?", id).Update("comments_enabled", enabled).Error
	})
	return enabled, err
}

func (r *ideaRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := deleteIdeasWhere(tx, "id = ?", id)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *ideaRepository) DeleteAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = deleteIdeasWhere(tx, "1 = 1")
		return err
	})
	return n, err
}

func (r *ideaRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = deleteIdeasWhere(tx, "created_at < ?", cutoff)
		return err
	})
	return n, err
}

// deleteIdeasWhere removes matching ideas together with their votes,
// comments and the flags on both. It must run inside a transaction.
func deleteIdeasWhere(tx *gorm.DB, query string, args ...interface{}) (int64, error) {
	var ideaIDs []uint
	if err := tx.Model(&models.Idea{}).Where(query, args...).Pluck("id", &ideaIDs).Error; err != nil {
		return 0, err
	}
	if len(ideaIDs) == 0 {
		return 0, nil
	}

	var commentIDs []uint
	if err := tx.Model(&models.Comment{}).Where("idea_id IN ?", ideaIDs).Pluck("id", &commentIDs).Error; err != nil {
		return 0, err
	}
	if err := deleteFlagsFor(tx, models.TargetComment, commentIDs); err != nil {
		return 0, err
	}
	if err := deleteFlagsFor(tx, models.TargetIdea, ideaIDs); err != nil {
		return 0, err
	}
	if err := tx.Where("idea_id IN ?", ideaIDs).Delete(&models.Comment{}).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("idea_id IN ?", ideaIDs).Delete(&models.Vote{}).Error; err != nil {
		return 0, err
	}
	res := tx.Where("id IN ?", ideaIDs).Delete(&models.Idea{})
	return res.RowsAffected, res.Error
}

// Stats counts public, on-topic ideas and the votes they hold.
func (r *ideaRepository) Stats(ctx context.Context) (int64, int64, error) {
	var row struct {
		TotalIdeas int64
		TotalVotes int64
	}
	err := r.db.WithContext(ctx).Model(&models.Idea{}).
		Select("COUNT(*) AS total_ideas, COALESCE(SUM(vote_count), 0) AS total_votes").
		Where("is_public = ? AND is_off_topic = ?", true, false).
		Scan(&row).Error
	return row.TotalIdeas, row.TotalVotes, err
}

// ReconcileVoteCounts finds ideas whose vote_count differs from the number
// of vote rows and rewrites the counter from the rows.
func (r *ideaRepository) ReconcileVoteCounts(ctx context.Context) ([]VoteDrift, error) {
	var drift []VoteDrift
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Raw(`
SELECT i.id AS idea_id, i.vote_count AS stored, COUNT(v.id) AS actual
FROM ideas i
LEFT JOIN votes v ON v.idea_id = i.id
GROUP BY i.id, i.vote_count
HAVING i.vote_count <> COUNT(v.id)
ORDER BY i.id`).Scan(&drift).Error
		if err != nil {
			return err
		}
		fixed := drift[:0]
		for _, d := range drift {
			actual, err := recountVotes(tx, d.IdeaID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			d.Actual = actual
			fixed = append(fixed, d)
		}
		drift = fixed
		return nil
	})
	return drift, err
}

// recountVotes rewrites vote_count from the vote rows while holding the
// idea's row lock, so toggles that committed after the drift scan are
// counted.
func recountVotes(tx *gorm.DB, ideaID uint) (int64, error) {
	if err := lockIdea(tx, ideaID); err != nil {
		return 0, err
	}
	err := tx.Model(&models.Idea{}).Where("id = ?", ideaID).
		UpdateColumn("vote_count", gorm.Expr("(SELECT COUNT(*) FROM votes WHERE votes.idea_id = ?)", ideaID)).Error
	if err != nil {
		return 0, err
	}
	var idea models.Idea
	if err := tx.Select("vote_count").First(&idea, ideaID).Error; err != nil {
		return 0, err
	}
	return int64(idea.VoteCount), nil
}
