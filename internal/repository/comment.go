package repository

import (
	"context"

	"ideaboard/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines the gateway operations on comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByIdea(ctx context.Context, ideaID uint) ([]models.CommentWithAuthor, error)
	ListAll(ctx context.Context) ([]models.CommentExport, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	UpdateOwnContent(ctx context.Context, id, userID uint, content string) error
	SoftDelete(ctx context.Context, id uint) error
	TogglePin(ctx context.Context, id uint) (bool, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a comment after checking, under the idea row lock, that the
// idea exists and still accepts comments.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var idea models.Idea
		if err := lockForUpdate(tx).Select("id", "comments_enabled").First(&idea, comment.IdeaID).Error; err != nil {
			return err
		}
		if !idea.CommentsEnabled {
			return models.ErrCommentsLocked
		}
		return tx.Create(comment).Error
	})
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByIdea returns pinned comments first, then oldest first. Soft-deleted
// rows are included as-is; callers decide how to present them.
func (r *commentRepository) ListByIdea(ctx context.Context, ideaID uint) ([]models.CommentWithAuthor, error) {
	var comments []models.CommentWithAuthor
	err := r.db.WithContext(ctx).
		Table("comments AS c").
		Select("c.*, u.name AS author_name, u.email AS author_email, (c.user_id = i.user_id) AS is_idea_author").
		Joins("JOIN users u ON u.id = c.user_id").
		Joins("JOIN ideas i ON i.id = c.idea_id").
		Where("c.idea_id = ?", ideaID).
		Order("c.is_pinned DESC").Order("c.created_at ASC").Order("c.id ASC").
		Scan(&comments).Error
	return comments, err
}

func (r *commentRepository) ListAll(ctx context.Context) ([]models.CommentExport, error) {
	var comments []models.CommentExport
	err := r.db.WithContext(ctx).
		Table("comments AS c").
		Select("c.*, u.email AS author_email").
		Joins("JOIN users u ON u.id = c.user_id").
		Order("c.id ASC").
		Scan(&comments).Error
	return comments, err
}

func (r *commentRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	return requireAffected(r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		Update("content", content))
}

// UpdateOwnContent edits a live comment only when userID is its author.
func (r *commentRepository) UpdateOwnContent(ctx context.Context, id, userID uint, content string) error {
	return requireAffected(r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", id, userID, false).
		Update("content", content))
}

func (r *commentRepository) SoftDelete(ctx context.Context, id uint) error {
	return requireAffected(r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		Update("is_deleted", true))
}

func (r *commentRepository) TogglePin(ctx context.Context, id uint) (bool, error) {
	var pinned bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := lockForUpdate(tx).Select("id", "is_pinned").First(&comment, id).Error; err != nil {
			return err
		}
		pinned = !comment.IsPinned
		return tx.Model(&models.Comment{}).Where("id = ?", id).Update("is_pinned", pinned).Error
	})
	return pinned, err
}
