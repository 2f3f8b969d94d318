package repository

import (
	"context"

	"ideaboard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRepository defines the gateway operations on votes. Every mutation
// pairs the vote row change with the matching vote_count change.
type VoteRepository interface {
	Create(ctx context.Context, ideaID, userID uint) error
	Delete(ctx context.Context, ideaID, userID uint) error
	Toggle(ctx context.Context, ideaID, userID uint) (bool, error)
	Exists(ctx context.Context, ideaID, userID uint) (bool, error)
	IdeaIDsByUser(ctx context.Context, userID uint) ([]uint, error)
	CountForIdea(ctx context.Context, ideaID uint) (int64, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new VoteRepository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// lockIdea takes the idea row lock that serializes vote mutations per idea.
func lockIdea(tx *gorm.DB, ideaID uint) error {
	var idea models.Idea
	return lockForUpdate(tx).Select("id").First(&idea, ideaID).Error
}

func insertVote(tx *gorm.DB, ideaID, userID uint) (bool, error) {
	vote := models.Vote{IdeaID: ideaID, UserID: userID}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&vote)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := tx.Model(&models.Idea{}).Where("id = ?", ideaID).
		UpdateColumn("vote_count", gorm.Expr("vote_count + 1")).Error
	return err == nil, err
}

func removeVote(tx *gorm.DB, ideaID, userID uint) (bool, error) {
	res := tx.Where("idea_id = ? AND user_id = ?", ideaID, userID).Delete(&models.Vote{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := tx.Model(&models.Idea{}).Where("id = ? AND vote_count > 0", ideaID).
		UpdateColumn("vote_count", gorm.Expr("vote_count - 1")).Error
	return err == nil, err
}

// Create inserts a vote and increments the counter. An existing vote
// returns ErrAlreadyVoted and changes nothing.
func (r *voteRepository) Create(ctx context.Context, ideaID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockIdea(tx, ideaID); err != nil {
			return err
		}
		inserted, err := insertVote(tx, ideaID, userID)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrAlreadyVoted
		}
		return nil
	})
}

// Delete removes a vote and decrements the counter. A missing vote
// returns ErrNotVoted.
func (r *voteRepository) Delete(ctx context.Context, ideaID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockIdea(tx, ideaID); err != nil {
			return err
		}
		removed, err := removeVote(tx, ideaID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNotVoted
		}
		return nil
	})
}

// Toggle removes the caller's vote if present, otherwise adds it, and
// returns the resulting state. Concurrent toggles on one idea serialize on
// the idea row lock; a lost insert race leaves the winner's row counted once.
func (r *voteRepository) Toggle(ctx context.Context, ideaID, userID uint) (bool, error) {
	var voted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockIdea(tx, ideaID); err != nil {
			return err
		}
		removed, err := removeVote(tx, ideaID, userID)
		if err != nil {
			return err
		}
		if removed {
			voted = false
			return nil
		}
		if _, err := insertVote(tx, ideaID, userID); err != nil {
			return err
		}
		voted = true
		return nil
	})
	return voted, err
}

func (r *voteRepository) Exists(ctx context.Context, ideaID, userID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Where("idea_id = ? AND user_id = ?", ideaID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *voteRepository) IdeaIDsByUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Where("user_id = ?", userID).
		Order("idea_id ASC").
		Pluck("idea_id", &ids).Error
	return ids, err
}

func (r *voteRepository) CountForIdea(ctx context.Context, ideaID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Vote{}).Where("idea_id = ?", ideaID).Count(&n).Error
	return n, err
}
