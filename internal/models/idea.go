package models

import (
	"fmt"
	"time"
)

// Stage is the workflow state of an idea.
type Stage string

const (
	StageIdeate     Stage = "Ideate"
	StageReview     Stage = "Review"
	StageInProgress Stage = "In Progress"
	StageCompleted  Stage = "Completed"
)

// Stages lists valid stages in workflow order.
var Stages = []Stage{StageIdeate, StageReview, StageInProgress, StageCompleted}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", NewFieldValidationError("invalid_stage", fmt.Sprintf("Invalid stage: %s", s))
}

// Idea is a user-submitted suggestion.
type Idea struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	Title           string     `gorm:"size:100;not null" json:"title"`
	Content         string     `gorm:"type:text;not null" json:"content"`
	Tags            string     `gorm:"size:200;not null" json:"tags"`
	Stage           Stage      `gorm:"size:20;not null" json:"stage"`
	IsPublic        bool       `gorm:"not null" json:"is_public"`
	IsPinned        bool       `gorm:"not null;index" json:"is_pinned"`
	PinnedAt        *time.Time `json:"pinned_at,omitempty"`
	IsOffTopic      bool       `gorm:"not null;index" json:"is_off_topic"`
	CommentsEnabled bool       `gorm:"not null" json:"comments_enabled"`
	VoteCount       int        `gorm:"not null;default:0" json:"vote_count"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`

	Author *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName pins the table name.
func (Idea) TableName() string { return "ideas" }

// IdeaWithAuthor is an idea joined with its author's public profile.
type IdeaWithAuthor struct {
	Idea
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
}

// SortMode selects the ordering of the public board.
type SortMode string

const (
	SortPopular SortMode = "popular"
	SortRecent  SortMode = "recent"
)

// ParseSortMode defaults to popular for empty or unknown values.
func ParseSortMode(s string) SortMode {
	if SortMode(s) == SortRecent {
		return SortRecent
	}
	return SortPopular
}

// IdeaQuery filters and orders the public board.
type IdeaQuery struct {
	Sort   SortMode
	Search string
}

// IdeaListing is the board payload: ideas plus non-deleted comment counts.
type IdeaListing struct {
	Ideas         []IdeaWithAuthor `json:"ideas"`
	CommentCounts map[uint]int64   `json:"comment_counts"`
}
