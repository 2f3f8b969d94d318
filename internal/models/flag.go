package models

import (
	"fmt"
	"time"
)

// TargetType names what a flag points at.
type TargetType string

const (
	TargetIdea    TargetType = "idea"
	TargetComment TargetType = "comment"
)

// ParseTargetType validates a flag target type.
func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(s) {
	case TargetIdea, TargetComment:
		return TargetType(s), nil
	}
	return "", NewFieldValidationError("invalid_target", fmt.Sprintf("Invalid flag target: %s", s))
}

// Flag is a user's report of an idea or comment.
type Flag struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_flags_user_target" json:"user_id"`
	TargetType TargetType `gorm:"size:16;not null;uniqueIndex:idx_flags_user_target;index:idx_flags_target" json:"target_type"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_flags_user_target;index:idx_flags_target" json:"target_id"`
	CreatedAt  time.Time  `json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName pins the table name.
func (Flag) TableName() string { return "flags" }

// FlaggedItem aggregates flags for one target.
type FlaggedItem struct {
	TargetType     TargetType `json:"target_type"`
	TargetID       uint       `json:"target_id"`
	FlagCount      int64      `json:"flag_count"`
	FirstFlagged   time.Time  `json:"first_flagged"`
	ContentPreview string     `json:"content_preview"`
}

// AdminStats summarizes board activity.
type AdminStats struct {
	TotalIdeas   int64 `json:"total_ideas"`
	TotalVotes   int64 `json:"total_votes"`
	TotalUsers   int64 `json:"total_users"`
	FlaggedItems int64 `json:"flagged_items"`
}
