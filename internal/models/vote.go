package models

import "time"

// Vote is a user's endorsement ("spark") of an idea.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IdeaID    uint      `gorm:"not null;uniqueIndex:idx_votes_idea_user" json:"idea_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_votes_idea_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Idea *Idea `gorm:"foreignKey:IdeaID;constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName pins the table name.
func (Vote) TableName() string { return "votes" }
