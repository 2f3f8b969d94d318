package models

import "time"

// RemovedCommentContent replaces the body of soft-deleted comments in listings.
const RemovedCommentContent = "[removed]"

// Comment is a reply on an idea.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IdeaID    uint      `gorm:"not null;index" json:"idea_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsPinned  bool      `gorm:"not null" json:"is_pinned"`
	IsDeleted bool      `gorm:"not null;index" json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`

	Idea *Idea `gorm:"foreignKey:IdeaID;constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName pins the table name.
func (Comment) TableName() string { return "comments" }

// CommentWithAuthor is a comment joined with author details for display.
type CommentWithAuthor struct {
	Comment
	AuthorName   string `json:"author_name"`
	AuthorEmail  string `json:"author_email"`
	IsIdeaAuthor bool   `json:"is_idea_author"`
}

// Tombstone clears the author and body of a soft-deleted comment.
func (c *CommentWithAuthor) Tombstone() {
	if !c.IsDeleted {
		return
	}
	c.UserID = 0
	c.AuthorName = ""
	c.AuthorEmail = ""
	c.IsIdeaAuthor = false
	c.Content = RemovedCommentContent
}

// CommentExport is a comment row for CSV export.
type CommentExport struct {
	Comment
	AuthorEmail string
}
