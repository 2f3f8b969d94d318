// Package testutil provides shared fixtures for tests that need a database.
package testutil

import (
	"testing"
	"time"

	"ideaboard/internal/database"
	"ideaboard/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory sqlite database private to the test.
// The pool holds a single connection so every caller sees the same memory
// database and transactions serialize.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts a user with the given role and a fake identity.
func CreateUser(t testing.TB, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		Email:        gofakeit.Email(),
		Name:         gofakeit.Name(),
		PasswordHash: "not-a-real-hash",
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// IdeaOption customizes a fixture idea before it is inserted.
type IdeaOption func(*models.Idea)

// WithTitle sets the idea title.
func WithTitle(title string) IdeaOption {
	return func(i *models.Idea) { i.Title = title }
}

// WithCreatedAt sets the idea creation time.
func WithCreatedAt(ts time.Time) IdeaOption {
	return func(i *models.Idea) { i.CreatedAt = ts.UTC() }
}

// OffTopic marks the idea off-topic.
func OffTopic() IdeaOption {
	return func(i *models.Idea) { i.IsOffTopic = true }
}

// Pinned marks the idea pinned.
func Pinned() IdeaOption {
	return func(i *models.Idea) {
		now := time.Now().UTC()
		i.IsPinned = true
		i.PinnedAt = &now
	}
}

// CommentsLocked disables comments on the idea.
func CommentsLocked() IdeaOption {
	return func(i *models.Idea) { i.CommentsEnabled = false }
}

// CreateIdea inserts a public idea authored by author.
func CreateIdea(t testing.TB, db *gorm.DB, author *models.User, opts ...IdeaOption) *models.Idea {
	t.Helper()
	idea := &models.Idea{
		UserID:          author.ID,
		Title:           gofakeit.Sentence(4),
		Content:         gofakeit.Sentence(12),
		Tags:            "infra, tooling",
		Stage:           models.StageIdeate,
		IsPublic:        true,
		CommentsEnabled: true,
	}
	for _, opt := range opts {
		opt(idea)
	}
	require.NoError(t, db.Create(idea).Error)
	return idea
}

// CreateComment inserts a comment on idea by author.
func CreateComment(t testing.TB, db *gorm.DB, idea *models.Idea, author *models.User, content string) *models.Comment {
	t.Helper()
	comment := &models.Comment{IdeaID: idea.ID, UserID: author.ID, Content: content}
	require.NoError(t, db.Create(comment).Error)
	return comment
}

// VoteCount reads the stored counter and the actual number of vote rows.
func VoteCount(t testing.TB, db *gorm.DB, ideaID uint) (stored, actual int64) {
	t.Helper()
	var idea models.Idea
	require.NoError(t, db.Select("vote_count").First(&idea, ideaID).Error)
	require.NoError(t, db.Model(&models.Vote{}).Where("idea_id = ?", ideaID).Count(&actual).Error)
	return int64(idea.VoteCount), actual
}
