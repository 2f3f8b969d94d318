package repository

import (
	"context"
	"testing"
	"time"

	"ideaboard/internal/models"
	"ideaboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_CreateRespectsLock(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, models.RoleUser)
	open := testutil.CreateIdea(t, db, author)
	locked := testutil.CreateIdea(t, db, author, testutil.CommentsLocked())

	comment := &models.Comment{IdeaID: open.ID, UserID: author.ID, Content: "looks good"}
	require.NoError(t, repo.Create(ctx, comment))
	assert.NotZero(t, comment.ID)

	err := repo.Create(ctx, &models.Comment{IdeaID: locked.ID, UserID: author.ID, Content: "blocked"})
	assert.ErrorIs(t, err, models.ErrCommentsLocked)

	err = repo.Create(ctx, &models.Comment{IdeaID: 9999, UserID: author.ID, Content: "nowhere"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommentRepository_ListByIdeaOrdering(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, models.RoleUser)
	other := testutil.CreateUser(t, db, models.RoleUser)
	idea := testutil.CreateIdea(t, db, author)

	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	first := &models.Comment{IdeaID: idea.ID, UserID: other.ID, Content: "first", CreatedAt: base}
	second := &models.Comment{IdeaID: idea.ID, UserID: author.ID, Content: "second", CreatedAt: base.Add(time.Minute)}
	third := &models.Comment{IdeaID: idea.ID, UserID: other.ID, Content: "third", CreatedAt: base.Add(2 * time.Minute)}
	for _, c := range []*models.Comment{first, second, third} {
		require.NoError(t, db.Create(c).Error)
	}

	pinned, err := repo.TogglePin(ctx, third.ID)
	require.NoError(t, err)
	assert.True(t, pinned)
	require.NoError(t, repo.SoftDelete(ctx, first.ID))

	comments, err := repo.ListByIdea(ctx, idea.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)

	assert.Equal(t, third.ID, comments[0].ID)
	assert.Equal(t, first.ID, comments[1].ID)
	assert.Equal(t, second.ID, comments[2].ID)

	assert.True(t, comments[1].IsDeleted)
	assert.True(t, comments[2].IsIdeaAuthor)
	assert.False(t, comments[0].IsIdeaAuthor)
	assert.Equal(t, author.Name, comments[2].AuthorName)
}

func TestCommentRepository_Updates(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, models.RoleUser)
	stranger := testutil.CreateUser(t, db, models.RoleUser)
	idea := testutil.CreateIdea(t, db, author)
	comment := testutil.CreateComment(t, db, idea, author, "draft")

	assert.ErrorIs(t, repo.UpdateOwnContent(ctx, comment.ID, stranger.ID, "hijack"), ErrNotFound)
	require.NoError(t, repo.UpdateOwnContent(ctx, comment.ID, author.ID, "final"))
	require.NoError(t, repo.UpdateContent(ctx, comment.ID, "moderated"))

	stored, err := repo.GetByID(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "moderated", stored.Content)

	require.NoError(t, repo.SoftDelete(ctx, comment.ID))
	assert.ErrorIs(t, repo.UpdateOwnContent(ctx, comment.ID, author.ID, "revive"), ErrNotFound)
	assert.ErrorIs(t, repo.SoftDelete(ctx, 9999), ErrNotFound)

	exported, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, author.Email, exported[0].AuthorEmail)
}
