package service

import (
	"context"
	"testing"

	"ideaboard/internal/models"
	"ideaboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagService_Aggregation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, models.RoleUser)
	u1 := actorFor(testutil.CreateUser(t, f.db, models.RoleUser))
	u2 := actorFor(testutil.CreateUser(t, f.db, models.RoleUser))
	mod := actorFor(testutil.CreateUser(t, f.db, models.RoleModerator))
	idea := testutil.CreateIdea(t, f.db, author, testutil.WithTitle("Coffee"))

	created, err := f.flagSvc.Flag(ctx, u1, "idea", idea.ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = f.flagSvc.Flag(ctx, u2, "idea", idea.ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = f.flagSvc.Flag(ctx, u2, "idea", idea.ID)
	require.NoError(t, err)
	assert.False(t, created)

	flagged, err := f.flagSvc.HasFlagged(ctx, u2, "idea", idea.ID)
	require.NoError(t, err)
	assert.True(t, flagged)

	_, err = f.flagSvc.ListFlagged(ctx, u1)
	assert.ErrorIs(t, err, models.ErrForbidden)

	items, err := f.flagSvc.ListFlagged(ctx, mod)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.TargetIdea, items[0].TargetType)
	assert.Equal(t, idea.ID, items[0].TargetID)
	assert.Equal(t, int64(2), items[0].FlagCount)
	assert.Contains(t, items[0].ContentPreview, "Coffee")

	n, err := f.flagSvc.ClearFlags(ctx, mod, "idea", idea.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	items, err = f.flagSvc.ListFlagged(ctx, mod)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFlagService_Targets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, models.RoleUser)
	user := actorFor(testutil.CreateUser(t, f.db, models.RoleUser))
	idea := testutil.CreateIdea(t, f.db, author)
	comment := testutil.CreateComment(t, f.db, idea, author, "rude words")
	deleted := testutil.CreateComment(t, f.db, idea, author, "gone")
	require.NoError(t, f.comments.SoftDelete(ctx, deleted.ID))

	_, err := f.flagSvc.Flag(ctx, nil, "idea", idea.ID)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = f.flagSvc.Flag(ctx, user, "profile", idea.ID)
	assert.ErrorIs(t, err, &models.AppError{Code: models.CodeValidation, Field: "invalid_target"})

	_, err = f.flagSvc.Flag(ctx, user, "idea", 9999)
	assertCode(t, err, models.CodeNotFound)
	_, err = f.flagSvc.Flag(ctx, user, "comment", deleted.ID)
	assertCode(t, err, models.CodeNotFound)

	created, err := f.flagSvc.Flag(ctx, user, "comment", comment.ID)
	require.NoError(t, err)
	assert.True(t, created)

	has, err := f.flagSvc.HasFlagged(ctx, nil, "comment", comment.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestFlagService_HiddenTargetsAreNotFlaggable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, models.RoleUser)
	user := actorFor(testutil.CreateUser(t, f.db, models.RoleUser))
	mod := actorFor(testutil.CreateUser(t, f.db, models.RoleModerator))
	idea := testutil.CreateIdea(t, f.db, author)
	comment := testutil.CreateComment(t, f.db, idea, author, "on a hidden idea")

	_, err := f.flagSvc.Flag(ctx, user, "idea", idea.ID)
	require.NoError(t, err)
	_, err = f.ideaSvc.SetOffTopic(ctx, mod, idea.ID, true)
	require.NoError(t, err)

	_, err = f.flagSvc.Flag(ctx, user, "idea", idea.ID)
	assertCode(t, err, models.CodeNotFound)
	_, err = f.flagSvc.Flag(ctx, user, "comment", comment.ID)
	assertCode(t, err, models.CodeNotFound)

	items, err := f.flagSvc.ListFlagged(ctx, mod)
	require.NoError(t, err)
	assert.Empty(t, items)

	created, err := f.flagSvc.Flag(ctx, mod, "idea", idea.ID)
	require.NoError(t, err)
	assert.True(t, created)
}
