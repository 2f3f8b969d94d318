package repository

import (
	"context"
	"testing"
	"time"

	"ideaboard/internal/models"
	"ideaboard/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setVoteCount(t *testing.T, db *gorm.DB, id uint, n int) {
	t.Helper()
	require.NoError(t, db.Model(&models.Idea{}).Where("id = ?", id).UpdateColumn("vote_count", n).Error)
}

func ideaIDs(ideas []models.IdeaWithAuthor) []uint {
	ids := make([]uint, 0, len(ideas))
	for _, i := range ideas {
		ids = append(ids, i.ID)
	}
	return ids
}

func TestIdeaRepository_ListOrdering(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewIdeaRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, models.RoleUser)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	old := testutil.CreateIdea(t, db, author, testutil.WithCreatedAt(base))
	mid := testutil.CreateIdea(t, db, author, testutil.WithCreatedAt(base.Add(time.Hour)))
	fresh := testutil.CreateIdea(t, db, author, testutil.WithCreatedAt(base.Add(2*time.Hour)))
	pinned := testutil.CreateIdea(t, db, author, testutil.WithCreatedAt(base.Add(-time.Hour)), testutil.Pinned())
	hidden := testutil.CreateIdea(t, db, author, testutil.WithCreatedAt(base.Add(3*time.Hour)), testutil.OffTopic())

	setVoteCount(t, db, old.ID, 5)
	setVoteCount(t, db, mid.ID, 5)
	setVoteCount(t, db, fresh.ID, 1)
	setVoteCount(t, db, hidden.ID, 50)

	popular, err := repo.List(ctx, models.IdeaQuery{Sort: models.SortPopular})
	require.NoError(t, err)
	assert.Equal(t, []uint{pinned.ID, mid.ID, old.ID, fresh.ID}, ideaIDs(popular))

	recent, err := repo.List(ctx, models.IdeaQuery{Sort: models.SortRecent})
	require.NoError(t, err)
	assert.Equal(t, []uint{pinned.ID, fresh.ID, mid.ID, old.ID}, ideaIDs(recent))

	for _, idea := range popular {
		assert.False(t, idea.IsOffTopic)
		assert.Equal(t, author.Name, idea.AuthorName)
	}

	offTopic, err := repo.ListOffTopic(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{hidden.ID}, ideaIDs(offTopic))
}

func TestIdeaRepository_ListTieBreaksOnID(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewIdeaRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, models.RoleUser)
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := testutil.CreateIdea(t, db, author, testutil.WithCreatedAt(ts))
	b := testutil.CreateIdea(t, db, author, testutil.WithCreatedAt(ts))

	ideas, err := repo.List(ctx, models.IdeaQuery{})
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, a.ID}, ideaIDs(ideas))
}

func TestIdeaRepository_Search(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewIdeaRepository(db)
	ctx := context.Background()

	alice := &models.User{Email: "alice@uab.edu", Name: "Alice Zephyr", PasswordHash: "h"}
	require.NoError(t, db.Create(alice).Error)
	bob := testutil.CreateUser(t, db, models.RoleUser)

	vpn := testutil.CreateIdea(t, db, bob, testutil.WithTitle("Faster VPN onboarding"))
	byAlice := testutil.CreateIdea(t, db, alice, testutil.WithTitle("Printer queue"))
	testutil.CreateIdea(t, db, bob, testutil.WithTitle("100% uptime dashboard"))

	tests := []struct {
		name   string
		search string
		want   []uint
	}{
		{"title case-insensitive", "vpn", []uint{vpn.ID}},
		{"author name", "zephyr", []uint{byAlice.ID}},
		{"like metacharacters are literal", "_%", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ideas, err := repo.List(ctx, models.IdeaQuery{Search: tc.search})
			require.NoError(t, err)
			if tc.want == nil {
				assert.Empty(t, ideas)
				return
			}
			assert.Equal(t, tc.want, ideaIDs(ideas))
		})
	}

	all, err := repo.List(ctx, models.IdeaQuery{Search: "   "})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestIdeaRepository_ModerationToggles(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewIdeaRepository(db)
	flags := NewFlagRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, models.RoleUser)
	flagger := testutil.CreateUser(t, db, models.RoleUser)
	idea := testutil.CreateIdea(t, db, author)

	pinned, err := repo.TogglePin(ctx, idea.ID)
	require.NoError(t, err)
	assert.True(t, pinned)
	stored, err := repo.GetByID(ctx, idea.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.PinnedAt)

	pinned, err = repo.TogglePin(ctx, idea.ID)
	require.NoError(t, err)
	assert.False(t, pinned)

	enabled, err := repo.ToggleComments(ctx, idea.ID)
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = flags.Create(ctx, &models.Flag{UserID: flagger.ID, TargetType: models.TargetIdea, TargetID: idea.ID})
	require.NoError(t, err)
	require.NoError(t, repo.SetOffTopic(ctx, idea.ID, true))
	n, err := flags.CountFlaggedTargets(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.UpdateStage(ctx, idea.ID, models.StageReview))
	stored, err = repo.GetByID(ctx, idea.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageReview, stored.Stage)
	assert.True(t, stored.IsOffTopic)

	_, err = repo.TogglePin(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.SetOffTopic(ctx, 9999, true), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStage(ctx, 9999, models.StageReview), ErrNotFound)
}

func TestIdeaRepository_UpdateOwnContent(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewIdeaRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, models.RoleUser)
	stranger := testutil.CreateUser(t, db, models.RoleUser)
	idea := testutil.CreateIdea(t, db, author)

	assert.ErrorIs(t, repo.UpdateOwnContent(ctx, idea.ID, stranger.ID, "t", "c", ""), ErrNotFound)
	require.NoError(t, repo.UpdateOwnContent(ctx, idea.ID, author.ID, "new title", "new content", "x"))

	stored, err := repo.GetByID(ctx, idea.ID)
	require.NoError(t, err)
	assert.Equal(t, "new title", stored.Title)
	assert.Equal(t, "x", stored.Tags)
}

func TestIdeaRepository_DeleteCascades(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewIdeaRepository(db)
	votes := NewVoteRepository(db)
	flags := NewFlagRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, models.RoleUser)
	other := testutil.CreateUser(t, db, models.RoleUser)
	idea := testutil.CreateIdea(t, db, author)
	keep := testutil.CreateIdea(t, db, author)
	comment := testutil.CreateComment(t, db, idea, other, "hello")

	require.NoError(t, votes.Create(ctx, idea.ID, other.ID))
	require.NoError(t, votes.Create(ctx, keep.ID, other.ID))
	_, err := flags.Create(ctx, &models.Flag{UserID: other.ID, TargetType: models.TargetIdea, TargetID: idea.ID})
	require.NoError(t, err)
	_, err = flags.Create(ctx, &models.Flag{UserID: author.ID, TargetType: models.TargetComment, TargetID: comment.ID})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, idea.ID))
	assert.ErrorIs(t, repo.Delete(ctx, idea.ID), ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&models.Vote{}).Where("idea_id = ?", idea.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Comment{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Flag{}).Count(&n).Error)
	assert.Zero(t, n)

	stored, actual := testutil.VoteCount(t, db, keep.ID)
	assert.Equal(t, int64(1), stored)
	assert.Equal(t, actual, stored)
}

func TestIdeaRepository_DeleteOlderThanAndAll(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewIdeaRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, models.RoleUser)
	now := time.Now().UTC()
	testutil.CreateIdea(t, db, author, testutil.WithCreatedAt(now.AddDate(0, 0, -40)))
	recent := testutil.CreateIdea(t, db, author, testutil.WithCreatedAt(now.AddDate(0, 0, -2)))

	n, err := repo.DeleteOlderThan(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{recent.ID}, ideaIDs(remaining))

	n, err = repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIdeaRepository_StatsAndCommentCounts(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewIdeaRepository(db)
	votes := NewVoteRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, models.RoleUser)
	voter := testutil.CreateUser(t, db, models.RoleUser)
	visible := testutil.CreateIdea(t, db, author)
	hidden := testutil.CreateIdea(t, db, author, testutil.OffTopic())
	require.NoError(t, votes.Create(ctx, visible.ID, voter.ID))
	require.NoError(t, votes.Create(ctx, hidden.ID, voter.ID))

	testutil.CreateComment(t, db, visible, voter, "one")
	deleted := testutil.CreateComment(t, db, visible, voter, "two")
	require.NoError(t, db.Model(deleted).Update("is_deleted", true).Error)

	ideas, total, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ideas)
	assert.Equal(t, int64(1), total)

	counts, err := repo.CommentCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{visible.ID: 1}, counts)
}

func TestIdeaRepository_ReconcileVoteCounts(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewIdeaRepository(db)
	votes := NewVoteRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, models.RoleUser)
	idea := testutil.CreateIdea(t, db, author)
	require.NoError(t, votes.Create(ctx, idea.ID, author.ID))

	drift, err := repo.ReconcileVoteCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)

	setVoteCount(t, db, idea.ID, 7)
	drift, err = repo.ReconcileVoteCounts(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, VoteDrift{IdeaID: idea.ID, Stored: 7, Actual: 1}, drift[0])

	stored, actual := testutil.VoteCount(t, db, idea.ID)
	assert.Equal(t, actual, stored)
}

func TestRecountVotesSeesVotesAddedAfterScan(t *testing.T) {
	db := testutil.OpenDB(t)
	author := testutil.CreateUser(t, db, models.RoleUser)
	voter := testutil.CreateUser(t, db, models.RoleUser)
	idea := testutil.CreateIdea(t, db, author)
	require.NoError(t, NewVoteRepository(db).Create(context.Background(), idea.ID, author.ID))
	setVoteCount(t, db, idea.ID, 7)

	// A vote row that lands between the drift scan and the rewrite.
	require.NoError(t, db.Create(&models.Vote{IdeaID: idea.ID, UserID: voter.ID}).Error)

	var got int64
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		got, err = recountVotes(tx, idea.ID)
		return err
	}))
	assert.Equal(t, int64(2), got)

	stored, actual := testutil.VoteCount(t, db, idea.ID)
	assert.Equal(t, actual, stored)
	assert.EqualValues(t, 2, stored)
}

func TestReconcileVoteCounts_LocksBeforeRecount(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT i\.id AS idea_id`).
		WillReturnRows(sqlmock.NewRows([]string{"idea_id", "stored", "actual"}).AddRow(3, 7, 1))
	mock.ExpectQuery(`SELECT "id" FROM "ideas" WHERE "ideas"\."id" = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec(`UPDATE "ideas" SET "vote_count"=\(SELECT COUNT\(\*\) FROM votes WHERE votes\.idea_id = \$1\) WHERE id = \$2`).
		WithArgs(3, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT "vote_count" FROM "ideas" WHERE "ideas"\."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"vote_count"}).AddRow(2))
	mock.ExpectCommit()

	drift, err := NewIdeaRepository(db).ReconcileVoteCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []VoteDrift{{IdeaID: 3, Stored: 7, Actual: 2}}, drift)
	assert.NoError(t, mock.ExpectationsWereMet())
}
