package server

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"ideaboard/internal/models"
	"ideaboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type boardResponse struct {
	Ideas         []models.IdeaWithAuthor `json:"ideas"`
	CommentCounts map[string]int64        `json:"comment_counts"`
}

func TestCreateAndListIdeas(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.RoleUser)

	resp := env.do(http.MethodPost, "/api/ideas", map[string]string{
		"title":   "  Faster VPN onboarding  ",
		"content": "Pre-provision certificates for new staff.",
		"tags":    " network ,  vpn ",
	}, user)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	idea := decodeJSON[models.Idea](t, resp)
	assert.Equal(t, "Faster VPN onboarding", idea.Title)
	assert.Equal(t, models.StageIdeate, idea.Stage)
	assert.Equal(t, user.ID, idea.UserID)

	testutil.CreateComment(t, env.db, &idea, user, "first")

	resp = env.do(http.MethodGet, "/api/ideas?sort=recent", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := decodeJSON[boardResponse](t, resp)
	require.Len(t, board.Ideas, 1)
	assert.Equal(t, user.Name, board.Ideas[0].AuthorName)
	assert.Equal(t, int64(1), board.CommentCounts[strconv.FormatUint(uint64(idea.ID), 10)])
}

func TestCreateIdeaValidation(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.RoleUser)

	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"empty title", map[string]string{"title": "   ", "content": "body"}, "empty_title"},
		{"empty content", map[string]string{"title": "Title", "content": ""}, "empty_content"},
		{"profanity", map[string]string{"title": "This fvck printer", "content": "body"}, "profanity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(http.MethodPost, "/api/ideas", tt.body, user)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decodeJSON[models.ErrorResponse](t, resp)
			assert.Equal(t, models.CodeValidation, body.Code)
			assert.Equal(t, tt.field, body.Field)
		})
	}
}

func TestGetIdeaVisibility(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.CreateUser(t, env.db, models.RoleUser)
	other := testutil.CreateUser(t, env.db, models.RoleUser)
	mod := testutil.CreateUser(t, env.db, models.RoleModerator)
	hidden := testutil.CreateIdea(t, env.db, author, testutil.OffTopic())
	path := fmt.Sprintf("/api/ideas/%d", hidden.ID)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path, nil, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path, nil, other).StatusCode)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, nil, author).StatusCode)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, nil, mod).StatusCode)
}

func TestUpdateOwnIdea(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.CreateUser(t, env.db, models.RoleUser)
	other := testutil.CreateUser(t, env.db, models.RoleUser)
	idea := testutil.CreateIdea(t, env.db, author)
	path := fmt.Sprintf("/api/ideas/%d", idea.ID)
	body := map[string]string{"title": "Edited", "content": "Edited body", "tags": "x"}

	resp := env.do(http.MethodPut, path, body, other)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(http.MethodPut, path, body, author)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeJSON[models.Idea](t, resp)
	assert.Equal(t, "Edited", updated.Title)
}

func TestVoteToggleAndMyVotes(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.CreateUser(t, env.db, models.RoleUser)
	voter := testutil.CreateUser(t, env.db, models.RoleUser)
	idea := testutil.CreateIdea(t, env.db, author)
	path := fmt.Sprintf("/api/ideas/%d/vote", idea.ID)

	resp := env.do(http.MethodPost, path, nil, voter)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeJSON[map[string]interface{}](t, resp)["voted"])

	resp = env.do(http.MethodGet, "/api/me/votes", nil, voter)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []uint{idea.ID}, decodeJSON[[]uint](t, resp))

	resp = env.do(http.MethodGet, fmt.Sprintf("/api/ideas/%d", idea.ID), nil, voter)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decodeJSON[map[string]interface{}](t, resp)
	assert.Equal(t, true, detail["has_voted"])
	assert.EqualValues(t, 1, detail["vote_count"])

	resp = env.do(http.MethodPost, path, nil, voter)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decodeJSON[map[string]interface{}](t, resp)["voted"])

	stored, actual := testutil.VoteCount(t, env.db, idea.ID)
	assert.Equal(t, int64(0), stored)
	assert.Equal(t, int64(0), actual)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, path, nil, nil).StatusCode)
}

func TestFlagIdeaIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.CreateUser(t, env.db, models.RoleUser)
	reporter := testutil.CreateUser(t, env.db, models.RoleUser)
	idea := testutil.CreateIdea(t, env.db, author)
	path := fmt.Sprintf("/api/ideas/%d/flag", idea.ID)

	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, path, nil, reporter).StatusCode)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, path, nil, reporter).StatusCode)

	var count int64
	require.NoError(t, env.db.Model(&models.Flag{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.Equal(t, http.StatusNotFound,
		env.do(http.MethodPost, "/api/comments/4242/flag", nil, reporter).StatusCode)
}

func TestCommentsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.CreateUser(t, env.db, models.RoleUser)
	commenter := testutil.CreateUser(t, env.db, models.RoleUser)
	idea := testutil.CreateIdea(t, env.db, author)
	locked := testutil.CreateIdea(t, env.db, author, testutil.CommentsLocked())

	resp := env.do(http.MethodPost, fmt.Sprintf("/api/ideas/%d/comments", idea.ID),
		map[string]string{"content": "  +1, we need this  "}, commenter)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	comment := decodeJSON[models.Comment](t, resp)
	assert.Equal(t, "+1, we need this", comment.Content)

	resp = env.do(http.MethodGet, fmt.Sprintf("/api/ideas/%d/comments", idea.ID), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	comments := decodeJSON[[]models.CommentWithAuthor](t, resp)
	require.Len(t, comments, 1)
	assert.Equal(t, commenter.Name, comments[0].AuthorName)

	resp = env.do(http.MethodPut, fmt.Sprintf("/api/comments/%d", comment.ID),
		map[string]string{"content": "hijack"}, author)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(http.MethodPut, fmt.Sprintf("/api/comments/%d", comment.ID),
		map[string]string{"content": "+1, edited"}, commenter)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "+1, edited", decodeJSON[models.Comment](t, resp).Content)

	resp = env.do(http.MethodPost, fmt.Sprintf("/api/ideas/%d/comments", locked.ID),
		map[string]string{"content": "anyone?"}, commenter)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeJSON[models.ErrorResponse](t, resp)
	assert.Equal(t, models.CodeCommentsLocked, body.Code)
}

func TestMyIdeasIncludesHidden(t *testing.T) {
	env := newTestEnv(t)
	author := testutil.CreateUser(t, env.db, models.RoleUser)
	testutil.CreateIdea(t, env.db, author)
	testutil.CreateIdea(t, env.db, author, testutil.OffTopic())

	resp := env.do(http.MethodGet, "/api/me/ideas", nil, author)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSON[[]models.Idea](t, resp), 2)
}
