package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ideaboard/internal/mailer"
	"ideaboard/internal/models"
	"ideaboard/internal/service"
	"ideaboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSignupLoginMe(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"name":     "Grace Hopper",
		"email":    "Grace@Example.edu",
		"password": "correct-horse",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(authRefreshHeader))
	require.NotNil(t, sessionCookie(resp))
	created := decodeJSON[models.User](t, resp)
	assert.Equal(t, "grace@example.edu", created.Email)
	assert.Equal(t, models.RoleUser, created.Role)

	t.Run("duplicate email", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/auth/signup", map[string]string{
			"name":     "Other",
			"email":    "grace@example.edu",
			"password": "correct-horse",
		}, nil)
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		body := decodeJSON[models.ErrorResponse](t, resp)
		assert.Equal(t, service.EmailTakenMessage, body.Error)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "grace@example.edu",
			"password": "wrong-horse",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decodeJSON[models.ErrorResponse](t, resp)
		assert.Equal(t, service.InvalidCredentialsMessage, body.Error)
		assert.Nil(t, sessionCookie(resp))
	})

	t.Run("login then me", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "GRACE@example.edu",
			"password": "correct-horse",
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		cookie := sessionCookie(resp)
		require.NotNil(t, cookie)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(cookie)
		meResp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, meResp.StatusCode)
		me := decodeJSON[models.User](t, meResp)
		assert.Equal(t, created.ID, me.ID)
	})
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"name":     "Short",
		"email":    "short@example.edu",
		"password": "abc",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeJSON[models.ErrorResponse](t, resp)
	assert.Equal(t, "password_too_short", body.Field)
}

func TestMeAnonymous(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/api/auth/me", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(raw)))
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.RoleUser)

	resp := env.do(http.MethodPost, "/api/auth/logout", nil, user)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
}

func TestCASDisabled(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/api/auth/cas/validate", map[string]string{
		"ticket":  "ST-1",
		"service": "https://ideas.example.edu/cas/callback",
	}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.RoleUser)

	var sent mailer.Message
	env.mail.On("Send", mock.Anything, mock.MatchedBy(func(m mailer.Message) bool {
		return m.To == user.Email
	})).Run(func(args mock.Arguments) {
		sent = args.Get(1).(mailer.Message)
	}).Return(nil).Once()

	t.Run("unknown address gets the same reply", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/auth/reset/request", map[string]string{"email": "nobody@example.edu"}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON[messageResponse](t, resp)
		assert.Equal(t, service.ResetRequestedMessage, body.Message)
	})

	resp := env.do(http.MethodPost, "/api/auth/reset/request", map[string]string{"email": user.Email}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[messageResponse](t, resp)
	assert.Equal(t, service.ResetRequestedMessage, body.Message)
	env.mail.AssertExpectations(t)

	assert.Equal(t, service.ResetEmailSubject, sent.Subject)
	idx := strings.Index(sent.Body, "https://")
	require.GreaterOrEqual(t, idx, 0)
	link, err := url.Parse(sent.Body[idx:])
	require.NoError(t, err)
	assert.Equal(t, "/reset_password", link.Path)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	t.Run("mismatched confirmation", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/auth/reset/confirm", map[string]string{
			"token":            token,
			"password":         "brand-new-pass",
			"confirm_password": "other-new-pass",
		}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeJSON[models.ErrorResponse](t, resp)
		assert.Equal(t, service.ResetFailedMessage, body.Error)
	})

	resp = env.do(http.MethodPost, "/api/auth/reset/confirm", map[string]string{
		"token":            token,
		"password":         "brand-new-pass",
		"confirm_password": "brand-new-pass",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	confirm := decodeJSON[messageResponse](t, resp)
	assert.Equal(t, service.ResetSucceededMessage, confirm.Message)

	resp = env.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    user.Email,
		"password": "brand-new-pass",
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
