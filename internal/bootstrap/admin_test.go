package bootstrap

import (
	"context"
	"testing"

	"ideaboard/internal/auth"
	"ideaboard/internal/models"
	"ideaboard/internal/repository"
	"ideaboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureAdmin(t *testing.T) {
	db := testutil.OpenDB(t)
	users := repository.NewUserRepository(db)
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	ctx := context.Background()

	created, err := EnsureAdmin(ctx, users, hasher, "", "")
	require.NoError(t, err)
	assert.True(t, created)

	admin, err := users.GetByEmail(ctx, DefaultAdminEmail)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "Administrator", admin.Name)
	assert.True(t, hasher.Verify(DefaultAdminPassword, admin.PasswordHash))

	created, err = EnsureAdmin(ctx, users, hasher, "other@uab.edu", "different")
	require.NoError(t, err)
	assert.False(t, created)

	n, err := users.CountByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestEnsureAdmin_PromotesExistingEmail(t *testing.T) {
	db := testutil.OpenDB(t)
	users := repository.NewUserRepository(db)
	ctx := context.Background()
	existing := testutil.CreateUser(t, db, models.RoleUser)

	created, err := EnsureAdmin(ctx, users, &auth.BcryptHasher{Cost: bcrypt.MinCost}, existing.Email, "s3cretpass")
	require.NoError(t, err)
	assert.True(t, created)

	got, err := users.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)
}
