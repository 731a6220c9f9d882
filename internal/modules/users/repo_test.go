package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"csrgive.com/app/internal/modules/users"
	"csrgive.com/app/internal/testutil"
)

func TestRepo_CreateAndGet(t *testing.T) {
	db := testutil.NewDB(t)
	repo := users.NewRepo(db)
	ctx := context.Background()

	u := users.User{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, repo.Create(ctx, &u))
	assert.Equal(t, users.RoleEmployee, u.Role)

	got, err := repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.False(t, got.IsAdmin())

	_, err = repo.Get(ctx, u.ID+100)
	assert.ErrorIs(t, err, users.ErrNotFound)

	dup := users.User{Name: "Ada 2", Email: "ada@example.com"}
	err = repo.Create(ctx, &dup)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "unique email: %v", err)
}
