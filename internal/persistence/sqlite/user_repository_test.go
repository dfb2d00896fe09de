package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/testfixtures"
)

func TestUserRepositoryCreateAndGet(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := testfixtures.NewUserFixture(
		testfixtures.WithUserEmail("mori@example.com"),
	).Persistence()
	require.NoError(t, harness.Users.CreateUser(ctx, user))

	got, err := harness.Users.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "mori@example.com", got.Email)
	assert.Equal(t, user.DisplayName, got.DisplayName)
	assert.True(t, got.CreatedAt.Equal(user.CreatedAt))

	_, err = harness.Users.GetUser(ctx, "user-unknown")
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	first := testfixtures.NewUserFixture(
		testfixtures.WithUserEmail("shared@example.com"),
	).Persistence()
	require.NoError(t, harness.Users.CreateUser(ctx, first))

	second := testfixtures.NewUserFixture(
		testfixtures.WithUserEmail("shared@example.com"),
	).Persistence()
	err := harness.Users.CreateUser(ctx, second)
	require.ErrorIs(t, err, persistence.ErrDuplicate)
}

func TestUserRepositoryListOrdersByCreation(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	base := testfixtures.ReferenceTime()
	late := testfixtures.NewUserFixture(
		testfixtures.WithUserCreatedAt(base.Add(48 * time.Hour)),
	).Persistence()
	early := testfixtures.NewUserFixture(
		testfixtures.WithUserCreatedAt(base),
	).Persistence()

	require.NoError(t, harness.Users.CreateUser(ctx, late))
	require.NoError(t, harness.Users.CreateUser(ctx, early))

	users, err := harness.Users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, early.ID, users[0].ID)
	assert.Equal(t, late.ID, users[1].ID)
}
