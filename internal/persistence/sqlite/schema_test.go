package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlite"
	"github.com/example/room-booking/internal/testfixtures"
)

func TestMigrateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	pool, err := sqlite.NewConnectionPool("file:" + filepath.Join(dir, "migrate.db") + "?_txlock=immediate")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	ctx := context.Background()
	require.NoError(t, sqlite.Migrate(ctx, pool))
	require.NoError(t, sqlite.Migrate(ctx, pool))

	var count int
	err = pool.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMigrateProvisionsRepositories(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	users, err := harness.Users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	rooms, err := harness.Rooms.ListRooms(ctx, persistence.RoomFilter{})
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
