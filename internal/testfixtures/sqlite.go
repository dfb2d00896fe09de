package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool     *sqlite.ConnectionPool
	Users    persistence.UserRepository
	Rooms    persistence.RoomRepository
	Bookings persistence.BookingRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness against a temporary database
// file that is migrated automatically. Callers may optionally invoke Close,
// but the helper also registers a cleanup callback with the provided
// testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "roombook.db")

	pool, err := sqlite.NewConnectionPool("file:" + path + "?_txlock=immediate")
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:     pool,
		Users:    sqlite.NewUserRepository(pool),
		Rooms:    sqlite.NewRoomRepository(pool),
		Bookings: sqlite.NewBookingRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
