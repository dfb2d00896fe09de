package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds the versioned schema statements applied by Migrate.
// Each entry runs at most once; applied versions are tracked in
// schema_migrations.
var migrations = []struct {
	version int
	name    string
	stmts   []string
}{
	{
		version: 1,
		name:    "create_users",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS users (
				id           TEXT PRIMARY KEY,
				email        TEXT NOT NULL UNIQUE,
				display_name TEXT NOT NULL,
				created_at   TEXT NOT NULL,
				updated_at   TEXT NOT NULL
			)`,
		},
	},
	{
		version: 2,
		name:    "create_rooms",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS rooms (
				id           TEXT PRIMARY KEY,
				name         TEXT NOT NULL UNIQUE,
				capacity     INTEGER NOT NULL CHECK (capacity >= 1),
				location     TEXT,
				is_active    INTEGER NOT NULL DEFAULT 1,
				is_available INTEGER NOT NULL DEFAULT 1,
				reason       TEXT,
				created_by   TEXT NOT NULL,
				updated_by   TEXT NOT NULL,
				created_at   TEXT NOT NULL,
				updated_at   TEXT NOT NULL
			)`,
		},
	},
	{
		version: 3,
		name:    "create_bookings",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS bookings (
				id             TEXT PRIMARY KEY,
				room_id        TEXT NOT NULL REFERENCES rooms(id),
				booked_by_id   TEXT NOT NULL REFERENCES users(id),
				title          TEXT NOT NULL,
				start_at       TEXT NOT NULL,
				end_at         TEXT NOT NULL,
				status         TEXT NOT NULL DEFAULT 'CONFIRMED'
				               CHECK (status IN ('CONFIRMED', 'CANCELLED', 'RELEASED_NO_SHOW')),
				cancelled_at   TEXT,
				cancel_reason  TEXT,
				checked_in_at  TEXT,
				released_at    TEXT,
				release_reason TEXT,
				created_at     TEXT NOT NULL,
				updated_at     TEXT NOT NULL,
				CHECK (start_at < end_at)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_room_status_start
				ON bookings (room_id, status, start_at)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_booked_by
				ON bookings (booked_by_id)`,
		},
	},
}

// Migrate applies all pending schema migrations in order. Each migration runs
// inside its own transaction together with the version bookkeeping.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		)`); err != nil {
		return fmt.Errorf("failed to initialize schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := migrationApplied(ctx, pool, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
				}
			}
			if _, err := tx.Exec(
				"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))",
				m.version, m.name,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func migrationApplied(ctx context.Context, pool *ConnectionPool, version int) (bool, error) {
	var count int
	err := pool.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return count > 0, nil
}
