package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoomRepository creates a new SQLite room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const roomColumns = "id, name, capacity, location, is_active, is_available, reason, created_by, updated_by, created_at, updated_at"

// CreateRoom inserts a new room into the database.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if room.Capacity < 1 {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO rooms (` + roomColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		room.ID,
		room.Name,
		room.Capacity,
		nullString(room.Location),
		boolToInt(room.IsActive),
		boolToInt(room.IsAvailable),
		nullString(room.Reason),
		room.CreatedBy,
		room.UpdatedBy,
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// UpdateRoom updates an existing room in the database.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrNotFound
	}
	if room.Capacity < 1 {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE rooms
		SET name = ?, capacity = ?, location = ?, is_active = ?, is_available = ?, reason = ?, updated_by = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		room.Name,
		room.Capacity,
		nullString(room.Location),
		boolToInt(room.IsActive),
		boolToInt(room.IsAvailable),
		nullString(room.Reason),
		room.UpdatedBy,
		formatTime(room.UpdatedAt),
		room.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// GetRoom retrieves a room by ID, including soft-deleted rooms.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = ?", id)
	room, err := scanRoom(row)
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// GetRoomByName retrieves a room by its exact name.
func (r *RoomRepository) GetRoomByName(ctx context.Context, name string) (persistence.Room, error) {
	row := r.helper.QueryRow(ctx, "SELECT "+roomColumns+" FROM rooms WHERE name = ?", name)
	room, err := scanRoom(row)
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// ListRooms returns rooms matching the filter, newest first.
func (r *RoomRepository) ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]persistence.Room, error) {
	query := "SELECT " + roomColumns + " FROM rooms"

	var conditions []string
	var args []any

	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = 1")
	}
	if filter.MinCapacity > 0 {
		conditions = append(conditions, "capacity >= ?")
		args = append(args, filter.MinCapacity)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	return r.queryRooms(ctx, query, args...)
}

// ListAvailableRooms returns rooms that are active, available, meet the
// minimum capacity, and have no CONFIRMED booking covering the instant.
func (r *RoomRepository) ListAvailableRooms(ctx context.Context, at time.Time, minCapacity int) ([]persistence.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms
		WHERE is_active = 1
		  AND is_available = 1
		  AND capacity >= ?
		  AND NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.room_id = rooms.id
			  AND b.status = ?
			  AND b.start_at <= ?
			  AND b.end_at > ?
		  )
		ORDER BY capacity ASC, name ASC
	`

	instant := formatTime(at)
	return r.queryRooms(ctx, query, minCapacity, string(persistence.StatusConfirmed), instant, instant)
}

func (r *RoomRepository) queryRooms(ctx context.Context, query string, args ...any) ([]persistence.Room, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return rooms, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var room persistence.Room
	var location, reason sql.NullString
	var isActive, isAvailable int
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Capacity,
		&location,
		&isActive,
		&isAvailable,
		&reason,
		&room.CreatedBy,
		&room.UpdatedBy,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Room{}, err
	}

	if location.Valid {
		room.Location = &location.String
	}
	if reason.Valid {
		room.Reason = &reason.String
	}
	room.IsActive = isActive != 0
	room.IsAvailable = isAvailable != 0

	if room.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if room.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return room, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// timeLayout is RFC 3339 in UTC with a fixed-width nanosecond fraction.
// The fixed width keeps lexicographic order chronological, which the overlap
// and availability SQL rely on when comparing instants as strings, without
// losing sub-second precision on the round trip.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
