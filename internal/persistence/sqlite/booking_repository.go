package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
//
// Writes that can introduce a double booking run the overlap check and the
// mutation inside one transaction. The connection DSN uses immediate
// transaction locking, so the check can never interleave with a competing
// writer: two concurrent creates for the same slot serialize at BEGIN and
// the loser observes the winner's row.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const bookingColumns = "id, room_id, booked_by_id, title, start_at, end_at, status, cancelled_at, cancel_reason, checked_in_at, released_at, release_reason, created_at, updated_at"

// CreateBooking inserts a booking after verifying, in the same transaction,
// that no CONFIRMED booking on the room overlaps its interval. Returns
// persistence.ErrConflict when the slot is taken.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !booking.StartAt.Before(booking.EndAt) {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if booking.Status == persistence.StatusConfirmed {
			taken, err := r.overlapExistsTx(tx, booking.RoomID, booking.StartAt, booking.EndAt, "")
			if err != nil {
				return err
			}
			if taken {
				return persistence.ErrConflict
			}
		}

		query := `
			INSERT INTO bookings (` + bookingColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		_, err := r.helper.ExecTx(tx, query,
			booking.ID,
			booking.RoomID,
			booking.BookedByID,
			booking.Title,
			formatTime(booking.StartAt),
			formatTime(booking.EndAt),
			string(booking.Status),
			nullTime(booking.CancelledAt),
			nullString(booking.CancelReason),
			nullTime(booking.CheckedInAt),
			nullTime(booking.ReleasedAt),
			nullString(booking.ReleaseReason),
			formatTime(booking.CreatedAt),
			formatTime(booking.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		return nil
	})
}

// UpdateBooking rewrites a booking after re-running the overlap check against
// all other bookings on the room, in the same transaction as the write.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrNotFound
	}
	if !booking.StartAt.Before(booking.EndAt) {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if booking.Status == persistence.StatusConfirmed {
			taken, err := r.overlapExistsTx(tx, booking.RoomID, booking.StartAt, booking.EndAt, booking.ID)
			if err != nil {
				return err
			}
			if taken {
				return persistence.ErrConflict
			}
		}

		query := `
			UPDATE bookings
			SET title = ?, start_at = ?, end_at = ?, status = ?, cancelled_at = ?, cancel_reason = ?, checked_in_at = ?, released_at = ?, release_reason = ?, updated_at = ?
			WHERE id = ?
		`

		result, err := r.helper.ExecTx(tx, query,
			booking.Title,
			formatTime(booking.StartAt),
			formatTime(booking.EndAt),
			string(booking.Status),
			nullTime(booking.CancelledAt),
			nullString(booking.CancelReason),
			nullTime(booking.CheckedInAt),
			nullTime(booking.ReleasedAt),
			nullString(booking.ReleaseReason),
			formatTime(booking.UpdatedAt),
			booking.ID,
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
	})
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id)
	booking, err := scanBooking(row)
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return booking, nil
}

// ListBookings returns bookings matching the filter. The default order is
// start time descending; filters may request ascending order instead.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query := "SELECT " + bookingColumns + " FROM bookings"

	var conditions []string
	var args []any

	if filter.RoomID != "" {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.BookedByID != "" {
		conditions = append(conditions, "booked_by_id = ?")
		args = append(args, filter.BookedByID)
	}
	if filter.ConfirmedOnly {
		conditions = append(conditions, "status = ?")
		args = append(args, string(persistence.StatusConfirmed))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	if filter.OrderAscending {
		query += " ORDER BY start_at ASC, id ASC"
	} else {
		query += " ORDER BY start_at DESC, id ASC"
	}

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return bookings, nil
}

// HasOverlap reports whether any CONFIRMED booking on the room intersects
// [startAt,endAt), ignoring excludeID.
func (r *BookingRepository) HasOverlap(ctx context.Context, roomID string, startAt, endAt time.Time, excludeID string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE room_id = ?
		  AND status = ?
		  AND id <> ?
		  AND start_at < ?
		  AND end_at > ?
	`

	var count int
	err := r.helper.QueryRow(ctx, query,
		roomID,
		string(persistence.StatusConfirmed),
		excludeID,
		formatTime(endAt),
		formatTime(startAt),
	).Scan(&count)
	if err != nil {
		return false, r.mapper.MapError(err)
	}

	return count > 0, nil
}

func (r *BookingRepository) overlapExistsTx(tx *sql.Tx, roomID string, startAt, endAt time.Time, excludeID string) (bool, error) {
	var count int
	err := r.helper.QueryRowTx(tx, `
		SELECT COUNT(*)
		FROM bookings
		WHERE room_id = ?
		  AND status = ?
		  AND id <> ?
		  AND start_at < ?
		  AND end_at > ?
	`,
		roomID,
		string(persistence.StatusConfirmed),
		excludeID,
		formatTime(endAt),
		formatTime(startAt),
	).Scan(&count)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return count > 0, nil
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var status string
	var startAtStr, endAtStr, createdAtStr, updatedAtStr string
	var cancelledAt, checkedInAt, releasedAt sql.NullString
	var cancelReason, releaseReason sql.NullString

	err := row.Scan(
		&booking.ID,
		&booking.RoomID,
		&booking.BookedByID,
		&booking.Title,
		&startAtStr,
		&endAtStr,
		&status,
		&cancelledAt,
		&cancelReason,
		&checkedInAt,
		&releasedAt,
		&releaseReason,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Booking{}, err
	}

	booking.Status = persistence.BookingStatus(status)
	if cancelReason.Valid {
		booking.CancelReason = &cancelReason.String
	}
	if releaseReason.Valid {
		booking.ReleaseReason = &releaseReason.String
	}

	if booking.StartAt, err = parseTime(startAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse start_at: %w", err)
	}
	if booking.EndAt, err = parseTime(endAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse end_at: %w", err)
	}
	if booking.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if booking.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	if booking.CancelledAt, err = parseNullTime(cancelledAt); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse cancelled_at: %w", err)
	}
	if booking.CheckedInAt, err = parseNullTime(checkedInAt); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse checked_in_at: %w", err)
	}
	if booking.ReleasedAt, err = parseNullTime(releasedAt); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse released_at: %w", err)
	}

	return booking, nil
}

func nullTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*value), Valid: true}
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	parsed, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
