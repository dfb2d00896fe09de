package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// BookingService orchestrates the booking lifecycle: creation against the
// authoritative overlap check, partial updates that re-run it, and terminal
// cancellation.
type BookingService struct {
	bookings    persistence.BookingRepository
	rooms       persistence.RoomRepository
	users       persistence.UserRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(bookings persistence.BookingRepository, rooms persistence.RoomRepository, users persistence.UserRepository, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, rooms, users, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(bookings persistence.BookingRepository, rooms persistence.RoomRepository, users persistence.UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:    bookings,
		rooms:       rooms,
		users:       users,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking validates the request and persists a confirmed booking. The
// overlap check and insert happen atomically in the store, so a concurrent
// request for the same slot loses with ErrSlotUnavailable.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil || s.rooms == nil || s.users == nil {
		err = fmt.Errorf("booking repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"actor_id", params.Actor.UserID,
		"room_id", params.Input.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking created")
	}()

	if params.Actor.UserID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := validateBookingInput(params.Input, s.now())
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var room persistence.Room
	room, err = s.rooms.GetRoom(ctx, params.Input.RoomID)
	if err != nil {
		err = mapBookingRepoError(err, "CreateBooking")
		return
	}
	if !room.IsActive || !room.IsAvailable {
		err = ErrRoomUnavailable
		return
	}

	var booker persistence.User
	booker, err = s.users.GetUser(ctx, params.Actor.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrUnauthorized
			return
		}
		err = &IntegrityError{Operation: "CreateBooking", Err: err}
		return
	}

	status := persistence.StatusConfirmed
	if params.Input.Status != nil {
		status = persistence.BookingStatus(*params.Input.Status)
	}

	now := s.now()
	record := persistence.Booking{
		ID:         s.idGenerator(),
		RoomID:     room.ID,
		BookedByID: booker.ID,
		Title:      strings.TrimSpace(params.Input.Title),
		StartAt:    params.Input.StartAt.UTC(),
		EndAt:      params.Input.EndAt.UTC(),
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err = s.bookings.CreateBooking(ctx, record); err != nil {
		err = mapBookingRepoError(err, "CreateBooking")
		return
	}

	booking = assembleBooking(record, room, booker)
	return
}

// GetBooking returns a single booking joined with its room and booker.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, fmt.Errorf("booking repositories not configured")
	}

	record, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, mapBookingRepoError(err, "GetBooking")
	}
	return s.hydrate(ctx, record)
}

// ListBookings returns every booking, newest start first.
func (s *BookingService) ListBookings(ctx context.Context) ([]Booking, error) {
	return s.list(ctx, "ListBookings", persistence.BookingFilter{})
}

// ListBookingsByRoom returns the confirmed bookings for a room in start order.
func (s *BookingService) ListBookingsByRoom(ctx context.Context, roomID string) ([]Booking, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	if s.rooms == nil {
		return nil, fmt.Errorf("booking repositories not configured")
	}

	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return nil, mapBookingRepoError(err, "ListBookingsByRoom")
	}

	return s.list(ctx, "ListBookingsByRoom", persistence.BookingFilter{
		RoomID:         roomID,
		ConfirmedOnly:  true,
		OrderAscending: true,
	})
}

// ListBookingsByUser returns a user's bookings in every status, newest start first.
func (s *BookingService) ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	if s.users == nil {
		return nil, fmt.Errorf("booking repositories not configured")
	}

	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, mapBookingRepoError(err, "ListBookingsByUser")
	}

	return s.list(ctx, "ListBookingsByUser", persistence.BookingFilter{BookedByID: userID})
}

// UpdateBooking applies a partial update to a confirmed booking. A changed
// interval is re-checked against the room's other confirmed bookings in the
// same transaction that persists it.
func (s *BookingService) UpdateBooking(ctx context.Context, params UpdateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateBooking",
		"actor_id", params.Actor.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking updated")
	}()

	if params.Actor.UserID == "" {
		err = ErrUnauthorized
		return
	}

	var existing persistence.Booking
	existing, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err, "UpdateBooking")
		return
	}
	if err = requireConfirmed(existing.Status); err != nil {
		return
	}

	updated := existing
	if title := optionalTrimmed(params.Patch.Title); title != "" {
		updated.Title = title
	}
	if params.Patch.StartAt != nil {
		updated.StartAt = params.Patch.StartAt.UTC()
	}
	if params.Patch.EndAt != nil {
		updated.EndAt = params.Patch.EndAt.UTC()
	}

	vErr := validateInterval(updated.StartAt, updated.EndAt)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	if params.Patch.Status != nil {
		if err = applyStatusPatch(&updated, *params.Patch.Status, params.Patch.ReleaseReason, now); err != nil {
			return
		}
	}

	updated.UpdatedAt = now

	if err = s.bookings.UpdateBooking(ctx, updated); err != nil {
		err = mapBookingRepoError(err, "UpdateBooking")
		return
	}

	booking, err = s.hydrate(ctx, updated)
	return
}

// CancelBooking moves a confirmed booking to CANCELLED, freeing its slot.
// Cancellation is terminal and idempotently rejected on repeat.
func (s *BookingService) CancelBooking(ctx context.Context, params CancelBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "CancelBooking",
		"actor_id", params.Actor.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking cancelled")
	}()

	if params.Actor.UserID == "" {
		err = ErrUnauthorized
		return
	}

	var existing persistence.Booking
	existing, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err, "CancelBooking")
		return
	}
	if err = requireConfirmed(existing.Status); err != nil {
		return
	}

	now := s.now()
	existing.Status = persistence.StatusCancelled
	existing.CancelledAt = &now
	if reason := strings.TrimSpace(params.Reason); reason != "" {
		existing.CancelReason = &reason
	}
	existing.UpdatedAt = now

	if err = s.bookings.UpdateBooking(ctx, existing); err != nil {
		err = mapBookingRepoError(err, "CancelBooking")
		return
	}

	booking, err = s.hydrate(ctx, existing)
	return
}

func (s *BookingService) list(ctx context.Context, operation string, filter persistence.BookingFilter) (bookings []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, operation)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(bookings)).InfoContext(ctx, "bookings listed")
	}()

	var raw []persistence.Booking
	raw, err = s.bookings.ListBookings(ctx, filter)
	if err != nil {
		err = mapBookingRepoError(err, operation)
		return
	}

	rooms := make(map[string]persistence.Room)
	users := make(map[string]persistence.User)
	bookings = make([]Booking, 0, len(raw))
	for _, record := range raw {
		room, ok := rooms[record.RoomID]
		if !ok {
			if room, err = s.rooms.GetRoom(ctx, record.RoomID); err != nil {
				err = &IntegrityError{Operation: operation, Err: err}
				return
			}
			rooms[record.RoomID] = room
		}
		booker, ok := users[record.BookedByID]
		if !ok {
			if booker, err = s.users.GetUser(ctx, record.BookedByID); err != nil {
				err = &IntegrityError{Operation: operation, Err: err}
				return
			}
			users[record.BookedByID] = booker
		}
		bookings = append(bookings, assembleBooking(record, room, booker))
	}
	return
}

func (s *BookingService) hydrate(ctx context.Context, record persistence.Booking) (Booking, error) {
	room, err := s.rooms.GetRoom(ctx, record.RoomID)
	if err != nil {
		return Booking{}, &IntegrityError{Operation: "hydrate", Err: err}
	}
	booker, err := s.users.GetUser(ctx, record.BookedByID)
	if err != nil {
		return Booking{}, &IntegrityError{Operation: "hydrate", Err: err}
	}
	return assembleBooking(record, room, booker), nil
}

// applyStatusPatch enforces the lifecycle state machine on a status patch.
// The receiver is known to be CONFIRMED; both targets are terminal.
func applyStatusPatch(booking *persistence.Booking, target BookingStatus, releaseReason *string, now time.Time) error {
	switch persistence.BookingStatus(target) {
	case persistence.StatusConfirmed:
		return nil
	case persistence.StatusCancelled:
		booking.Status = persistence.StatusCancelled
		booking.CancelledAt = &now
		return nil
	case persistence.StatusReleasedNoShow:
		booking.Status = persistence.StatusReleasedNoShow
		booking.ReleasedAt = &now
		booking.ReleaseReason = normalizeOptionalString(releaseReason)
		return nil
	default:
		return ErrStatusTransition
	}
}

func requireConfirmed(status persistence.BookingStatus) error {
	switch status {
	case persistence.StatusConfirmed:
		return nil
	case persistence.StatusCancelled:
		return ErrAlreadyCancelled
	case persistence.StatusReleasedNoShow:
		return ErrBookingReleased
	default:
		return ErrStatusTransition
	}
}

func validateBookingInput(input BookingInput, now time.Time) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.RoomID) == "" {
		vErr.add("roomId", "roomId is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	vErr.merge(validateInterval(input.StartAt, input.EndAt))
	if !input.StartAt.IsZero() && input.StartAt.Before(now) {
		vErr.add("startAt", "startAt must not be in the past")
	}
	if input.Status != nil {
		switch persistence.BookingStatus(*input.Status) {
		case persistence.StatusConfirmed, persistence.StatusCancelled, persistence.StatusReleasedNoShow:
		default:
			vErr.add("status", "status must be one of CONFIRMED, CANCELLED, RELEASED_NO_SHOW")
		}
	}

	return vErr
}

func validateInterval(startAt, endAt time.Time) *ValidationError {
	vErr := &ValidationError{}

	if startAt.IsZero() {
		vErr.add("startAt", "startAt is required")
	}
	if endAt.IsZero() {
		vErr.add("endAt", "endAt is required")
	}
	if !startAt.IsZero() && !endAt.IsZero() && !startAt.Before(endAt) {
		vErr.add("endAt", "endAt must be after startAt")
	}

	return vErr
}

func mapBookingRepoError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConflict) {
		return ErrSlotUnavailable
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	// Anything else, including a missing schema, is an infrastructure
	// failure rather than a business outcome.
	return &IntegrityError{Operation: operation, Err: err}
}

func assembleBooking(record persistence.Booking, room persistence.Room, booker persistence.User) Booking {
	return Booking{
		ID: record.ID,
		Room: RoomSummary{
			ID:       room.ID,
			Name:     room.Name,
			Capacity: room.Capacity,
			Location: room.Location,
		},
		BookedBy: UserSummary{
			ID:          booker.ID,
			Email:       booker.Email,
			DisplayName: booker.DisplayName,
		},
		Title:         record.Title,
		StartAt:       record.StartAt,
		EndAt:         record.EndAt,
		Status:        BookingStatus(record.Status),
		CancelledAt:   record.CancelledAt,
		CancelReason:  record.CancelReason,
		CheckedInAt:   record.CheckedInAt,
		ReleasedAt:    record.ReleasedAt,
		ReleaseReason: record.ReleaseReason,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}
