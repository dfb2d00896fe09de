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

// RoomService orchestrates validation, identity checks, and persistence for
// the room catalog.
type RoomService struct {
	rooms       persistence.RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms persistence.RoomRepository, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms persistence.RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new active room.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		"actor_id", params.Actor.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if params.Actor.UserID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	record := persistence.Room{
		ID:          s.idGenerator(),
		Name:        strings.TrimSpace(params.Input.Name),
		Capacity:    params.Input.Capacity,
		Location:    normalizeOptionalString(params.Input.Location),
		IsActive:    true,
		IsAvailable: true,
		CreatedBy:   params.Actor.UserID,
		UpdatedBy:   params.Actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err = s.rooms.CreateRoom(ctx, record); err != nil {
		err = mapRoomRepoError(err, "CreateRoom")
		return
	}

	room = toRoom(record)
	return
}

// UpdateRoom applies a partial update to an existing active room. Absent and
// blank fields keep their current values.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"actor_id", params.Actor.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room updated")
	}()

	if params.Actor.UserID == "" {
		err = ErrUnauthorized
		return
	}

	var existing persistence.Room
	existing, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRoomRepoError(err, "UpdateRoom")
		return
	}
	if !existing.IsActive {
		err = ErrNotFound
		return
	}

	updated := existing
	if name := optionalTrimmed(params.Patch.Name); name != "" {
		updated.Name = name
	}
	if params.Patch.Capacity != nil {
		updated.Capacity = *params.Patch.Capacity
	}
	if params.Patch.Location != nil {
		updated.Location = normalizeOptionalString(params.Patch.Location)
	}
	if params.Patch.IsAvailable != nil {
		updated.IsAvailable = *params.Patch.IsAvailable
	}
	if params.Patch.Reason != nil {
		updated.Reason = normalizeOptionalString(params.Patch.Reason)
	}

	vErr := validateRoomInput(RoomInput{Name: updated.Name, Capacity: updated.Capacity})
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated.UpdatedBy = params.Actor.UserID
	updated.UpdatedAt = s.now()

	if err = s.rooms.UpdateRoom(ctx, updated); err != nil {
		err = mapRoomRepoError(err, "UpdateRoom")
		return
	}

	room = toRoom(updated)
	return
}

// DeleteRoom retires a room from the catalog. The record is kept so existing
// bookings stay resolvable, but the room drops out of listings and searches.
func (s *RoomService) DeleteRoom(ctx context.Context, params DeleteRoomParams) error {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		"actor_id", params.Actor.UserID,
		"room_id", params.RoomID,
	)

	if params.Actor.UserID == "" {
		logger.ErrorContext(ctx, "failed to delete room", "error", ErrUnauthorized, "error_kind", ErrorKind(ErrUnauthorized))
		return ErrUnauthorized
	}

	existing, err := s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRoomRepoError(err, "DeleteRoom")
		logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if !existing.IsActive {
		logger.ErrorContext(ctx, "failed to delete room", "error", ErrNotFound, "error_kind", ErrorKind(ErrNotFound))
		return ErrNotFound
	}

	existing.IsActive = false
	existing.IsAvailable = false
	reason := strings.TrimSpace(params.Reason)
	if reason != "" {
		existing.Reason = &reason
	}
	existing.UpdatedBy = params.Actor.UserID
	existing.UpdatedAt = s.now()

	if err := s.rooms.UpdateRoom(ctx, existing); err != nil {
		err = mapRoomRepoError(err, "DeleteRoom")
		logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "room retired")
	return nil
}

// GetRoom returns a single room, including retired ones.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (Room, error) {
	if s == nil {
		return Room{}, fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return Room{}, fmt.Errorf("room repository not configured")
	}

	record, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, mapRoomRepoError(err, "GetRoom")
	}
	return toRoom(record), nil
}

// ListRooms returns the catalog ordered by most recently created.
func (s *RoomService) ListRooms(ctx context.Context, params ListRoomsParams) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).InfoContext(ctx, "rooms listed")
	}()

	var raw []persistence.Room
	raw, err = s.rooms.ListRooms(ctx, persistence.RoomFilter{
		ActiveOnly:  params.ActiveOnly,
		MinCapacity: params.MinCapacity,
	})
	if err != nil {
		return
	}

	rooms = make([]Room, len(raw))
	for i, record := range raw {
		rooms[i] = toRoom(record)
	}
	return
}

// SearchAvailableRooms returns active, available rooms of sufficient capacity
// that have no confirmed booking covering the requested instant. Results are
// ordered by capacity ascending, then name.
func (s *RoomService) SearchAvailableRooms(ctx context.Context, params SearchAvailableParams) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "SearchAvailableRooms",
		"date", params.Date,
		"time", params.Time,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to search rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).InfoContext(ctx, "rooms searched")
	}()

	at, vErr := parseSearchInstant(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	minCapacity := params.MinCapacity
	if minCapacity < 1 {
		minCapacity = 1
	}

	var raw []persistence.Room
	raw, err = s.rooms.ListAvailableRooms(ctx, at, minCapacity)
	if err != nil {
		return
	}

	rooms = make([]Room, len(raw))
	for i, record := range raw {
		rooms[i] = toRoom(record)
	}
	return
}

func parseSearchInstant(params SearchAvailableParams) (time.Time, *ValidationError) {
	vErr := &ValidationError{}

	date := strings.TrimSpace(params.Date)
	if date == "" {
		vErr.add("date", "date is required")
	}
	clock := strings.TrimSpace(params.Time)
	if clock == "" {
		vErr.add("time", "time is required")
	}
	if params.MinCapacity < 0 {
		vErr.add("minCapacity", "minCapacity must not be negative")
	}
	if vErr.HasErrors() {
		return time.Time{}, vErr
	}

	at, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	if err != nil {
		if _, dErr := time.Parse("2006-01-02", date); dErr != nil {
			vErr.add("date", "date must be formatted as YYYY-MM-DD")
		} else {
			vErr.add("time", "time must be formatted as HH:MM")
		}
		return time.Time{}, vErr
	}

	return at.UTC(), vErr
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity < 1 {
		vErr.add("capacity", "capacity must be at least 1")
	}

	return vErr
}

func mapRoomRepoError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("name", "a room with this name already exists")
		return vErr
	}
	// Anything else, including a missing schema, is an infrastructure
	// failure rather than a business outcome.
	return &IntegrityError{Operation: operation, Err: err}
}

func toRoom(record persistence.Room) Room {
	return Room{
		ID:          record.ID,
		Name:        record.Name,
		Capacity:    record.Capacity,
		Location:    record.Location,
		IsActive:    record.IsActive,
		IsAvailable: record.IsAvailable,
		Reason:      record.Reason,
		CreatedBy:   record.CreatedBy,
		UpdatedBy:   record.UpdatedBy,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func optionalTrimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
