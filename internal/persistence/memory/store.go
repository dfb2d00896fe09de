// Package memory provides a map-backed implementation of the persistence
// repositories. It mirrors the durable store's semantics, including the
// atomic confirmed-overlap rejection, and is used by tests and local wiring.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/room-booking/internal/conflict"
	"github.com/example/room-booking/internal/persistence"
)

// Store is an in-memory persistence layer guarded by a single mutex, so
// check-then-write sequences are atomic with respect to other callers.
type Store struct {
	mu       sync.RWMutex
	users    map[string]persistence.User
	rooms    map[string]persistence.Room
	bookings map[string]persistence.Booking
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]persistence.User),
		rooms:    make(map[string]persistence.Room),
		bookings: make(map[string]persistence.Booking),
	}
}

// --- UserRepository implementation ---

// CreateUser stores a new user.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return persistence.ErrDuplicate
		}
	}

	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// ListUsers returns all users ordered by CreatedAt ascending.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users, nil
}

// --- RoomRepository implementation ---

// CreateRoom stores a new room, rejecting duplicate IDs and names.
func (s *Store) CreateRoom(ctx context.Context, room persistence.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room.Capacity < 1 {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.rooms[room.ID]; ok {
		return persistence.ErrDuplicate
	}
	for _, existing := range s.rooms {
		if existing.Name == room.Name {
			return persistence.ErrDuplicate
		}
	}

	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

// UpdateRoom rewrites an existing room.
func (s *Store) UpdateRoom(ctx context.Context, room persistence.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; !ok {
		return persistence.ErrNotFound
	}
	if room.Capacity < 1 {
		return persistence.ErrConstraintViolation
	}
	for id, existing := range s.rooms {
		if id != room.ID && existing.Name == room.Name {
			return persistence.ErrDuplicate
		}
	}

	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

// GetRoom retrieves a room by ID, including soft-deleted rooms.
func (s *Store) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return cloneRoom(room), nil
}

// GetRoomByName retrieves a room by its exact name.
func (s *Store) GetRoomByName(ctx context.Context, name string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, room := range s.rooms {
		if room.Name == name {
			return cloneRoom(room), nil
		}
	}
	return persistence.Room{}, persistence.ErrNotFound
}

// ListRooms returns rooms matching the filter, newest first.
func (s *Store) ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if filter.ActiveOnly && !room.IsActive {
			continue
		}
		if filter.MinCapacity > 0 && room.Capacity < filter.MinCapacity {
			continue
		}
		rooms = append(rooms, cloneRoom(room))
	}

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})

	return rooms, nil
}

// ListAvailableRooms returns structurally bookable rooms not blocked at the
// instant, ordered by capacity then name.
func (s *Store) ListAvailableRooms(ctx context.Context, at time.Time, minCapacity int) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	confirmed := s.confirmedBookingsLocked()

	rooms := make([]persistence.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if !room.IsActive || !room.IsAvailable {
			continue
		}
		if room.Capacity < minCapacity {
			continue
		}
		if conflict.BlockedAt(confirmed, room.ID, at) {
			continue
		}
		rooms = append(rooms, cloneRoom(room))
	}

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Capacity == rooms[j].Capacity {
			return rooms[i].Name < rooms[j].Name
		}
		return rooms[i].Capacity < rooms[j].Capacity
	})

	return rooms, nil
}

// --- BookingRepository implementation ---

// CreateBooking stores a booking, rejecting confirmed overlaps atomically
// under the store lock.
func (s *Store) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !booking.StartAt.Before(booking.EndAt) {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.bookings[booking.ID]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := s.rooms[booking.RoomID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	if _, ok := s.users[booking.BookedByID]; !ok {
		return persistence.ErrForeignKeyViolation
	}

	if booking.Status == persistence.StatusConfirmed && s.overlapLocked(booking.RoomID, booking.StartAt, booking.EndAt, "") {
		return persistence.ErrConflict
	}

	s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

// UpdateBooking rewrites a booking, re-running the overlap check against all
// other confirmed bookings on the room.
func (s *Store) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.bookings[booking.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if !booking.StartAt.Before(booking.EndAt) {
		return persistence.ErrConstraintViolation
	}

	if booking.Status == persistence.StatusConfirmed && s.overlapLocked(booking.RoomID, booking.StartAt, booking.EndAt, booking.ID) {
		return persistence.ErrConflict
	}

	booking.RoomID = existing.RoomID
	booking.BookedByID = existing.BookedByID
	booking.CreatedAt = existing.CreatedAt
	s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

// GetBooking retrieves a booking by ID.
func (s *Store) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return cloneBooking(booking), nil
}

// ListBookings returns bookings matching the filter.
func (s *Store) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookings := make([]persistence.Booking, 0, len(s.bookings))
	for _, booking := range s.bookings {
		if filter.RoomID != "" && booking.RoomID != filter.RoomID {
			continue
		}
		if filter.BookedByID != "" && booking.BookedByID != filter.BookedByID {
			continue
		}
		if filter.ConfirmedOnly && booking.Status != persistence.StatusConfirmed {
			continue
		}
		bookings = append(bookings, cloneBooking(booking))
	}

	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].StartAt.Equal(bookings[j].StartAt) {
			return bookings[i].ID < bookings[j].ID
		}
		if filter.OrderAscending {
			return bookings[i].StartAt.Before(bookings[j].StartAt)
		}
		return bookings[i].StartAt.After(bookings[j].StartAt)
	})

	return bookings, nil
}

// HasOverlap reports whether any CONFIRMED booking on the room intersects
// [startAt,endAt), ignoring excludeID.
func (s *Store) HasOverlap(ctx context.Context, roomID string, startAt, endAt time.Time, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.overlapLocked(roomID, startAt, endAt, excludeID), nil
}

func (s *Store) overlapLocked(roomID string, startAt, endAt time.Time, excludeID string) bool {
	candidate := conflict.Booking{ID: excludeID, RoomID: roomID, Start: startAt, End: endAt}
	return len(conflict.Detect(s.confirmedBookingsLocked(), candidate)) > 0
}

func (s *Store) confirmedBookingsLocked() []conflict.Booking {
	confirmed := make([]conflict.Booking, 0, len(s.bookings))
	for _, booking := range s.bookings {
		if booking.Status != persistence.StatusConfirmed {
			continue
		}
		confirmed = append(confirmed, conflict.Booking{
			ID:     booking.ID,
			RoomID: booking.RoomID,
			Start:  booking.StartAt,
			End:    booking.EndAt,
		})
	}
	return confirmed
}

func cloneRoom(room persistence.Room) persistence.Room {
	room.Location = cloneString(room.Location)
	room.Reason = cloneString(room.Reason)
	return room
}

func cloneBooking(booking persistence.Booking) persistence.Booking {
	booking.CancelReason = cloneString(booking.CancelReason)
	booking.ReleaseReason = cloneString(booking.ReleaseReason)
	booking.CancelledAt = cloneTime(booking.CancelledAt)
	booking.CheckedInAt = cloneTime(booking.CheckedInAt)
	booking.ReleasedAt = cloneTime(booking.ReleasedAt)
	return booking
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
