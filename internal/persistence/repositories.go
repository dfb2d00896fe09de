package persistence

import (
	"context"
	"time"
)

// UserRepository exposes directory operations for booking creators.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// RoomFilter narrows room queries.
type RoomFilter struct {
	// ActiveOnly excludes soft-deleted rooms.
	ActiveOnly bool
	// MinCapacity keeps rooms with capacity >= the value when positive.
	MinCapacity int
}

// RoomRepository exposes CRUD and availability operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	GetRoomByName(ctx context.Context, name string) (Room, error)
	ListRooms(ctx context.Context, filter RoomFilter) ([]Room, error)
	// ListAvailableRooms returns rooms that are active, available, meet the
	// minimum capacity, and have no CONFIRMED booking covering the instant.
	// Ordered by capacity ascending, then name ascending.
	ListAvailableRooms(ctx context.Context, at time.Time, minCapacity int) ([]Room, error)
}

// BookingFilter narrows booking queries.
type BookingFilter struct {
	RoomID     string
	BookedByID string
	// ConfirmedOnly keeps only CONFIRMED bookings.
	ConfirmedOnly bool
	// OrderAscending orders by StartAt ascending instead of descending.
	OrderAscending bool
}

// BookingRepository stores bookings. CreateBooking and UpdateBooking run the
// confirmed-overlap check and the write inside one transaction and return
// ErrConflict when the slot is taken; callers must not pre-check and insert
// as two independent operations.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	// HasOverlap reports whether any CONFIRMED booking on the room intersects
	// [startAt,endAt), ignoring excludeID. Read-only.
	HasOverlap(ctx context.Context, roomID string, startAt, endAt time.Time, excludeID string) (bool, error)
}
