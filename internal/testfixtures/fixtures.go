package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

var (
	userCounter    uint64
	roomCounter    uint64
	bookingCounter uint64
)

var referenceTime = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record.
type UserFixture struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:          id,
		Email:       fmt.Sprintf("%s@example.com", id),
		DisplayName: fmt.Sprintf("User %03d", idx),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserCreatedAt sets the created timestamp on the fixture.
func WithUserCreatedAt(t time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = t
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic room record.
type RoomFixture struct {
	ID          string
	Name        string
	Capacity    int
	Location    *string
	IsActive    bool
	IsAvailable bool
	Reason      *string
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:          id,
		Name:        fmt.Sprintf("Room %03d", idx),
		Capacity:    int(4 + idx%4),
		IsActive:    true,
		IsAvailable: true,
		CreatedBy:   "user-001",
		UpdatedBy:   "user-001",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomLocation sets the location on the fixture.
func WithRoomLocation(location string) RoomOption {
	return func(f *RoomFixture) {
		value := location
		f.Location = &value
	}
}

// WithRoomRetired marks the fixture as soft deleted with the given reason.
func WithRoomRetired(reason string) RoomOption {
	return func(f *RoomFixture) {
		f.IsActive = false
		f.IsAvailable = false
		value := reason
		f.Reason = &value
	}
}

// WithRoomUnavailable keeps the room active but administratively blocked.
func WithRoomUnavailable(reason string) RoomOption {
	return func(f *RoomFixture) {
		f.IsAvailable = false
		value := reason
		f.Reason = &value
	}
}

// WithRoomCreatedAt sets the created timestamp on the fixture.
func WithRoomCreatedAt(t time.Time) RoomOption {
	return func(f *RoomFixture) {
		f.CreatedAt = t
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:          f.ID,
		Name:        f.Name,
		Capacity:    f.Capacity,
		Location:    copyStringPtr(f.Location),
		IsActive:    f.IsActive,
		IsAvailable: f.IsAvailable,
		Reason:      copyStringPtr(f.Reason),
		CreatedBy:   f.CreatedBy,
		UpdatedBy:   f.UpdatedBy,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// --------------------------- Booking fixtures ----------------------------

// BookingFixture represents a deterministic booking record.
type BookingFixture struct {
	ID           string
	RoomID       string
	BookedByID   string
	Title        string
	StartAt      time.Time
	EndAt        time.Time
	Status       persistence.BookingStatus
	CancelledAt  *time.Time
	CancelReason *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a deterministic confirmed booking with optional
// overrides. Consecutive fixtures occupy consecutive hour slots and therefore
// never collide unless overridden.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	id := fmt.Sprintf("booking-%03d", idx)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := BookingFixture{
		ID:         id,
		RoomID:     "room-001",
		BookedByID: "user-001",
		Title:      fmt.Sprintf("Booking %03d", idx),
		StartAt:    start,
		EndAt:      start.Add(time.Hour),
		Status:     persistence.StatusConfirmed,
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingRoom sets the room the booking occupies.
func WithBookingRoom(roomID string) BookingOption {
	return func(f *BookingFixture) {
		f.RoomID = roomID
	}
}

// WithBookingUser sets the booker.
func WithBookingUser(userID string) BookingOption {
	return func(f *BookingFixture) {
		f.BookedByID = userID
	}
}

// WithBookingInterval sets the start and end instants.
func WithBookingInterval(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.StartAt = start
		f.EndAt = end
	}
}

// WithBookingStatus overrides the lifecycle status.
func WithBookingStatus(status persistence.BookingStatus) BookingOption {
	return func(f *BookingFixture) {
		f.Status = status
	}
}

// WithBookingCancelled marks the fixture cancelled at the given instant.
func WithBookingCancelled(at time.Time, reason string) BookingOption {
	return func(f *BookingFixture) {
		f.Status = persistence.StatusCancelled
		cancelled := at
		f.CancelledAt = &cancelled
		if reason != "" {
			value := reason
			f.CancelReason = &value
		}
	}
}

// Persistence returns the fixture as a persistence.Booking value.
func (f BookingFixture) Persistence() persistence.Booking {
	var cancelledAt *time.Time
	if f.CancelledAt != nil {
		t := *f.CancelledAt
		cancelledAt = &t
	}
	return persistence.Booking{
		ID:           f.ID,
		RoomID:       f.RoomID,
		BookedByID:   f.BookedByID,
		Title:        f.Title,
		StartAt:      f.StartAt,
		EndAt:        f.EndAt,
		Status:       f.Status,
		CancelledAt:  cancelledAt,
		CancelReason: copyStringPtr(f.CancelReason),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// helper to deep copy optional strings.
func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
