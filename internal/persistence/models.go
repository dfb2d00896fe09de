package persistence

import "time"

// BookingStatus enumerates the lifecycle states stored for a booking.
type BookingStatus string

const (
	// StatusConfirmed marks a live booking that blocks its room's time slot.
	StatusConfirmed BookingStatus = "CONFIRMED"
	// StatusCancelled marks a booking cancelled by its owner. Terminal.
	StatusCancelled BookingStatus = "CANCELLED"
	// StatusReleasedNoShow marks a booking released because nobody checked in. Terminal.
	StatusReleasedNoShow BookingStatus = "RELEASED_NO_SHOW"
)

// User represents a booking-creator account.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Room represents a bookable room. Rooms are never physically deleted;
// IsActive=false soft-deletes the row and IsAvailable=false blocks new
// bookings independently.
type Room struct {
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

// Booking represents a reservation of a room for a half-open [StartAt,EndAt) slot.
type Booking struct {
	ID            string
	RoomID        string
	BookedByID    string
	Title         string
	StartAt       time.Time
	EndAt         time.Time
	Status        BookingStatus
	CancelledAt   *time.Time
	CancelReason  *string
	CheckedInAt   *time.Time
	ReleasedAt    *time.Time
	ReleaseReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
