package application

import "time"

// Actor identifies the user invoking a service method. Writes require a
// non-empty UserID; reads may run without one.
type Actor struct {
	UserID string
}

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	// StatusConfirmed marks a live booking occupying its slot.
	StatusConfirmed BookingStatus = "CONFIRMED"
	// StatusCancelled marks a booking withdrawn by a user. Terminal.
	StatusCancelled BookingStatus = "CANCELLED"
	// StatusReleasedNoShow marks a booking forfeited for missing check-in. Terminal.
	StatusReleasedNoShow BookingStatus = "RELEASED_NO_SHOW"
)

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name     string
	Capacity int
	Location *string
}

// Room represents a catalog entry for a bookable room.
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

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Actor Actor
	Input RoomInput
}

// RoomPatch carries optional room fields for an update. Nil fields and blank
// strings keep the existing value.
type RoomPatch struct {
	Name        *string
	Capacity    *int
	Location    *string
	IsAvailable *bool
	Reason      *string
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Actor  Actor
	RoomID string
	Patch  RoomPatch
}

// DeleteRoomParams wraps the data required to retire a room.
type DeleteRoomParams struct {
	Actor  Actor
	RoomID string
	Reason string
}

// ListRoomsParams wraps the optional filters for a room listing.
type ListRoomsParams struct {
	ActiveOnly  bool
	MinCapacity int
}

// SearchAvailableParams identifies the instant and minimum capacity for an
// availability search. Date is "2006-01-02" and Time is "15:04".
type SearchAvailableParams struct {
	Date        string
	Time        string
	MinCapacity int
}

// BookingInput captures caller provided booking fields. A nil Status defaults
// to CONFIRMED; non-confirmed creates record history without blocking the slot.
type BookingInput struct {
	RoomID  string
	Title   string
	StartAt time.Time
	EndAt   time.Time
	Status  *BookingStatus
}

// Booking represents a persisted booking joined with its room and booker.
type Booking struct {
	ID            string
	Room          RoomSummary
	BookedBy      UserSummary
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

// RoomSummary is the room projection embedded in booking results.
type RoomSummary struct {
	ID       string
	Name     string
	Capacity int
	Location *string
}

// UserSummary is the user projection embedded in booking results.
type UserSummary struct {
	ID          string
	Email       string
	DisplayName string
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Actor Actor
	Input BookingInput
}

// BookingPatch carries optional booking fields for an update. Nil fields keep
// the existing value, and a blank title keeps the existing title. A Status
// patch must follow the lifecycle state machine.
type BookingPatch struct {
	Title         *string
	StartAt       *time.Time
	EndAt         *time.Time
	Status        *BookingStatus
	ReleaseReason *string
}

// UpdateBookingParams wraps the data required to update a booking.
type UpdateBookingParams struct {
	Actor     Actor
	BookingID string
	Patch     BookingPatch
}

// CancelBookingParams wraps the data required to cancel a booking.
type CancelBookingParams struct {
	Actor     Actor
	BookingID string
	Reason    string
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email       string
	DisplayName string
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Input UserInput
}
