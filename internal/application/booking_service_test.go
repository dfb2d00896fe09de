package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/memory"
)

type bookingHarness struct {
	store *memory.Store
	svc   *BookingService
	now   time.Time
	slot  time.Time
}

func newBookingHarness(t *testing.T) *bookingHarness {
	t.Helper()

	store := memory.NewStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := &bookingHarness{
		store: store,
		svc: NewBookingService(store, store, store, sequentialIDs("booking"), func() time.Time {
			return now
		}),
		now:  now,
		slot: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}

	ctx := context.Background()
	for _, user := range []persistence.User{
		{ID: "user-1", Email: "mori@example.com", DisplayName: "Mori", CreatedAt: now, UpdatedAt: now},
		{ID: "user-2", Email: "sato@example.com", DisplayName: "Sato", CreatedAt: now.Add(time.Minute), UpdatedAt: now.Add(time.Minute)},
	} {
		if err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("seed user %s: %v", user.ID, err)
		}
	}
	for _, room := range []persistence.Room{
		{ID: "room-1", Name: "Orion", Capacity: 4, IsActive: true, IsAvailable: true, CreatedBy: "user-1", UpdatedBy: "user-1", CreatedAt: now, UpdatedAt: now},
		{ID: "room-2", Name: "Vega", Capacity: 8, IsActive: true, IsAvailable: true, CreatedBy: "user-1", UpdatedBy: "user-1", CreatedAt: now, UpdatedAt: now},
	} {
		if err := store.CreateRoom(ctx, room); err != nil {
			t.Fatalf("seed room %s: %v", room.ID, err)
		}
	}

	return h
}

// failingBookingStore simulates an unprovisioned store underneath an
// otherwise healthy repository set.
type failingBookingStore struct {
	*memory.Store
}

func (f *failingBookingStore) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	return persistence.ErrSchemaMissing
}

func (h *bookingHarness) create(t *testing.T, userID, roomID string, start, end time.Time) Booking {
	t.Helper()
	booking, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{
		Actor: Actor{UserID: userID},
		Input: BookingInput{RoomID: roomID, Title: "Sync", StartAt: start, EndAt: end},
	})
	if err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}
	return booking
}

func TestBookingService_CreateBooking(t *testing.T) {
	t.Run("requires an acting user", func(t *testing.T) {
		h := newBookingHarness(t)

		_, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{
			Input: BookingInput{RoomID: "room-1", Title: "Sync", StartAt: h.slot, EndAt: h.slot.Add(time.Hour)},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates required attributes", func(t *testing.T) {
		h := newBookingHarness(t)

		_, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{
			Actor: Actor{UserID: "user-1"},
			Input: BookingInput{Title: "  "},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"roomId", "title", "startAt", "endAt"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("store failures surface as integrity errors", func(t *testing.T) {
		h := newBookingHarness(t)
		svc := NewBookingService(&failingBookingStore{Store: h.store}, h.store, h.store, sequentialIDs("booking"), func() time.Time {
			return h.now
		})

		_, err := svc.CreateBooking(context.Background(), CreateBookingParams{
			Actor: Actor{UserID: "user-1"},
			Input: BookingInput{RoomID: "room-1", Title: "Sync", StartAt: h.slot, EndAt: h.slot.Add(time.Hour)},
		})

		var intErr *IntegrityError
		if !errors.As(err, &intErr) {
			t.Fatalf("expected IntegrityError, got %v", err)
		}
		if !errors.Is(err, persistence.ErrSchemaMissing) {
			t.Fatalf("expected wrapped ErrSchemaMissing, got %v", err)
		}
		if kind := ErrorKind(err); kind != "integrity" {
			t.Fatalf("expected integrity kind, got %q", kind)
		}
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		h := newBookingHarness(t)

		status := BookingStatus("ARCHIVED")
		_, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{
			Actor: Actor{UserID: "user-1"},
			Input: BookingInput{RoomID: "room-1", Title: "Sync", StartAt: h.slot, EndAt: h.slot.Add(time.Hour), Status: &status},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["status"]; !ok {
			t.Fatalf("expected status validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("a cancelled create records history without blocking the slot", func(t *testing.T) {
		h := newBookingHarness(t)

		status := StatusCancelled
		cancelled, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{
			Actor: Actor{UserID: "user-1"},
			Input: BookingInput{RoomID: "room-1", Title: "Abandoned", StartAt: h.slot, EndAt: h.slot.Add(time.Hour), Status: &status},
		})
		if err != nil {
			t.Fatalf("CreateBooking returned error: %v", err)
		}
		if cancelled.Status != StatusCancelled {
			t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
		}

		h.create(t, "user-2", "room-1", h.slot, h.slot.Add(time.Hour))
	})

	t.Run("rejects inverted intervals", func(t *testing.T) {
		h := newBookingHarness(t)

		_, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{
			Actor: Actor{UserID: "user-1"},
			Input: BookingInput{RoomID: "room-1", Title: "Sync", StartAt: h.slot.Add(time.Hour), EndAt: h.slot},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["endAt"]; !ok {
			t.Fatalf("expected endAt validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects starts in the past", func(t *testing.T) {
		h := newBookingHarness(t)

		start := h.now.Add(-time.Hour)
		_, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{
			Actor: Actor{UserID: "user-1"},
			Input: BookingInput{RoomID: "room-1", Title: "Sync", StartAt: start, EndAt: start.Add(time.Hour)},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["startAt"]; !ok {
			t.Fatalf("expected startAt validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("unknown room is not found", func(t *testing.T) {
		h := newBookingHarness(t)

		_, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{
			Actor: Actor{UserID: "user-1"},
			Input: BookingInput{RoomID: "missing", Title: "Sync", StartAt: h.slot, EndAt: h.slot.Add(time.Hour)},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unavailable rooms cannot be booked", func(t *testing.T) {
		h := newBookingHarness(t)
		ctx := context.Background()

		room, err := h.store.GetRoom(ctx, "room-1")
		if err != nil {
			t.Fatalf("GetRoom returned error: %v", err)
		}
		room.IsAvailable = false
		if err := h.store.UpdateRoom(ctx, room); err != nil {
			t.Fatalf("UpdateRoom returned error: %v", err)
		}

		_, err = h.svc.CreateBooking(ctx, CreateBookingParams{
			Actor: Actor{UserID: "user-1"},
			Input: BookingInput{RoomID: "room-1", Title: "Sync", StartAt: h.slot, EndAt: h.slot.Add(time.Hour)},
		})
		if !errors.Is(err, ErrRoomUnavailable) {
			t.Fatalf("expected ErrRoomUnavailable, got %v", err)
		}
	})

	t.Run("returns the booking joined with room and booker", func(t *testing.T) {
		h := newBookingHarness(t)

		booking := h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))

		if booking.Status != StatusConfirmed {
			t.Fatalf("expected CONFIRMED, got %s", booking.Status)
		}
		if booking.Room.Name != "Orion" || booking.BookedBy.DisplayName != "Mori" {
			t.Fatalf("summaries not joined: %+v", booking)
		}
		if !booking.StartAt.Equal(h.slot) || !booking.EndAt.Equal(h.slot.Add(time.Hour)) {
			t.Fatalf("interval not preserved: %+v", booking)
		}
	})

	t.Run("overlapping slot is unavailable", func(t *testing.T) {
		h := newBookingHarness(t)
		h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))

		_, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{
			Actor: Actor{UserID: "user-2"},
			Input: BookingInput{RoomID: "room-1", Title: "Standup", StartAt: h.slot.Add(30 * time.Minute), EndAt: h.slot.Add(90 * time.Minute)},
		})
		if !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
	})

	t.Run("back to back bookings share a boundary", func(t *testing.T) {
		h := newBookingHarness(t)
		h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))
		h.create(t, "user-2", "room-1", h.slot.Add(time.Hour), h.slot.Add(2*time.Hour))
	})

	t.Run("other rooms are unaffected", func(t *testing.T) {
		h := newBookingHarness(t)
		h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))
		h.create(t, "user-2", "room-2", h.slot, h.slot.Add(time.Hour))
	})
}

func TestBookingService_CancelBooking(t *testing.T) {
	t.Run("cancels and records the reason", func(t *testing.T) {
		h := newBookingHarness(t)
		booking := h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))

		cancelled, err := h.svc.CancelBooking(context.Background(), CancelBookingParams{
			Actor:     Actor{UserID: "user-1"},
			BookingID: booking.ID,
			Reason:    "meeting moved",
		})
		if err != nil {
			t.Fatalf("CancelBooking returned error: %v", err)
		}

		if cancelled.Status != StatusCancelled {
			t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
		}
		if cancelled.CancelledAt == nil || !cancelled.CancelledAt.Equal(h.now) {
			t.Fatalf("cancelledAt not recorded: %+v", cancelled.CancelledAt)
		}
		if cancelled.CancelReason == nil || *cancelled.CancelReason != "meeting moved" {
			t.Fatalf("reason not recorded: %+v", cancelled.CancelReason)
		}
	})

	t.Run("second cancel is rejected and status stays terminal", func(t *testing.T) {
		h := newBookingHarness(t)
		booking := h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))
		ctx := context.Background()

		params := CancelBookingParams{Actor: Actor{UserID: "user-1"}, BookingID: booking.ID}
		if _, err := h.svc.CancelBooking(ctx, params); err != nil {
			t.Fatalf("CancelBooking returned error: %v", err)
		}
		if _, err := h.svc.CancelBooking(ctx, params); !errors.Is(err, ErrAlreadyCancelled) {
			t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
		}

		got, err := h.svc.GetBooking(ctx, booking.ID)
		if err != nil {
			t.Fatalf("GetBooking returned error: %v", err)
		}
		if got.Status != StatusCancelled {
			t.Fatalf("terminal status disturbed: %s", got.Status)
		}
	})

	t.Run("cancelling frees the slot", func(t *testing.T) {
		h := newBookingHarness(t)
		booking := h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))
		ctx := context.Background()

		if _, err := h.svc.CancelBooking(ctx, CancelBookingParams{
			Actor:     Actor{UserID: "user-1"},
			BookingID: booking.ID,
		}); err != nil {
			t.Fatalf("CancelBooking returned error: %v", err)
		}

		h.create(t, "user-2", "room-1", h.slot, h.slot.Add(time.Hour))
	})

	t.Run("released bookings cannot be cancelled", func(t *testing.T) {
		h := newBookingHarness(t)
		booking := h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))
		ctx := context.Background()

		released := StatusReleasedNoShow
		if _, err := h.svc.UpdateBooking(ctx, UpdateBookingParams{
			Actor:     Actor{UserID: "user-1"},
			BookingID: booking.ID,
			Patch:     BookingPatch{Status: &released},
		}); err != nil {
			t.Fatalf("UpdateBooking returned error: %v", err)
		}

		_, err := h.svc.CancelBooking(ctx, CancelBookingParams{
			Actor:     Actor{UserID: "user-1"},
			BookingID: booking.ID,
		})
		if !errors.Is(err, ErrBookingReleased) {
			t.Fatalf("expected ErrBookingReleased, got %v", err)
		}
	})
}

func TestBookingService_UpdateBooking(t *testing.T) {
	t.Run("merges the unpatched interval side", func(t *testing.T) {
		h := newBookingHarness(t)
		h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))
		second := h.create(t, "user-2", "room-1", h.slot.Add(2*time.Hour), h.slot.Add(3*time.Hour))

		// Pull the second booking's start onto the first one; its stored end
		// stays in place and the merged interval must collide.
		newStart := h.slot.Add(30 * time.Minute)
		_, err := h.svc.UpdateBooking(context.Background(), UpdateBookingParams{
			Actor:     Actor{UserID: "user-2"},
			BookingID: second.ID,
			Patch:     BookingPatch{StartAt: &newStart},
		})
		if !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
	})

	t.Run("own interval does not conflict with itself", func(t *testing.T) {
		h := newBookingHarness(t)
		booking := h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))

		newEnd := h.slot.Add(90 * time.Minute)
		updated, err := h.svc.UpdateBooking(context.Background(), UpdateBookingParams{
			Actor:     Actor{UserID: "user-1"},
			BookingID: booking.ID,
			Patch:     BookingPatch{EndAt: &newEnd},
		})
		if err != nil {
			t.Fatalf("UpdateBooking returned error: %v", err)
		}
		if !updated.EndAt.Equal(newEnd) {
			t.Fatalf("end not updated: %+v", updated.EndAt)
		}
	})

	t.Run("blank title keeps the stored title", func(t *testing.T) {
		h := newBookingHarness(t)
		booking := h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))

		blank := "   "
		updated, err := h.svc.UpdateBooking(context.Background(), UpdateBookingParams{
			Actor:     Actor{UserID: "user-1"},
			BookingID: booking.ID,
			Patch:     BookingPatch{Title: &blank},
		})
		if err != nil {
			t.Fatalf("UpdateBooking returned error: %v", err)
		}
		if updated.Title != "Sync" {
			t.Fatalf("blank title patch must keep stored title, got %q", updated.Title)
		}
	})

	t.Run("release patch records audit fields", func(t *testing.T) {
		h := newBookingHarness(t)
		booking := h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))

		released := StatusReleasedNoShow
		reason := "no check-in"
		updated, err := h.svc.UpdateBooking(context.Background(), UpdateBookingParams{
			Actor:     Actor{UserID: "user-1"},
			BookingID: booking.ID,
			Patch:     BookingPatch{Status: &released, ReleaseReason: &reason},
		})
		if err != nil {
			t.Fatalf("UpdateBooking returned error: %v", err)
		}

		if updated.Status != StatusReleasedNoShow {
			t.Fatalf("expected RELEASED_NO_SHOW, got %s", updated.Status)
		}
		if updated.ReleasedAt == nil || !updated.ReleasedAt.Equal(h.now) {
			t.Fatalf("releasedAt not recorded: %+v", updated.ReleasedAt)
		}
		if updated.ReleaseReason == nil || *updated.ReleaseReason != "no check-in" {
			t.Fatalf("release reason not recorded: %+v", updated.ReleaseReason)
		}
	})

	t.Run("unknown status target is rejected", func(t *testing.T) {
		h := newBookingHarness(t)
		booking := h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))

		bogus := BookingStatus("ARCHIVED")
		_, err := h.svc.UpdateBooking(context.Background(), UpdateBookingParams{
			Actor:     Actor{UserID: "user-1"},
			BookingID: booking.ID,
			Patch:     BookingPatch{Status: &bogus},
		})
		if !errors.Is(err, ErrStatusTransition) {
			t.Fatalf("expected ErrStatusTransition, got %v", err)
		}
	})

	t.Run("cancelled bookings cannot be updated", func(t *testing.T) {
		h := newBookingHarness(t)
		booking := h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))
		ctx := context.Background()

		if _, err := h.svc.CancelBooking(ctx, CancelBookingParams{
			Actor:     Actor{UserID: "user-1"},
			BookingID: booking.ID,
		}); err != nil {
			t.Fatalf("CancelBooking returned error: %v", err)
		}

		newEnd := h.slot.Add(2 * time.Hour)
		_, err := h.svc.UpdateBooking(ctx, UpdateBookingParams{
			Actor:     Actor{UserID: "user-1"},
			BookingID: booking.ID,
			Patch:     BookingPatch{EndAt: &newEnd},
		})
		if !errors.Is(err, ErrAlreadyCancelled) {
			t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
		}
	})
}

func TestBookingService_Listings(t *testing.T) {
	h := newBookingHarness(t)
	ctx := context.Background()

	early := h.create(t, "user-1", "room-1", h.slot, h.slot.Add(time.Hour))
	late := h.create(t, "user-2", "room-1", h.slot.Add(2*time.Hour), h.slot.Add(3*time.Hour))
	other := h.create(t, "user-1", "room-2", h.slot.Add(4*time.Hour), h.slot.Add(5*time.Hour))

	if _, err := h.svc.CancelBooking(ctx, CancelBookingParams{
		Actor:     Actor{UserID: "user-1"},
		BookingID: other.ID,
	}); err != nil {
		t.Fatalf("CancelBooking returned error: %v", err)
	}

	t.Run("by room returns confirmed ascending", func(t *testing.T) {
		bookings, err := h.svc.ListBookingsByRoom(ctx, "room-1")
		if err != nil {
			t.Fatalf("ListBookingsByRoom returned error: %v", err)
		}
		if len(bookings) != 2 || bookings[0].ID != early.ID || bookings[1].ID != late.ID {
			t.Fatalf("unexpected result: %+v", bookings)
		}
	})

	t.Run("by user includes every status, newest first", func(t *testing.T) {
		bookings, err := h.svc.ListBookingsByUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("ListBookingsByUser returned error: %v", err)
		}
		if len(bookings) != 2 || bookings[0].ID != other.ID || bookings[1].ID != early.ID {
			t.Fatalf("unexpected result: %+v", bookings)
		}
		if bookings[0].Status != StatusCancelled {
			t.Fatalf("cancelled bookings must appear in user history: %+v", bookings[0])
		}
	})

	t.Run("unknown room is not found", func(t *testing.T) {
		if _, err := h.svc.ListBookingsByRoom(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		if _, err := h.svc.ListBookingsByUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
