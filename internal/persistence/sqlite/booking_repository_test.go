package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/testfixtures"
)

type bookingRepoEnv struct {
	harness *testfixtures.SQLiteHarness
	room    persistence.Room
	other   persistence.Room
	booker  persistence.User
	slot    time.Time
}

func newBookingRepoEnv(t *testing.T) *bookingRepoEnv {
	t.Helper()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	booker := testfixtures.NewUserFixture().Persistence()
	require.NoError(t, harness.Users.CreateUser(ctx, booker))

	room := testfixtures.NewRoomFixture().Persistence()
	require.NoError(t, harness.Rooms.CreateRoom(ctx, room))

	other := testfixtures.NewRoomFixture().Persistence()
	require.NoError(t, harness.Rooms.CreateRoom(ctx, other))

	return &bookingRepoEnv{
		harness: harness,
		room:    room,
		other:   other,
		booker:  booker,
		slot:    time.Date(2026, time.April, 6, 9, 0, 0, 0, time.UTC),
	}
}

func (e *bookingRepoEnv) booking(opts ...testfixtures.BookingOption) persistence.Booking {
	base := []testfixtures.BookingOption{
		testfixtures.WithBookingRoom(e.room.ID),
		testfixtures.WithBookingUser(e.booker.ID),
	}
	return testfixtures.NewBookingFixture(append(base, opts...)...).Persistence()
}

func TestBookingRepositoryCreateAndGet(t *testing.T) {
	env := newBookingRepoEnv(t)
	ctx := context.Background()

	booking := env.booking(testfixtures.WithBookingInterval(env.slot, env.slot.Add(time.Hour)))
	require.NoError(t, env.harness.Bookings.CreateBooking(ctx, booking))

	got, err := env.harness.Bookings.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)
	assert.Equal(t, env.room.ID, got.RoomID)
	assert.Equal(t, env.booker.ID, got.BookedByID)
	assert.Equal(t, persistence.StatusConfirmed, got.Status)
	assert.True(t, got.StartAt.Equal(env.slot))
	assert.True(t, got.EndAt.Equal(env.slot.Add(time.Hour)))
	assert.Nil(t, got.CancelledAt)
	assert.Nil(t, got.CheckedInAt)
	assert.Nil(t, got.ReleasedAt)
}

func TestBookingRepositoryPreservesSubSecondPrecision(t *testing.T) {
	env := newBookingRepoEnv(t)
	ctx := context.Background()

	start := env.slot.Add(500 * time.Millisecond)
	end := env.slot.Add(30*time.Minute + 250*time.Nanosecond)
	booking := env.booking(testfixtures.WithBookingInterval(start, end))
	require.NoError(t, env.harness.Bookings.CreateBooking(ctx, booking))

	got, err := env.harness.Bookings.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.True(t, got.StartAt.Equal(start), "start changed: stored %v, got %v", start, got.StartAt)
	assert.True(t, got.EndAt.Equal(end), "end changed: stored %v, got %v", end, got.EndAt)
}

func TestBookingRepositoryConcurrentCreates(t *testing.T) {
	env := newBookingRepoEnv(t)
	ctx := context.Background()

	const writers = 8
	release := make(chan struct{})
	results := make(chan error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		booking := env.booking(testfixtures.WithBookingInterval(env.slot, env.slot.Add(time.Hour)))
		wg.Add(1)
		go func(b persistence.Booking) {
			defer wg.Done()
			<-release
			results <- env.harness.Bookings.CreateBooking(ctx, b)
		}(booking)
	}
	close(release)
	wg.Wait()
	close(results)

	var winners, losers int
	for err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, persistence.ErrConflict):
			losers++
		default:
			t.Fatalf("unexpected error from concurrent create: %v", err)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, writers-1, losers)
}

func TestBookingRepositoryConflictChecks(t *testing.T) {
	env := newBookingRepoEnv(t)
	ctx := context.Background()

	existing := env.booking(testfixtures.WithBookingInterval(env.slot, env.slot.Add(time.Hour)))
	require.NoError(t, env.harness.Bookings.CreateBooking(ctx, existing))

	t.Run("overlapping confirmed booking is rejected", func(t *testing.T) {
		overlapping := env.booking(testfixtures.WithBookingInterval(
			env.slot.Add(30*time.Minute), env.slot.Add(90*time.Minute),
		))
		err := env.harness.Bookings.CreateBooking(ctx, overlapping)
		require.ErrorIs(t, err, persistence.ErrConflict)

		_, err = env.harness.Bookings.GetBooking(ctx, overlapping.ID)
		require.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("back to back bookings are accepted", func(t *testing.T) {
		adjacent := env.booking(testfixtures.WithBookingInterval(
			env.slot.Add(time.Hour), env.slot.Add(2*time.Hour),
		))
		require.NoError(t, env.harness.Bookings.CreateBooking(ctx, adjacent))
	})

	t.Run("other rooms are unaffected", func(t *testing.T) {
		elsewhere := env.booking(
			testfixtures.WithBookingRoom(env.other.ID),
			testfixtures.WithBookingInterval(env.slot, env.slot.Add(time.Hour)),
		)
		require.NoError(t, env.harness.Bookings.CreateBooking(ctx, elsewhere))
	})

	t.Run("cancelled booking does not block the slot", func(t *testing.T) {
		lateSlot := env.slot.Add(6 * time.Hour)
		cancelled := env.booking(
			testfixtures.WithBookingInterval(lateSlot, lateSlot.Add(time.Hour)),
			testfixtures.WithBookingCancelled(lateSlot, "plans changed"),
		)
		require.NoError(t, env.harness.Bookings.CreateBooking(ctx, cancelled))

		replacement := env.booking(testfixtures.WithBookingInterval(lateSlot, lateSlot.Add(time.Hour)))
		require.NoError(t, env.harness.Bookings.CreateBooking(ctx, replacement))
	})

	t.Run("inverted interval is rejected", func(t *testing.T) {
		inverted := env.booking(testfixtures.WithBookingInterval(
			env.slot.Add(time.Hour), env.slot,
		))
		err := env.harness.Bookings.CreateBooking(ctx, inverted)
		require.ErrorIs(t, err, persistence.ErrConstraintViolation)
	})

	t.Run("unknown room fails the foreign key", func(t *testing.T) {
		ghostSlot := env.slot.Add(24 * time.Hour)
		ghost := env.booking(
			testfixtures.WithBookingRoom("room-ghost"),
			testfixtures.WithBookingInterval(ghostSlot, ghostSlot.Add(time.Hour)),
		)
		err := env.harness.Bookings.CreateBooking(ctx, ghost)
		require.ErrorIs(t, err, persistence.ErrForeignKeyViolation)
	})
}

func TestBookingRepositoryUpdate(t *testing.T) {
	env := newBookingRepoEnv(t)
	ctx := context.Background()

	first := env.booking(testfixtures.WithBookingInterval(env.slot, env.slot.Add(time.Hour)))
	require.NoError(t, env.harness.Bookings.CreateBooking(ctx, first))

	second := env.booking(testfixtures.WithBookingInterval(
		env.slot.Add(2*time.Hour), env.slot.Add(3*time.Hour),
	))
	require.NoError(t, env.harness.Bookings.CreateBooking(ctx, second))

	t.Run("a booking may shrink within its own slot", func(t *testing.T) {
		first.StartAt = env.slot.Add(15 * time.Minute)
		require.NoError(t, env.harness.Bookings.UpdateBooking(ctx, first))

		got, err := env.harness.Bookings.GetBooking(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, got.StartAt.Equal(env.slot.Add(15*time.Minute)))
	})

	t.Run("moving onto an occupied slot is rejected", func(t *testing.T) {
		moved := first
		moved.StartAt = env.slot.Add(2 * time.Hour)
		moved.EndAt = env.slot.Add(3 * time.Hour)
		err := env.harness.Bookings.UpdateBooking(ctx, moved)
		require.ErrorIs(t, err, persistence.ErrConflict)

		got, err := env.harness.Bookings.GetBooking(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, got.StartAt.Equal(env.slot.Add(15*time.Minute)))
	})

	t.Run("cancellation skips the overlap check", func(t *testing.T) {
		second.Status = persistence.StatusCancelled
		cancelledAt := env.slot
		second.CancelledAt = &cancelledAt
		require.NoError(t, env.harness.Bookings.UpdateBooking(ctx, second))

		got, err := env.harness.Bookings.GetBooking(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, persistence.StatusCancelled, got.Status)
		require.NotNil(t, got.CancelledAt)
	})

	t.Run("updating a missing booking reports not found", func(t *testing.T) {
		missing := env.booking(testfixtures.WithBookingID("booking-missing"))
		err := env.harness.Bookings.UpdateBooking(ctx, missing)
		require.ErrorIs(t, err, persistence.ErrNotFound)
	})
}

func TestBookingRepositoryHasOverlap(t *testing.T) {
	env := newBookingRepoEnv(t)
	ctx := context.Background()

	booking := env.booking(testfixtures.WithBookingInterval(env.slot, env.slot.Add(time.Hour)))
	require.NoError(t, env.harness.Bookings.CreateBooking(ctx, booking))

	taken, err := env.harness.Bookings.HasOverlap(ctx, env.room.ID, env.slot.Add(30*time.Minute), env.slot.Add(2*time.Hour), "")
	require.NoError(t, err)
	assert.True(t, taken)

	free, err := env.harness.Bookings.HasOverlap(ctx, env.room.ID, env.slot.Add(time.Hour), env.slot.Add(2*time.Hour), "")
	require.NoError(t, err)
	assert.False(t, free)

	self, err := env.harness.Bookings.HasOverlap(ctx, env.room.ID, env.slot, env.slot.Add(time.Hour), booking.ID)
	require.NoError(t, err)
	assert.False(t, self)
}

func TestBookingRepositoryListBookings(t *testing.T) {
	env := newBookingRepoEnv(t)
	ctx := context.Background()

	second := testfixtures.NewUserFixture().Persistence()
	require.NoError(t, env.harness.Users.CreateUser(ctx, second))

	morning := env.booking(testfixtures.WithBookingInterval(env.slot, env.slot.Add(time.Hour)))
	afternoon := env.booking(testfixtures.WithBookingInterval(
		env.slot.Add(5*time.Hour), env.slot.Add(6*time.Hour),
	))
	elsewhere := env.booking(
		testfixtures.WithBookingRoom(env.other.ID),
		testfixtures.WithBookingUser(second.ID),
		testfixtures.WithBookingInterval(env.slot, env.slot.Add(time.Hour)),
	)
	cancelledAt := env.slot
	cancelled := env.booking(
		testfixtures.WithBookingInterval(env.slot.Add(8*time.Hour), env.slot.Add(9*time.Hour)),
		testfixtures.WithBookingCancelled(cancelledAt, ""),
	)

	for _, b := range []persistence.Booking{morning, afternoon, elsewhere, cancelled} {
		require.NoError(t, env.harness.Bookings.CreateBooking(ctx, b))
	}

	t.Run("default order is start descending", func(t *testing.T) {
		bookings, err := env.harness.Bookings.ListBookings(ctx, persistence.BookingFilter{RoomID: env.room.ID})
		require.NoError(t, err)
		require.Len(t, bookings, 3)
		assert.Equal(t, cancelled.ID, bookings[0].ID)
		assert.Equal(t, afternoon.ID, bookings[1].ID)
		assert.Equal(t, morning.ID, bookings[2].ID)
	})

	t.Run("confirmed only ascending", func(t *testing.T) {
		bookings, err := env.harness.Bookings.ListBookings(ctx, persistence.BookingFilter{
			RoomID:         env.room.ID,
			ConfirmedOnly:  true,
			OrderAscending: true,
		})
		require.NoError(t, err)
		require.Len(t, bookings, 2)
		assert.Equal(t, morning.ID, bookings[0].ID)
		assert.Equal(t, afternoon.ID, bookings[1].ID)
	})

	t.Run("filter by booker", func(t *testing.T) {
		bookings, err := env.harness.Bookings.ListBookings(ctx, persistence.BookingFilter{BookedByID: second.ID})
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, elsewhere.ID, bookings[0].ID)
	})
}
