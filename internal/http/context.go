package http

import (
	"context"
	"log/slog"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/logging"
)

type contextKey string

const (
	actorContextKey     contextKey = "actor"
	roomIDContextKey    contextKey = "room_id"
	bookingIDContextKey contextKey = "booking_id"
	userIDContextKey    contextKey = "user_id"
)

// ContextWithActor returns a derived context carrying the resolved acting user.
func ContextWithActor(ctx context.Context, actor application.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext extracts the acting user from context if available.
func ActorFromContext(ctx context.Context) (application.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(application.Actor)
	return actor, ok
}

// ContextWithRoomID injects the room identifier resolved from the request path.
func ContextWithRoomID(ctx context.Context, roomID string) context.Context {
	return context.WithValue(ctx, roomIDContextKey, roomID)
}

// RoomIDFromContext extracts a room identifier previously associated with the context.
func RoomIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(roomIDContextKey).(string)
	return id, ok
}

// ContextWithBookingID injects the booking identifier resolved from the request path.
func ContextWithBookingID(ctx context.Context, bookingID string) context.Context {
	return context.WithValue(ctx, bookingIDContextKey, bookingID)
}

// BookingIDFromContext extracts a booking identifier previously associated with the context.
func BookingIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(bookingIDContextKey).(string)
	return id, ok
}

// ContextWithUserID injects the user identifier resolved from the request path.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext extracts a user identifier previously associated with the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger to the context so the
// application layer picks it up as well.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request scoped logger if one is attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
