// Package http provides HTTP handlers and middleware for the room booking API.
//
// The router exposes the following endpoints:
//   - GET /rooms, POST /rooms, GET /rooms/{id}, PUT /rooms/{id},
//     DELETE /rooms/{id}: room catalog endpoints exchanging the `roomDTO`
//     payload defined in room_handler.go. Deleting retires the room; the
//     record stays readable through GET /rooms/{id}.
//   - GET /rooms/search?date=YYYY-MM-DD&time=HH:MM&capacity=N: availability
//     search returning the rooms free at the given instant, smallest
//     sufficient capacity first.
//   - GET /bookings, POST /bookings, GET /bookings/{id}, PUT /bookings/{id},
//     POST /bookings/{id}/cancel, GET /bookings/room/{roomId},
//     GET /bookings/user/{userId}: booking lifecycle endpoints exchanging the
//     `bookingDTO` payload defined in booking_handler.go.
//   - GET /users, POST /users, GET /users/{id}: user directory endpoints
//     exchanging the `userDTO` payload defined in user_handler.go.
//
// Mutating endpoints require the acting user's id in the X-User-ID header;
// identity is resolved upstream and trusted as-is. Request/response DTOs live
// alongside their respective handlers so tests and documentation share the
// same ground truth.
package http
