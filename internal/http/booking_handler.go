package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (application.Booking, error)
	ListBookings(ctx context.Context) ([]application.Booking, error)
	ListBookingsByRoom(ctx context.Context, roomID string) ([]application.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]application.Booking, error)
	UpdateBooking(ctx context.Context, params application.UpdateBookingParams) (application.Booking, error)
	CancelBooking(ctx context.Context, params application.CancelBookingParams) (application.Booking, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	actor, ok := ActorFromContext(r.Context())
	if !ok {
		h.log(r.Context(), "Create", "error_kind", "unauthorized").ErrorContext(r.Context(), "missing acting user for booking create")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingActor)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "actor_id", actor.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "actor_id", actor.UserID, "room_id", req.RoomID)

	booking, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Actor: actor,
		Input: req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", booking.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	booking, err := h.service.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.log(r.Context(), "Get", "booking_id", bookingID).ErrorContext(r.Context(), "booking fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	bookings, err := h.service.ListBookings(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(bookings)).InfoContext(r.Context(), "bookings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

func (h *BookingHandler) ListByRoom(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	logger := h.log(r.Context(), "ListByRoom", "room_id", roomID)
	bookings, err := h.service.ListBookingsByRoom(r.Context(), roomID)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(bookings)).InfoContext(r.Context(), "bookings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

func (h *BookingHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	logger := h.log(r.Context(), "ListByUser", "user_id", userID)
	bookings, err := h.service.ListBookingsByUser(r.Context(), userID)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(bookings)).InfoContext(r.Context(), "bookings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	actor, ok := ActorFromContext(r.Context())
	if !ok {
		h.log(r.Context(), "Update", "booking_id", bookingID, "error_kind", "unauthorized").ErrorContext(r.Context(), "missing acting user for booking update")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingActor)
		return
	}

	var req updateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "actor_id", actor.UserID, "booking_id", bookingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "actor_id", actor.UserID, "booking_id", bookingID)

	booking, err := h.service.UpdateBooking(r.Context(), application.UpdateBookingParams{
		Actor:     actor,
		BookingID: bookingID,
		Patch:     req.toPatch(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), "Cancel", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id for cancel")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	actor, ok := ActorFromContext(r.Context())
	if !ok {
		h.log(r.Context(), "Cancel", "booking_id", bookingID, "error_kind", "unauthorized").ErrorContext(r.Context(), "missing acting user for booking cancel")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingActor)
		return
	}

	// The body is optional: {"reason": "..."}.
	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log(r.Context(), "Cancel", "actor_id", actor.UserID, "booking_id", bookingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking cancel", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Cancel", "actor_id", actor.UserID, "booking_id", bookingID)

	booking, err := h.service.CancelBooking(r.Context(), application.CancelBookingParams{
		Actor:     actor,
		BookingID: bookingID,
		Reason:    strings.TrimSpace(req.Reason),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

type createBookingRequest struct {
	RoomID  string    `json:"roomId"`
	Title   string    `json:"title"`
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
	Status  *string   `json:"status"`
}

func (r createBookingRequest) toInput() application.BookingInput {
	input := application.BookingInput{
		RoomID:  strings.TrimSpace(r.RoomID),
		Title:   strings.TrimSpace(r.Title),
		StartAt: r.StartAt,
		EndAt:   r.EndAt,
	}
	if r.Status != nil {
		status := application.BookingStatus(strings.TrimSpace(*r.Status))
		input.Status = &status
	}
	return input
}

type updateBookingRequest struct {
	Title         *string    `json:"title"`
	StartAt       *time.Time `json:"startAt"`
	EndAt         *time.Time `json:"endAt"`
	Status        *string    `json:"status"`
	ReleaseReason *string    `json:"releaseReason"`
}

func (r updateBookingRequest) toPatch() application.BookingPatch {
	patch := application.BookingPatch{
		Title:         r.Title,
		StartAt:       r.StartAt,
		EndAt:         r.EndAt,
		ReleaseReason: r.ReleaseReason,
	}
	if r.Status != nil {
		status := application.BookingStatus(strings.TrimSpace(*r.Status))
		patch.Status = &status
	}
	return patch
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type bookingDTO struct {
	ID            string         `json:"id"`
	Room          roomSummaryDTO `json:"room"`
	BookedBy      userSummaryDTO `json:"bookedBy"`
	Title         string         `json:"title"`
	StartAt       string         `json:"startAt"`
	EndAt         string         `json:"endAt"`
	Status        string         `json:"status"`
	CancelledAt   *string        `json:"cancelledAt,omitempty"`
	CancelReason  *string        `json:"cancelReason,omitempty"`
	CheckedInAt   *string        `json:"checkedInAt,omitempty"`
	ReleasedAt    *string        `json:"releasedAt,omitempty"`
	ReleaseReason *string        `json:"releaseReason,omitempty"`
	CreatedAt     string         `json:"createdAt"`
	UpdatedAt     string         `json:"updatedAt"`
}

type roomSummaryDTO struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Capacity int     `json:"capacity"`
	Location *string `json:"location,omitempty"`
}

type userSummaryDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	return bookingDTO{
		ID: booking.ID,
		Room: roomSummaryDTO{
			ID:       booking.Room.ID,
			Name:     booking.Room.Name,
			Capacity: booking.Room.Capacity,
			Location: booking.Room.Location,
		},
		BookedBy: userSummaryDTO{
			ID:          booking.BookedBy.ID,
			Email:       booking.BookedBy.Email,
			DisplayName: booking.BookedBy.DisplayName,
		},
		Title:         booking.Title,
		StartAt:       formatInstant(booking.StartAt),
		EndAt:         formatInstant(booking.EndAt),
		Status:        string(booking.Status),
		CancelledAt:   formatOptionalInstant(booking.CancelledAt),
		CancelReason:  booking.CancelReason,
		CheckedInAt:   formatOptionalInstant(booking.CheckedInAt),
		ReleasedAt:    formatOptionalInstant(booking.ReleasedAt),
		ReleaseReason: booking.ReleaseReason,
		CreatedAt:     formatInstant(booking.CreatedAt),
		UpdatedAt:     formatInstant(booking.UpdatedAt),
	}
}

func toBookingDTOs(bookings []application.Booking) []bookingDTO {
	if len(bookings) == 0 {
		return nil
	}
	out := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toBookingDTO(booking))
	}
	return out
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalInstant(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := formatInstant(*t)
	return &formatted
}
