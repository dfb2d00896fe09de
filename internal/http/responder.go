package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-booking/internal/application"
)

var (
	errBadRequestBody   = errors.New("the request body could not be parsed")
	errInvalidRoomID    = errors.New("a valid room id is required")
	errInvalidBookingID = errors.New("a valid booking id is required")
	errInvalidUserID    = errors.New("a valid user id is required")
	errMissingActor     = errors.New("the X-User-ID header is required for this operation")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_REQUIRED",
			Message:   errMissingActor.Error(),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.Is(err, application.ErrSlotUnavailable):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_UNAVAILABLE",
			Message:   "the room is already booked for the requested interval",
		})
	case errors.Is(err, application.ErrAlreadyCancelled):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_CANCELLED",
			Message:   "the booking has already been cancelled",
		})
	case errors.Is(err, application.ErrBookingReleased):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "BOOKING_RELEASED",
			Message:   "the booking was released for a missed check-in",
		})
	case errors.Is(err, application.ErrStatusTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "INVALID_TRANSITION",
			Message:   "the requested status change is not allowed",
		})
	case errors.Is(err, application.ErrRoomUnavailable):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ROOM_UNAVAILABLE",
			Message:   "the room is not available for booking",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "the request contains invalid fields",
				Errors:  vErr.FieldErrors,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"errorCode,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
