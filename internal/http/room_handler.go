package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (application.Room, error)
	UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (application.Room, error)
	DeleteRoom(ctx context.Context, params application.DeleteRoomParams) error
	GetRoom(ctx context.Context, roomID string) (application.Room, error)
	ListRooms(ctx context.Context, params application.ListRoomsParams) ([]application.Room, error)
	SearchAvailableRooms(ctx context.Context, params application.SearchAvailableParams) ([]application.Room, error)
}

type RoomHandler struct {
	service   roomService
	responder responder
	logger    *slog.Logger
}

func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	actor, ok := ActorFromContext(r.Context())
	if !ok {
		h.log(r.Context(), "Create", "error_kind", "unauthorized").ErrorContext(r.Context(), "missing acting user for room create")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingActor)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "actor_id", actor.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode room request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "actor_id", actor.UserID)

	room, err := h.service.CreateRoom(r.Context(), application.CreateRoomParams{
		Actor: actor,
		Input: req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "room creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("room_id", room.ID).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	actor, ok := ActorFromContext(r.Context())
	if !ok {
		h.log(r.Context(), "Update", "room_id", roomID, "error_kind", "unauthorized").ErrorContext(r.Context(), "missing acting user for room update")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingActor)
		return
	}

	var req updateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "actor_id", actor.UserID, "room_id", roomID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode room update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "actor_id", actor.UserID, "room_id", roomID)

	room, err := h.service.UpdateRoom(r.Context(), application.UpdateRoomParams{
		Actor:  actor,
		RoomID: roomID,
		Patch:  req.toPatch(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "room update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	actor, ok := ActorFromContext(r.Context())
	if !ok {
		h.log(r.Context(), "Delete", "room_id", roomID, "error_kind", "unauthorized").ErrorContext(r.Context(), "missing acting user for room delete")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingActor)
		return
	}

	// The body is optional: {"reason": "..."}.
	var req deleteRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log(r.Context(), "Delete", "actor_id", actor.UserID, "room_id", roomID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode room delete", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Delete", "actor_id", actor.UserID, "room_id", roomID)
	if err := h.service.DeleteRoom(r.Context(), application.DeleteRoomParams{
		Actor:  actor,
		RoomID: roomID,
		Reason: strings.TrimSpace(req.Reason),
	}); err != nil {
		logger.ErrorContext(r.Context(), "room delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room retired")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	room, err := h.service.GetRoom(r.Context(), roomID)
	if err != nil {
		h.log(r.Context(), "Get", "room_id", roomID).ErrorContext(r.Context(), "room fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	rooms, err := h.service.ListRooms(r.Context(), application.ListRoomsParams{ActiveOnly: true})
	if err != nil {
		logger.ErrorContext(r.Context(), "room list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rooms)).InfoContext(r.Context(), "rooms listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

func (h *RoomHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	params := application.SearchAvailableParams{
		Date: query.Get("date"),
		Time: query.Get("time"),
	}
	if raw := strings.TrimSpace(query.Get("capacity")); raw != "" {
		capacity, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("capacity must be an integer"))
			return
		}
		params.MinCapacity = capacity
	}

	logger := h.log(r.Context(), "Search", "date", params.Date, "time", params.Time)

	rooms, err := h.service.SearchAvailableRooms(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "room search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(rooms)).InfoContext(r.Context(), "rooms searched")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

type createRoomRequest struct {
	Name     string  `json:"name"`
	Capacity int     `json:"capacity"`
	Location *string `json:"location"`
}

func (r createRoomRequest) toInput() application.RoomInput {
	return application.RoomInput{
		Name:     strings.TrimSpace(r.Name),
		Capacity: r.Capacity,
		Location: r.Location,
	}
}

type updateRoomRequest struct {
	Name        *string `json:"name"`
	Capacity    *int    `json:"capacity"`
	Location    *string `json:"location"`
	IsAvailable *bool   `json:"isAvailable"`
	Reason      *string `json:"reason"`
}

func (r updateRoomRequest) toPatch() application.RoomPatch {
	return application.RoomPatch{
		Name:        r.Name,
		Capacity:    r.Capacity,
		Location:    r.Location,
		IsAvailable: r.IsAvailable,
		Reason:      r.Reason,
	}
}

type deleteRoomRequest struct {
	Reason string `json:"reason"`
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type roomDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Capacity    int     `json:"capacity"`
	Location    *string `json:"location,omitempty"`
	IsActive    bool    `json:"isActive"`
	IsAvailable bool    `json:"isAvailable"`
	Reason      *string `json:"reason,omitempty"`
	CreatedBy   string  `json:"createdBy"`
	UpdatedBy   string  `json:"updatedBy"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func toRoomDTO(room application.Room) roomDTO {
	return roomDTO{
		ID:          room.ID,
		Name:        room.Name,
		Capacity:    room.Capacity,
		Location:    room.Location,
		IsActive:    room.IsActive,
		IsAvailable: room.IsAvailable,
		Reason:      room.Reason,
		CreatedBy:   room.CreatedBy,
		UpdatedBy:   room.UpdatedBy,
		CreatedAt:   room.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   room.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toRoomDTOs(rooms []application.Room) []roomDTO {
	if len(rooms) == 0 {
		return nil
	}
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}
