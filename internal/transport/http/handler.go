package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cwrk-planet/session-service/internal/domain"
	"github.com/cwrk-planet/session-service/internal/postgres"
	"github.com/cwrk-planet/session-service/internal/service"
	httpmw "github.com/cwrk-planet/session-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

type RoomReader interface {
	Snapshot(ctx context.Context, roomID string) (*service.RoomSnapshot, error)
	RoomIDs() []string
}

type CallCounter interface {
	ActiveCount() int
}

type JournalReader interface {
	History(ctx context.Context, roomID, cursor string, limit int) ([]domain.JournalEntry, string, error)
}

type Handler struct {
	rooms   RoomReader
	calls   CallCounter
	journal JournalReader // nil: журнал выключен
}

func NewHandler(rooms RoomReader, calls CallCounter, journal JournalReader) *Handler {
	return &Handler{rooms: rooms, calls: calls, journal: journal}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RoomsListResponse{
		Items:       h.rooms.RoomIDs(),
		ActiveCalls: h.calls.ActiveCount(),
	})
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := h.rooms.Snapshot(r.Context(), id)
	if err != nil {
		httpmw.L(r.Context()).Error("handler.GetRoom:", "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, RoomResponse{
		RoomID:       snap.RoomID,
		Participants: snap.Roster,
		Call:         snap.Call,
	})
}

// GET /rooms/{id}/events?cursor=&limit=
func (h *Handler) GetRoomEvents(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "journal disabled"})
		return
	}
	roomID := chi.URLParam(r, "id")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	items, next, err := h.journal.History(r.Context(), roomID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		httpmw.L(r.Context()).Error("handler.GetRoomEvents:", "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "journal unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, EventsResponse{
		Items: lo.Map(items, func(e domain.JournalEntry, _ int) EventItem {
			return EventItem{
				ID:           e.ID,
				Kind:         e.Kind,
				DisplayName:  e.DisplayName,
				ConnectionID: e.ConnID,
				At:           e.At.Truncate(time.Millisecond),
			}
		}),
		NextCursor: next,
	})
}
