package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cwrk-planet/session-service/internal/call"
	"github.com/cwrk-planet/session-service/internal/domain"
	"github.com/cwrk-planet/session-service/internal/postgres"
	"github.com/cwrk-planet/session-service/internal/registry"
	"github.com/cwrk-planet/session-service/internal/service"

	"github.com/stretchr/testify/require"
)

// liveAll: Notifier без транспорта: все соединения считаются живыми.
type liveAll struct{}

func (liveAll) Subscribe(string, domain.ConnID) {}
func (liveAll) Unsubscribe(string, domain.ConnID) {}
func (liveAll) Broadcast(string, domain.Event, domain.ConnID) {}
func (liveAll) Send(domain.ConnID, domain.Event) bool { return true }
func (liveAll) IsLive(domain.ConnID) bool { return true }

type stubJournal struct {
	entries []domain.JournalEntry
	next    string
	err     error
}

func (j stubJournal) History(_ context.Context, roomID, cursor string, limit int) ([]domain.JournalEntry, string, error) {
	return j.entries, j.next, j.err
}

func newTestRouter(t *testing.T, journal JournalReader) (http.Handler, *service.MemberService) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	calls := service.NewCallService(call.NewManager(nil), liveAll{}, nil, log)
	members := service.NewMemberService(service.Deps{
		Registry: registry.New(),
		Calls:    calls,
		Notifier: liveAll{},
		Logger:   log,
	})
	h := NewHandler(members, calls, journal)
	return NewRouter(RouterDeps{Handler: h, Logger: log}), members
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := do(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestGetRoom_Snapshot(t *testing.T) {
	req := require.New(t)
	h, members := newTestRouter(t, nil)
	ctx := context.Background()

	_, err := members.Join(ctx, "room1", "alice", "c1")
	req.NoError(err)
	_, err = members.Join(ctx, "room1", "bob", "c2")
	req.NoError(err)
	members.Disconnect(ctx, "c2")

	rec := do(t, h, "/rooms/room1")
	req.Equal(http.StatusOK, rec.Code)
	req.Equal("application/json", rec.Header().Get("Content-Type"))

	var resp RoomResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	req.Equal("room1", resp.RoomID)
	req.Len(resp.Participants, 2)
	byName := map[string]domain.ParticipantView{}
	for _, p := range resp.Participants {
		byName[p.DisplayName] = p
	}
	req.Equal(domain.StatusOnline, byName["alice"].Status)
	req.Equal(domain.ConnID("c1"), byName["alice"].ConnectionID)
	req.Equal(domain.StatusOffline, byName["bob"].Status)
	req.Empty(byName["bob"].ConnectionID)
	req.Nil(resp.Call)

	rec = do(t, h, "/rooms/")
	req.Equal(http.StatusOK, rec.Code)
	var list RoomsListResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	req.Equal([]string{"room1"}, list.Items)
}

func TestGetRoom_UnknownIsEmpty(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := do(t, h, "/rooms/nowhere")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"roomId":"nowhere","participants":[]}`, rec.Body.String())
}

func TestGetRoomEvents(t *testing.T) {
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		journal JournalReader
		status  int
	}{
		{"disabled", nil, http.StatusNotImplemented},
		{"bad cursor", stubJournal{err: fmt.Errorf("x: %w", postgres.ErrInvalidCursor)}, http.StatusBadRequest},
		{"db error", stubJournal{err: errors.New("conn refused")}, http.StatusInternalServerError},
		{"ok", stubJournal{
			entries: []domain.JournalEntry{{ID: "e1", RoomID: "room1", Kind: domain.JournalJoined, DisplayName: "alice", ConnID: "c1", At: at}},
			next:    "abc",
		}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newTestRouter(t, tc.journal)
			rec := do(t, h, "/rooms/room1/events?limit=10")
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.status != http.StatusOK {
				return
			}
			var resp EventsResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, "abc", resp.NextCursor)
			require.Len(t, resp.Items, 1)
			require.Equal(t, domain.JournalJoined, resp.Items[0].Kind)
			require.True(t, at.Equal(resp.Items[0].At))
		})
	}
}
