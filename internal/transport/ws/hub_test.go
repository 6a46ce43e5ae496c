package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/cwrk-planet/session-service/internal/domain"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id   domain.ConnID
	mu   sync.Mutex
	msgs []Message
	full bool
}

func (c *fakeConn) ID() domain.ConnID { return c.id }

func (c *fakeConn) Send(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	c.msgs = append(c.msgs, msg)
	return true
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []string{}
	for _, m := range c.msgs {
		out = append(out, m.Type)
	}
	return out
}

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_BroadcastExcludesSender(t *testing.T) {
	req := require.New(t)
	h := newTestHub()
	a, b, c := &fakeConn{id: "a"}, &fakeConn{id: "b"}, &fakeConn{id: "c"}
	for _, conn := range []*fakeConn{a, b, c} {
		h.Register(conn)
	}
	h.Subscribe("room1", "a")
	h.Subscribe("room1", "b")
	h.Subscribe("room2", "c")

	h.Broadcast("room1", domain.Event{Type: domain.EventParticipantJoined, RoomID: "room1"}, "a")

	req.Empty(a.types())
	req.Equal([]string{"participant-joined"}, b.types())
	req.Empty(c.types())
}

func TestHub_UnregisterDropsSubscriptions(t *testing.T) {
	req := require.New(t)
	h := newTestHub()
	a := &fakeConn{id: "a"}
	h.Register(a)
	h.Subscribe("room1", "a")
	req.True(h.IsLive("a"))
	req.Equal(1, h.Subscribers("room1"))

	h.Unregister("a")
	req.False(h.IsLive("a"))
	req.Zero(h.Subscribers("room1"))
	req.False(h.Send("a", domain.Event{Type: domain.EventCallState}))

	// подписка мёртвого соединения игнорируется
	h.Subscribe("room1", "a")
	req.Zero(h.Subscribers("room1"))
}

func TestHub_FullQueueDoesNotBlock(t *testing.T) {
	h := newTestHub()
	slow, fast := &fakeConn{id: "slow", full: true}, &fakeConn{id: "fast"}
	h.Register(slow)
	h.Register(fast)
	h.Subscribe("room1", "slow")
	h.Subscribe("room1", "fast")

	h.Broadcast("room1", domain.Event{Type: "chat-message"}, "")
	require.Equal(t, []string{"chat-message"}, fast.types())
	require.False(t, h.Send("slow", domain.Event{Type: "offer"}))
}

func TestToMessage_Shapes(t *testing.T) {
	req := require.New(t)

	view := &domain.ParticipantView{RoomID: "r", DisplayName: "alice", Status: domain.StatusOnline, ConnectionID: "a"}
	raw, err := json.Marshal(toMessage(domain.Event{Type: domain.EventParticipantLeft, RoomID: "r", Participant: view}))
	req.NoError(err)
	req.Contains(string(raw), `"type":"participant-left"`)
	req.Contains(string(raw), `"displayName":"alice"`)

	raw, err = json.Marshal(toMessage(domain.ForwardEvent("r", domain.Envelope{
		Kind:         domain.KindOffer,
		SenderConnID: "b",
		Payload:      json.RawMessage(`{"sdp":"x"}`),
	})))
	req.NoError(err)
	req.JSONEq(`{"type":"offer","payload":{"senderConnectionId":"b","payload":{"sdp":"x"}}}`, string(raw))

	raw, err = json.Marshal(toMessage(domain.CallEvent(domain.KindCallEnd, "r", "bob", nil)))
	req.NoError(err)
	req.JSONEq(`{"type":"call-end","payload":{"roomId":"r","actor":"bob"}}`, string(raw))

	raw, err = json.Marshal(toMessage(domain.Event{Type: domain.EventJoinAccepted, RoomID: "r", Participant: view}))
	req.NoError(err)
	req.Contains(string(raw), `"roster":[]`)
}
