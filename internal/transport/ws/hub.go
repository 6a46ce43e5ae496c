package ws

import (
	"log/slog"
	"sync"

	"github.com/cwrk-planet/session-service/internal/domain"
)

type Conn interface {
	ID() domain.ConnID
	// Send не блокируется: false, если очередь полна или соединение закрыто.
	Send(msg Message) bool
	Close() error
}

// Hub: живые соединения и явные списки подписчиков по комнатам.
// Реализует service.Notifier.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]Conn
	rooms map[string]map[domain.ConnID]struct{} // roomID -> подписчики

	log *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		conns: make(map[domain.ConnID]Conn),
		rooms: make(map[string]map[domain.ConnID]struct{}),
		log:   log.With("component", "hub"),
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID()] = c
}

// Unregister снимает соединение со всех подписок; после этого IsLive == false.
func (h *Hub) Unregister(id domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, id)
	for roomID, rs := range h.rooms {
		if _, ok := rs[id]; !ok {
			continue
		}
		delete(rs, id)
		if len(rs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) Subscribe(roomID string, id domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[id]; !ok {
		return
	}
	rs, ok := h.rooms[roomID]
	if !ok {
		rs = make(map[domain.ConnID]struct{})
		h.rooms[roomID] = rs
	}
	rs[id] = struct{}{}
}

func (h *Hub) Unsubscribe(roomID string, id domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[roomID]; ok {
		delete(rs, id)
		if len(rs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) Broadcast(roomID string, ev domain.Event, exclude domain.ConnID) {
	msg := toMessage(ev)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id := range h.rooms[roomID] {
		if id == exclude {
			continue
		}
		c, ok := h.conns[id]
		if !ok {
			continue
		}
		if !c.Send(msg) {
			h.log.Warn("dropping frame: connection not writable", "room", roomID, "conn", id, "type", msg.Type)
		}
	}
}

func (h *Hub) Send(id domain.ConnID, ev domain.Event) bool {
	return h.SendMessage(id, toMessage(ev))
}

// SendMessage: кадр вне событий ядра (name-taken, invalid-request).
func (h *Hub) SendMessage(id domain.ConnID, msg Message) bool {
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if !c.Send(msg) {
		h.log.Warn("dropping frame: connection not writable", "conn", id, "type", msg.Type)
		return false
	}
	return true
}

func (h *Hub) IsLive(id domain.ConnID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[id]
	return ok
}

// Subscribers: число подписчиков комнаты.
func (h *Hub) Subscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
