package registry

import (
	"sort"
	"sync"

	"github.com/cwrk-planet/session-service/internal/domain"
)

type connRef struct {
	roomID string
	name   string
}

// Registry: единственное место, где меняется состояние участников.
// Каждая комната: отдельный шард со своим мьютексом; глобальный мьютекс
// берётся только на создание/поиск шарда.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	conns sync.Map // domain.ConnID -> connRef
}

func New() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Room возвращает шард комнаты, создавая его при первом обращении.
func (r *Registry) Room(roomID string) *Room {
	r.mu.RLock()
	rm, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if ok {
		return rm
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok = r.rooms[roomID]; ok {
		return rm
	}
	rm = &Room{
		id:      roomID,
		reg:     r,
		members: make(map[string]domain.Participant),
	}
	r.rooms[roomID] = rm
	return rm
}

func (r *Registry) Lookup(roomID string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomID]
	return rm, ok
}

// RoomIDs: отсортированный список известных комнат (в т.ч. пустых).
func (r *Registry) RoomIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Locate: быстрый поиск по индексу соединений без блокировки комнаты.
// Результат нужно перепроверить внутри Room.Do.
func (r *Registry) Locate(conn domain.ConnID) (roomID, name string, ok bool) {
	v, ok := r.conns.Load(conn)
	if !ok {
		return "", "", false
	}
	ref := v.(connRef)
	return ref.roomID, ref.name, true
}
