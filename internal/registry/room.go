package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/cwrk-planet/session-service/internal/domain"
)

type Room struct {
	id  string
	reg *Registry

	mu      sync.Mutex
	members map[string]domain.Participant // displayName -> participant
}

func (rm *Room) ID() string { return rm.id }

// Do выполняет fn в критической секции комнаты. Все мутации комнаты
// (живые события, звонок, reaper) проходят только через Do.
func (rm *Room) Do(fn func(tx *Tx)) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	fn(&Tx{room: rm})
}

// Tx валиден только внутри Do.
type Tx struct {
	room *Room
}

func (tx *Tx) RoomID() string { return tx.room.id }

func (tx *Tx) Get(name string) (domain.Participant, bool) {
	p, ok := tx.room.members[name]
	return p, ok
}

func (tx *Tx) ByConn(conn domain.ConnID) (domain.Participant, bool) {
	roomID, name, ok := tx.room.reg.Locate(conn)
	if !ok || roomID != tx.room.id {
		return domain.Participant{}, false
	}
	p, ok := tx.room.members[name]
	if !ok {
		return domain.Participant{}, false
	}
	if id, online := p.ConnID(); !online || id != conn {
		return domain.Participant{}, false
	}
	return p, true
}

// Put сохраняет запись и поддерживает индекс соединений.
func (tx *Tx) Put(p domain.Participant) {
	p.RoomID = tx.room.id
	if prev, ok := tx.room.members[p.DisplayName]; ok {
		if id, online := prev.ConnID(); online {
			if next, _ := p.ConnID(); next != id {
				tx.room.reg.conns.Delete(id)
			}
		}
	}
	tx.room.members[p.DisplayName] = p
	if id, online := p.ConnID(); online {
		tx.room.reg.conns.Store(id, connRef{roomID: tx.room.id, name: p.DisplayName})
	}
}

func (tx *Tx) Delete(name string) (domain.Participant, bool) {
	p, ok := tx.room.members[name]
	if !ok {
		return domain.Participant{}, false
	}
	delete(tx.room.members, name)
	if id, online := p.ConnID(); online {
		tx.room.reg.conns.Delete(id)
	}
	return p, true
}

// List: все записи комнаты (online и offline) по времени входа.
func (tx *Tx) List() []domain.Participant {
	out := make([]domain.Participant, 0, len(tx.room.members))
	for _, p := range tx.room.members {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	return out
}

// StaleOffline: имена offline-записей, у которых since+grace <= now.
func (tx *Tx) StaleOffline(now time.Time, grace time.Duration) []string {
	var names []string
	for name, p := range tx.room.members {
		if since, ok := p.OfflineSince(); ok && now.Sub(since) >= grace {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (tx *Tx) Len() int { return len(tx.room.members) }
