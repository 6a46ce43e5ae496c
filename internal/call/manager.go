package call

import (
	"sync"
	"time"

	"github.com/cwrk-planet/session-service/internal/domain"
)

// Result: итог перехода. Summary == nil означает, что звонок неактивен.
type Result struct {
	Changed bool
	Summary *domain.CallSummary
}

// Manager хранит не более одной CallSession на комнату.
// Сериализацию событий одной комнаты обеспечивает вызывающий (room lock);
// собственный мьютекс защищает только map.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*domain.CallSession
	now      func() time.Time
}

func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		sessions: make(map[string]*domain.CallSession),
		now:      now,
	}
}

// Start: INACTIVE -> ACTIVE. Повторный start при активном звонке ничего не меняет.
func (m *Manager) Start(roomID, by string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[roomID]; ok {
		return Result{Changed: false, Summary: summaryOf(s)}
	}
	s := &domain.CallSession{
		RoomID:       roomID,
		StartedBy:    by,
		StartedAt:    m.now(),
		Participants: map[string]struct{}{by: {}},
	}
	m.sessions[roomID] = s
	return Result{Changed: true, Summary: summaryOf(s)}
}

func (m *Manager) Join(roomID, who string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[roomID]
	if !ok {
		return Result{}, domain.ErrNoActiveCall
	}
	if s.Has(who) {
		return Result{Changed: false, Summary: summaryOf(s)}, nil
	}
	s.Participants[who] = struct{}{}
	return Result{Changed: true, Summary: summaryOf(s)}, nil
}

// Leave удаляет участника; последний ушедший уничтожает сессию.
func (m *Manager) Leave(roomID, who string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[roomID]
	if !ok {
		return Result{}, domain.ErrNoActiveCall
	}
	if !s.Has(who) {
		return Result{Summary: summaryOf(s)}, domain.ErrNotInCall
	}
	delete(s.Participants, who)
	if len(s.Participants) == 0 {
		delete(m.sessions, roomID)
		return Result{Changed: true}, nil
	}
	return Result{Changed: true, Summary: summaryOf(s)}, nil
}

// End уничтожает сессию независимо от размера ростера.
func (m *Manager) End(roomID string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[roomID]; !ok {
		return Result{}, domain.ErrNoActiveCall
	}
	delete(m.sessions, roomID)
	return Result{Changed: true}, nil
}

func (m *Manager) Get(roomID string) *domain.CallSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[roomID]
	if !ok {
		return nil
	}
	return summaryOf(s)
}

func (m *Manager) InCall(roomID, who string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[roomID]
	return ok && s.Has(who)
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func summaryOf(s *domain.CallSession) *domain.CallSummary {
	sum := s.Summary()
	return &sum
}
