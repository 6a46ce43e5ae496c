package service

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/session-service/internal/call"
	"github.com/cwrk-planet/session-service/internal/domain"
	"github.com/cwrk-planet/session-service/internal/registry"
)

type testClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newTestClock() *testClock {
	return &testClock{cur: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

// fakeNotifier повторяет семантику ws.Hub без сокетов.
type fakeNotifier struct {
	mu    sync.Mutex
	live  map[domain.ConnID]bool
	subs  map[string]map[domain.ConnID]struct{}
	inbox map[domain.ConnID][]domain.Event
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		live:  make(map[domain.ConnID]bool),
		subs:  make(map[string]map[domain.ConnID]struct{}),
		inbox: make(map[domain.ConnID][]domain.Event),
	}
}

func (n *fakeNotifier) connect(ids ...domain.ConnID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, id := range ids {
		n.live[id] = true
	}
}

func (n *fakeNotifier) kill(id domain.ConnID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.live, id)
}

func (n *fakeNotifier) Subscribe(roomID string, conn domain.ConnID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs[roomID] == nil {
		n.subs[roomID] = make(map[domain.ConnID]struct{})
	}
	n.subs[roomID][conn] = struct{}{}
}

func (n *fakeNotifier) Unsubscribe(roomID string, conn domain.ConnID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs[roomID], conn)
}

func (n *fakeNotifier) Broadcast(roomID string, ev domain.Event, exclude domain.ConnID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for c := range n.subs[roomID] {
		if c == exclude || !n.live[c] {
			continue
		}
		n.inbox[c] = append(n.inbox[c], ev)
	}
}

func (n *fakeNotifier) Send(conn domain.ConnID, ev domain.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.live[conn] {
		return false
	}
	n.inbox[conn] = append(n.inbox[conn], ev)
	return true
}

func (n *fakeNotifier) IsLive(conn domain.ConnID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.live[conn]
}

func (n *fakeNotifier) events(conn domain.ConnID) []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Event(nil), n.inbox[conn]...)
}

func (n *fakeNotifier) types(conn domain.ConnID) []domain.EventType {
	var out []domain.EventType
	for _, ev := range n.events(conn) {
		out = append(out, ev.Type)
	}
	return out
}

type memJournal struct {
	mu      sync.Mutex
	entries []domain.JournalEntry
}

func (j *memJournal) Record(e domain.JournalEntry) {
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
}

func (j *memJournal) kinds() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.Kind)
	}
	return out
}

type harness struct {
	clock   *testClock
	notify  *fakeNotifier
	journal *memJournal
	reg     *registry.Registry
	calls   *CallService
	members *MemberService
	router  *SignalRouter
	reaper  *Reaper
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		clock:   newTestClock(),
		notify:  newFakeNotifier(),
		journal: &memJournal{},
		reg:     registry.New(),
	}
	h.calls = NewCallService(call.NewManager(h.clock.Now), h.notify, h.journal, log)
	h.members = NewMemberService(Deps{
		Registry: h.reg,
		Calls:    h.calls,
		Notifier: h.notify,
		Journal:  h.journal,
		Logger:   log,
		Now:      h.clock.Now,
	})
	h.members.SetGracePeriod(120 * time.Second)
	h.router = NewSignalRouter(h.reg, h.calls, h.notify, log)
	h.reaper = NewReaper(h.members, 30*time.Second, log)
	return h
}

func names(list []domain.ParticipantView, status domain.Status) []string {
	out := []string{}
	for _, p := range list {
		if p.Status == status {
			out = append(out, p.DisplayName)
		}
	}
	return out
}
