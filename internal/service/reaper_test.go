package service

import (
	"context"
	"testing"
	"time"

	"github.com/cwrk-planet/session-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestSweep_EvictsOnlyAfterGrace(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()
	h.notify.connect("a", "b")

	_, _ = h.members.Join(ctx, "room1", "alice", "a")
	_, _ = h.members.Join(ctx, "room1", "bob", "b")
	h.members.Disconnect(ctx, "a")

	h.clock.Advance(119 * time.Second)
	req.Zero(h.reaper.Sweep(ctx))

	h.clock.Advance(time.Second)
	req.Equal(1, h.reaper.Sweep(ctx))

	snap, _ := h.members.Snapshot(ctx, "room1")
	req.Equal([]string{"bob"}, names(snap.Roster, domain.StatusOnline))
	req.Empty(names(snap.Roster, domain.StatusOffline))
	req.Contains(h.journal.kinds(), domain.JournalEvicted)

	// после выселения и reconnect невозможен, а join создаёт новую запись
	h.notify.connect("a2")
	_, err := h.members.Reconnect(ctx, "room1", "alice", "a2")
	req.ErrorIs(err, domain.ErrNoOfflineSession)
	res, err := h.members.Join(ctx, "room1", "alice", "a2")
	req.NoError(err)
	req.Equal(h.clock.Now(), res.Participant.JoinedAt)
}

func TestSweep_NeverTouchesOnline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.notify.connect("a")
	_, _ = h.members.Join(ctx, "room1", "alice", "a")

	h.clock.Advance(24 * time.Hour)
	require.Zero(t, h.reaper.Sweep(ctx))
	snap, _ := h.members.Snapshot(ctx, "room1")
	require.Equal(t, []string{"alice"}, names(snap.Roster, domain.StatusOnline))
}

func TestEvict_ReconnectWins(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()
	h.notify.connect("a", "a2")

	_, _ = h.members.Join(ctx, "room1", "alice", "a")
	h.members.Disconnect(ctx, "a")
	h.clock.Advance(3 * time.Minute)

	// кандидат выбран до reconnect, сама проверка: уже после
	stale := h.members.staleIn("room1")
	req.Equal([]string{"alice"}, stale)

	_, err := h.members.Reconnect(ctx, "room1", "alice", "a2")
	req.NoError(err)

	req.False(h.members.Evict(ctx, "room1", "alice"))
	snap, _ := h.members.Snapshot(ctx, "room1")
	req.Equal([]string{"alice"}, names(snap.Roster, domain.StatusOnline))
}

func TestEvict_FreshOfflineAfterCandidateSurvives(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	ctx := context.Background()
	h.notify.connect("a", "a2")

	_, _ = h.members.Join(ctx, "room1", "alice", "a")
	h.members.Disconnect(ctx, "a")
	h.clock.Advance(3 * time.Minute)
	req.Equal([]string{"alice"}, h.members.staleIn("room1"))

	// reconnect и новый разрыв между выбором и выселением
	_, err := h.members.Reconnect(ctx, "room1", "alice", "a2")
	req.NoError(err)
	h.members.Disconnect(ctx, "a2")

	req.False(h.members.Evict(ctx, "room1", "alice"))
	snap, _ := h.members.Snapshot(ctx, "room1")
	req.Equal([]string{"alice"}, names(snap.Roster, domain.StatusOffline))
}

func TestSweep_MultipleRooms(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.notify.connect("a", "b", "c")

	_, _ = h.members.Join(ctx, "room1", "alice", "a")
	_, _ = h.members.Join(ctx, "room2", "bob", "b")
	_, _ = h.members.Join(ctx, "room2", "carol", "c")
	h.members.Disconnect(ctx, "a")
	h.members.Disconnect(ctx, "b")
	h.clock.Advance(5 * time.Minute)

	require.Equal(t, 2, h.reaper.Sweep(ctx))
	require.Equal(t, 0, h.reaper.Sweep(ctx))
}

func TestSweep_StopsOnCancelledContext(t *testing.T) {
	h := newHarness(t)
	h.notify.connect("a")
	_, _ = h.members.Join(context.Background(), "room1", "alice", "a")
	h.members.Disconnect(context.Background(), "a")
	h.clock.Advance(5 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Zero(t, h.reaper.Sweep(ctx))
}

func TestReaperRun_ReturnsOnCancel(t *testing.T) {
	h := newHarness(t)
	r := NewReaper(h.members, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
