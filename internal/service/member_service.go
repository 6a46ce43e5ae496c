package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cwrk-planet/session-service/internal/domain"
	"github.com/cwrk-planet/session-service/internal/registry"

	"github.com/samber/lo"
)

const defaultGracePeriod = 120 * time.Second

type JoinResult struct {
	Participant domain.ParticipantView
	Roster      []domain.ParticipantView
	Call        *domain.CallSummary
}

type RoomSnapshot struct {
	RoomID string
	Roster []domain.ParticipantView
	Call   *domain.CallSummary
}

type Deps struct {
	Registry *registry.Registry
	Calls    *CallService
	Notifier Notifier
	Journal  Journal
	Logger   *slog.Logger
	Now      func() time.Time
}

type MemberService struct {
	reg     *registry.Registry
	calls   *CallService
	notify  Notifier
	journal Journal
	log     *slog.Logger
	now     func() time.Time

	gracePeriod time.Duration
}

func NewMemberService(d Deps) *MemberService {
	s := &MemberService{
		reg:         d.Registry,
		calls:       d.Calls,
		notify:      d.Notifier,
		journal:     d.Journal,
		log:         d.Logger,
		now:         d.Now,
		gracePeriod: defaultGracePeriod,
	}
	if s.journal == nil {
		s.journal = nopJournal{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.log = s.log.With("component", "members")
	return s
}

func (s *MemberService) SetGracePeriod(d time.Duration) {
	if d > 0 {
		s.gracePeriod = d
	}
}

func (s *MemberService) GracePeriod() time.Duration { return s.gracePeriod }

// Join: вход в комнату. Offline-запись с тем же именем переиспользуется,
// online-запись с мёртвым соединением заменяется, с живым: ErrNameTaken.
func (s *MemberService) Join(ctx context.Context, roomID, displayName string, conn domain.ConnID) (*JoinResult, error) {
	roomID, displayName = strings.TrimSpace(roomID), strings.TrimSpace(displayName)
	if roomID == "" || displayName == "" || conn == "" {
		return nil, fmt.Errorf("%w: roomId and displayName are required", domain.ErrInvalidRequest)
	}
	boundRoom, boundName, bound := s.reg.Locate(conn)
	if bound && (boundRoom != roomID || boundName != displayName) {
		return nil, fmt.Errorf("%w: connection already joined %q", domain.ErrInvalidRequest, boundRoom)
	}

	var (
		res *JoinResult
		err error
	)
	s.reg.Room(roomID).Do(func(tx *registry.Tx) {
		now := s.now()
		joinedAt := now

		if existing, ok := tx.Get(displayName); ok {
			switch pres := existing.Presence.(type) {
			case domain.Online:
				if pres.ConnID == conn {
					// повторный join с того же соединения
					res = s.acceptLocked(tx, existing, conn)
					return
				}
				if s.notify.IsLive(pres.ConnID) {
					err = fmt.Errorf("%w: %q", domain.ErrNameTaken, displayName)
					return
				}
				s.log.InfoContext(ctx, "replacing stale duplicate",
					"room", roomID, "name", displayName, "stale_conn", pres.ConnID)
				tx.Delete(displayName)
				s.notify.Unsubscribe(roomID, pres.ConnID)
				s.calls.leaveLocked(ctx, roomID, displayName, pres.ConnID)
			case domain.Offline:
				joinedAt = existing.JoinedAt
			}
		}

		p := domain.Participant{
			RoomID:      roomID,
			DisplayName: displayName,
			JoinedAt:    joinedAt,
			Presence:    domain.Online{ConnID: conn},
		}
		tx.Put(p)
		s.notify.Subscribe(roomID, conn)

		view := p.View()
		s.notify.Broadcast(roomID, domain.Event{
			Type:        domain.EventParticipantJoined,
			RoomID:      roomID,
			Participant: &view,
		}, conn)
		s.record(roomID, domain.JournalJoined, displayName, conn, now)

		res = s.acceptLocked(tx, p, conn)
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "participant joined", "room", roomID, "name", displayName, "conn", conn)
	return res, nil
}

// Disconnect: потеря соединения: запись остаётся offline на grace period,
// комнате ничего не сообщается.
func (s *MemberService) Disconnect(ctx context.Context, conn domain.ConnID) {
	roomID, _, ok := s.reg.Locate(conn)
	if !ok {
		return
	}
	s.reg.Room(roomID).Do(func(tx *registry.Tx) {
		p, ok := tx.ByConn(conn)
		if !ok {
			return
		}
		now := s.now()
		s.notify.Unsubscribe(roomID, conn)
		p.Presence = domain.Offline{Since: now}
		tx.Put(p)
		s.calls.leaveLocked(ctx, roomID, p.DisplayName, conn)
		s.record(roomID, domain.JournalOffline, p.DisplayName, conn, now)
		s.log.InfoContext(ctx, "participant offline", "room", roomID, "name", p.DisplayName, "conn", conn)
	})
}

// Reconnect восстанавливает только существующую offline-запись.
func (s *MemberService) Reconnect(ctx context.Context, roomID, displayName string, conn domain.ConnID) (*JoinResult, error) {
	roomID, displayName = strings.TrimSpace(roomID), strings.TrimSpace(displayName)
	if roomID == "" || displayName == "" || conn == "" {
		return nil, fmt.Errorf("%w: roomId and displayName are required", domain.ErrInvalidRequest)
	}
	if boundRoom, _, bound := s.reg.Locate(conn); bound {
		return nil, fmt.Errorf("%w: connection already joined %q", domain.ErrInvalidRequest, boundRoom)
	}
	rm, ok := s.reg.Lookup(roomID)
	if !ok {
		return nil, domain.ErrNoOfflineSession
	}

	var res *JoinResult
	err := domain.ErrNoOfflineSession
	rm.Do(func(tx *registry.Tx) {
		p, ok := tx.Get(displayName)
		if !ok || p.Status() != domain.StatusOffline {
			return
		}
		now := s.now()
		p.Presence = domain.Online{ConnID: conn}
		tx.Put(p)
		s.notify.Subscribe(roomID, conn)

		view := p.View()
		s.notify.Broadcast(roomID, domain.Event{
			Type:        domain.EventParticipantOnline,
			RoomID:      roomID,
			Participant: &view,
		}, conn)
		s.record(roomID, domain.JournalOnline, displayName, conn, now)

		res, err = s.acceptLocked(tx, p, conn), nil
	})
	if err != nil {
		s.log.DebugContext(ctx, "reconnect rejected", "room", roomID, "name", displayName, "err", err)
		return nil, err
	}
	s.log.InfoContext(ctx, "participant reconnected", "room", roomID, "name", displayName, "conn", conn)
	return res, nil
}

// ExplicitLeave удаляет запись сразу, без grace period.
func (s *MemberService) ExplicitLeave(ctx context.Context, conn domain.ConnID) error {
	roomID, _, ok := s.reg.Locate(conn)
	if !ok {
		return domain.ErrNotInRoom
	}
	err := domain.ErrNotInRoom
	s.reg.Room(roomID).Do(func(tx *registry.Tx) {
		p, ok := tx.ByConn(conn)
		if !ok {
			return
		}
		err = nil
		now := s.now()
		tx.Delete(p.DisplayName)
		s.notify.Unsubscribe(roomID, conn)
		s.calls.leaveLocked(ctx, roomID, p.DisplayName, conn)

		view := p.View()
		s.notify.Broadcast(roomID, domain.Event{
			Type:        domain.EventParticipantLeft,
			RoomID:      roomID,
			Participant: &view,
		}, conn)
		s.record(roomID, domain.JournalLeft, p.DisplayName, conn, now)
		s.log.InfoContext(ctx, "participant left", "room", roomID, "name", p.DisplayName)
	})
	return err
}

// Evict вызывается только reaper'ом. Статус и возраст проверяются внутри
// критической секции, поэтому успевший Reconnect всегда выигрывает.
func (s *MemberService) Evict(ctx context.Context, roomID, displayName string) bool {
	rm, ok := s.reg.Lookup(roomID)
	if !ok {
		return false
	}
	evicted := false
	rm.Do(func(tx *registry.Tx) {
		p, ok := tx.Get(displayName)
		if !ok {
			return
		}
		since, offline := p.OfflineSince()
		now := s.now()
		if !offline || now.Sub(since) < s.gracePeriod {
			return
		}
		tx.Delete(displayName)
		s.record(roomID, domain.JournalEvicted, displayName, "", now)
		evicted = true
	})
	if evicted {
		s.log.InfoContext(ctx, "participant evicted", "room", roomID, "name", displayName)
	}
	return evicted
}

func (s *MemberService) Snapshot(ctx context.Context, roomID string) (*RoomSnapshot, error) {
	rm, ok := s.reg.Lookup(roomID)
	if !ok {
		return &RoomSnapshot{RoomID: roomID, Roster: []domain.ParticipantView{}}, nil
	}
	var snap *RoomSnapshot
	rm.Do(func(tx *registry.Tx) {
		snap = &RoomSnapshot{
			RoomID: roomID,
			Roster: views(tx.List()),
			Call:   s.calls.Current(roomID),
		}
	})
	return snap, nil
}

func (s *MemberService) RoomIDs() []string { return s.reg.RoomIDs() }

// staleIn: кандидаты на выселение; окончательная проверка в Evict.
func (s *MemberService) staleIn(roomID string) []string {
	rm, ok := s.reg.Lookup(roomID)
	if !ok {
		return nil
	}
	var names []string
	rm.Do(func(tx *registry.Tx) {
		names = tx.StaleOffline(s.now(), s.gracePeriod)
	})
	return names
}

// acceptLocked ставит join-accepted в очередь соединения до того, как
// комната сможет прислать ему что-то ещё.
func (s *MemberService) acceptLocked(tx *registry.Tx, p domain.Participant, conn domain.ConnID) *JoinResult {
	res := &JoinResult{
		Participant: p.View(),
		Roster:      views(tx.List()),
		Call:        s.calls.Current(tx.RoomID()),
	}
	s.notify.Send(conn, domain.Event{
		Type:        domain.EventJoinAccepted,
		RoomID:      tx.RoomID(),
		Participant: &res.Participant,
		Roster:      res.Roster,
		Call:        res.Call,
	})
	return res
}

func (s *MemberService) record(roomID, kind, name string, conn domain.ConnID, at time.Time) {
	s.journal.Record(domain.JournalEntry{
		RoomID:      roomID,
		Kind:        kind,
		DisplayName: name,
		ConnID:      conn,
		At:          at,
	})
}

func views(list []domain.Participant) []domain.ParticipantView {
	return lo.Map(list, func(p domain.Participant, _ int) domain.ParticipantView {
		return p.View()
	})
}
