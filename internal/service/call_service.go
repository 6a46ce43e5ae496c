package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cwrk-planet/session-service/internal/call"
	"github.com/cwrk-planet/session-service/internal/domain"
)

// CallService: переходы группового звонка. Все методы *Locked вызываются
// внутри критической секции комнаты.
type CallService struct {
	calls   *call.Manager
	notify  Notifier
	journal Journal
	log     *slog.Logger
	now     func() time.Time
}

func NewCallService(calls *call.Manager, notify Notifier, journal Journal, log *slog.Logger) *CallService {
	if journal == nil {
		journal = nopJournal{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &CallService{
		calls:   calls,
		notify:  notify,
		journal: journal,
		log:     log.With("component", "calls"),
		now:     time.Now,
	}
}

func (c *CallService) Current(roomID string) *domain.CallSummary {
	return c.calls.Get(roomID)
}

func (c *CallService) ActiveCount() int { return c.calls.ActiveCount() }

// applyLocked применяет broadcast-событие от online-участника actor.
func (c *CallService) applyLocked(ctx context.Context, kind domain.Kind, actor domain.Participant) error {
	roomID := actor.RoomID
	conn, _ := actor.ConnID()

	switch kind {
	case domain.KindCallStart:
		res := c.calls.Start(roomID, actor.DisplayName)
		if !res.Changed {
			// второй звонок не создаём: переотправляем текущий ростер
			c.notify.Broadcast(roomID, domain.CallEvent(kind, roomID, res.Summary.StartedBy, res.Summary), conn)
			c.notify.Send(conn, domain.Event{Type: domain.EventCallState, RoomID: roomID, Call: res.Summary})
			return nil
		}
		c.emit(ctx, kind, roomID, actor.DisplayName, conn, res.Summary)
		return nil

	case domain.KindCallJoin:
		res, err := c.calls.Join(roomID, actor.DisplayName)
		if err != nil {
			return err
		}
		if res.Changed {
			c.emit(ctx, kind, roomID, actor.DisplayName, conn, res.Summary)
		}
		return nil

	case domain.KindCallLeave:
		return c.leave(ctx, roomID, actor.DisplayName, conn)

	case domain.KindCallEnd:
		if _, err := c.calls.End(roomID); err != nil {
			return err
		}
		c.emit(ctx, kind, roomID, actor.DisplayName, conn, nil)
		return nil
	}
	return domain.ErrMalformedEnvelope
}

// leaveLocked: выход из звонка при disconnect/leave; отсутствие звонка не ошибка.
func (c *CallService) leaveLocked(ctx context.Context, roomID, name string, conn domain.ConnID) {
	if !c.calls.InCall(roomID, name) {
		return
	}
	if err := c.leave(ctx, roomID, name, conn); err != nil && !errors.Is(err, domain.ErrNotInCall) {
		c.log.WarnContext(ctx, "call leave failed", "room", roomID, "name", name, "err", err)
	}
}

func (c *CallService) leave(ctx context.Context, roomID, name string, conn domain.ConnID) error {
	res, err := c.calls.Leave(roomID, name)
	if err != nil {
		return err
	}
	c.emit(ctx, domain.KindCallLeave, roomID, name, conn, res.Summary)
	return nil
}

func (c *CallService) emit(ctx context.Context, kind domain.Kind, roomID, actor string, conn domain.ConnID, sum *domain.CallSummary) {
	c.notify.Broadcast(roomID, domain.CallEvent(kind, roomID, actor, sum), conn)
	c.journal.Record(domain.JournalEntry{
		RoomID:      roomID,
		Kind:        string(kind),
		DisplayName: actor,
		ConnID:      conn,
		At:          c.now(),
	})
	c.log.DebugContext(ctx, "call transition", "room", roomID, "kind", kind, "actor", actor, "active", sum != nil)
}
