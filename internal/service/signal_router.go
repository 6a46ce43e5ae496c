package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/session-service/internal/domain"
	"github.com/cwrk-planet/session-service/internal/registry"
)

// SignalRouter классифицирует входящие конверты: события звонка уходят в
// комнату, offer/answer/candidate: ровно одному соединению. Payload не разбирается.
type SignalRouter struct {
	reg    *registry.Registry
	calls  *CallService
	notify Notifier
	log    *slog.Logger
}

func NewSignalRouter(reg *registry.Registry, calls *CallService, notify Notifier, log *slog.Logger) *SignalRouter {
	if log == nil {
		log = slog.Default()
	}
	return &SignalRouter{
		reg:    reg,
		calls:  calls,
		notify: notify,
		log:    log.With("component", "signal-router"),
	}
}

// Dispatch никогда не паникует на чужом вводе; ошибка означает, что конверт отброшен.
func (r *SignalRouter) Dispatch(ctx context.Context, env domain.Envelope) error {
	class := env.Kind.Class()
	switch {
	case class == domain.ClassUnknown:
		r.log.WarnContext(ctx, "dropping envelope: unknown kind", "kind", env.Kind, "sender", env.SenderConnID)
		return fmt.Errorf("%w: unknown kind %q", domain.ErrMalformedEnvelope, env.Kind)
	case class == domain.ClassDirected && env.TargetConnID == "":
		r.log.WarnContext(ctx, "dropping envelope: missing target", "kind", env.Kind, "sender", env.SenderConnID)
		return fmt.Errorf("%w: %q requires targetConnectionId", domain.ErrMalformedEnvelope, env.Kind)
	}

	roomID, _, ok := r.reg.Locate(env.SenderConnID)
	if !ok {
		r.log.DebugContext(ctx, "dropping envelope: sender not joined", "kind", env.Kind, "sender", env.SenderConnID)
		return domain.ErrUnknownSender
	}

	var err error
	r.reg.Room(roomID).Do(func(tx *registry.Tx) {
		sender, ok := tx.ByConn(env.SenderConnID)
		if !ok {
			err = domain.ErrUnknownSender
			return
		}
		switch class {
		case domain.ClassBroadcast:
			err = r.calls.applyLocked(ctx, env.Kind, sender)
		case domain.ClassRelay:
			r.notify.Broadcast(roomID, domain.ForwardEvent(roomID, env), env.SenderConnID)
		case domain.ClassDirected:
			err = r.forwardLocked(tx, env)
		}
	})

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnknownTarget):
		r.log.InfoContext(ctx, "dropping directed envelope: target gone",
			"room", roomID, "kind", env.Kind, "sender", env.SenderConnID, "target", env.TargetConnID)
	default:
		r.log.DebugContext(ctx, "envelope not applied", "room", roomID, "kind", env.Kind, "err", err)
	}
	return err
}

// forwardLocked доставляет конверт без изменений, подменяя только отправителя.
// Адресат должен быть online в той же комнате.
func (r *SignalRouter) forwardLocked(tx *registry.Tx, env domain.Envelope) error {
	if env.TargetConnID == env.SenderConnID {
		return domain.ErrUnknownTarget
	}
	if _, ok := tx.ByConn(env.TargetConnID); !ok {
		return domain.ErrUnknownTarget
	}
	if !r.notify.Send(env.TargetConnID, domain.ForwardEvent(tx.RoomID(), env)) {
		return domain.ErrUnknownTarget
	}
	return nil
}
