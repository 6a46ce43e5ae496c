package service

import (
	"context"
	"log/slog"
	"time"
)

const defaultSweepInterval = 30 * time.Second

// Reaper периодически выселяет offline-записи старше grace period.
// Каждую комнату блокирует отдельно и ненадолго, через MemberService.Evict.
type Reaper struct {
	members  *MemberService
	interval time.Duration
	log      *slog.Logger
}

func NewReaper(members *MemberService, interval time.Duration, log *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reaper{
		members:  members,
		interval: interval,
		log:      log.With("component", "reaper"),
	}
}

func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("reaper started", "interval", r.interval, "grace", r.members.GracePeriod())
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("reaper stopped")
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep: один проход по всем комнатам; возвращает число выселенных.
func (r *Reaper) Sweep(ctx context.Context) int {
	evicted := 0
	for _, roomID := range r.members.RoomIDs() {
		if ctx.Err() != nil {
			break
		}
		for _, name := range r.members.staleIn(roomID) {
			if r.members.Evict(ctx, roomID, name) {
				evicted++
			}
		}
	}
	if evicted > 0 {
		r.log.InfoContext(ctx, "cleaned up stale offline participants", "count", evicted)
	}
	return evicted
}
