package postgres

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cwrk-planet/session-service/internal/domain"
)

type Appender interface {
	Append(ctx context.Context, entries []domain.JournalEntry) error
}

type WriterOptions struct {
	QueueSize  int
	BatchSize  int
	FlushEvery time.Duration
}

// JournalWriter: асинхронная запись журнала. Record вызывается под room lock
// и никогда не ждёт базу: при полной очереди запись отбрасывается.
type JournalWriter struct {
	store      Appender
	queue      chan domain.JournalEntry
	batchSize  int
	flushEvery time.Duration
	log        *slog.Logger

	dropped atomic.Int64
}

func NewJournalWriter(store Appender, opts WriterOptions, log *slog.Logger) *JournalWriter {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &JournalWriter{
		store:      store,
		queue:      make(chan domain.JournalEntry, opts.QueueSize),
		batchSize:  opts.BatchSize,
		flushEvery: opts.FlushEvery,
		log:        log.With("component", "journal"),
	}
}

func (w *JournalWriter) Record(e domain.JournalEntry) {
	select {
	case w.queue <- e:
	default:
		n := w.dropped.Add(1)
		w.log.Warn("journal queue full, dropping entry", "room", e.RoomID, "kind", e.Kind, "dropped_total", n)
	}
}

func (w *JournalWriter) Dropped() int64 { return w.dropped.Load() }

// Run пишет пачками до отмены ctx, затем досбрасывает очередь.
func (w *JournalWriter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.flushEvery)
	defer ticker.Stop()

	batch := make([]domain.JournalEntry, 0, w.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := w.store.Append(ctx, batch); err != nil {
			w.log.Error("journal flush failed", "count", len(batch), "err", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-w.queue:
			batch = append(batch, e)
			if len(batch) >= w.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			for {
				select {
				case e := <-w.queue:
					batch = append(batch, e)
					if len(batch) >= w.batchSize {
						flush(drainCtx)
					}
				default:
					flush(drainCtx)
					return nil
				}
			}
		}
	}
}
