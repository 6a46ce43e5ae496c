package postgres

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/session-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_events (
	id           uuid        PRIMARY KEY,
	room_id      text        NOT NULL,
	kind         text        NOT NULL,
	display_name text        NOT NULL,
	conn_id      text        NOT NULL DEFAULT '',
	at           timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS session_events_room_at_idx
	ON session_events (room_id, at DESC, id DESC);
`

const insertEvent = `
	INSERT INTO session_events (id, room_id, kind, display_name, conn_id, at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

const historyQuery = `
	SELECT id::text AS id, room_id, kind, display_name, conn_id, at
	FROM session_events
	WHERE room_id = $1
	  AND (
	    $2::timestamptz IS NULL
	    OR at < $2
	    OR (at = $2 AND id < $3::uuid)
	  )
	ORDER BY at DESC, id DESC
	LIMIT $4
`

// DBTX: то, что нужно репозиторию от *pgxpool.Pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type JournalRepository struct {
	db DBTX
}

func NewJournalRepository(db DBTX) *JournalRepository {
	return &JournalRepository{db: db}
}

func (r *JournalRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("journal schema: %w", err)
	}
	return nil
}

// Append пишет пачку одним round-trip'ом.
func (r *JournalRepository) Append(ctx context.Context, entries []domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		b.Queue(insertEvent, id, e.RoomID, e.Kind, e.DisplayName, string(e.ConnID), e.At)
	}
	if err := r.db.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("journal append %d: %w", len(entries), err)
	}
	return nil
}

// History: события комнаты от новых к старым.
func (r *JournalRepository) History(ctx context.Context, roomID, cursor string, limit int) ([]domain.JournalEntry, string, error) {
	limit = clampLimit(limit)
	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	var at, id any
	if cur != nil {
		at, id = cur.At, cur.ID
	}
	rows, err := r.db.Query(ctx, historyQuery, roomID, at, id, limit)
	if err != nil {
		return nil, "", fmt.Errorf("journal history: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.JournalEntry])
	if err != nil {
		return nil, "", fmt.Errorf("journal history scan: %w", err)
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		if c, e := EncodeCursor(Cursor{At: last.At, ID: last.ID}); e == nil {
			next = c
		}
	}
	return out, next, nil
}
