package domain

import "time"

// JournalEntry: запись журнала сессий (аудит переходов, не источник истины).
type JournalEntry struct {
	ID          string    `db:"id"`
	RoomID      string    `db:"room_id"`
	Kind        string    `db:"kind"`
	DisplayName string    `db:"display_name"`
	ConnID      ConnID    `db:"conn_id"`
	At          time.Time `db:"at"`
}

const (
	JournalJoined  = "participant-joined"
	JournalOnline  = "participant-online"
	JournalOffline = "participant-offline"
	JournalLeft    = "participant-left"
	JournalEvicted = "participant-evicted"
)
