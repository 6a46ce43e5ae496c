package service

import (
	"github.com/cwrk-planet/session-service/internal/domain"
)

// Notifier: явный список подписчиков комнаты и неблокирующая доставка.
// Реализуется ws.Hub.
type Notifier interface {
	Subscribe(roomID string, conn domain.ConnID)
	Unsubscribe(roomID string, conn domain.ConnID)
	Broadcast(roomID string, ev domain.Event, exclude domain.ConnID)
	Send(conn domain.ConnID, ev domain.Event) bool
	IsLive(conn domain.ConnID) bool
}

// Journal принимает записи без ожидания I/O.
type Journal interface {
	Record(entry domain.JournalEntry)
}

type nopJournal struct{}

func (nopJournal) Record(domain.JournalEntry) {}
