package domain

import "time"

// ConnID: непрозрачный идентификатор живого транспортного соединения.
type ConnID string

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Presence: либо Online, либо Offline. Других состояний нет.
type Presence interface {
	status() Status
}

type Online struct {
	ConnID ConnID
}

type Offline struct {
	Since time.Time
}

func (Online) status() Status  { return StatusOnline }
func (Offline) status() Status { return StatusOffline }

type Participant struct {
	RoomID      string
	DisplayName string
	JoinedAt    time.Time
	Presence    Presence
}

func (p Participant) Status() Status {
	if p.Presence == nil {
		return StatusOffline
	}
	return p.Presence.status()
}

// ConnID возвращает соединение только для online-участника.
func (p Participant) ConnID() (ConnID, bool) {
	on, ok := p.Presence.(Online)
	if !ok {
		return "", false
	}
	return on.ConnID, true
}

// OfflineSince: момент перехода в offline; ok=false для online.
func (p Participant) OfflineSince() (time.Time, bool) {
	off, ok := p.Presence.(Offline)
	if !ok {
		return time.Time{}, false
	}
	return off.Since, true
}

// ParticipantView: снимок участника для клиента (ростер, события).
type ParticipantView struct {
	RoomID       string    `json:"roomId"`
	DisplayName  string    `json:"displayName"`
	Status       Status    `json:"status"`
	ConnectionID ConnID    `json:"connectionId,omitempty"`
	JoinedAt     time.Time `json:"joinedAt"`
	LastSeen     time.Time `json:"lastSeen,omitempty"`
}

func (p Participant) View() ParticipantView {
	v := ParticipantView{
		RoomID:      p.RoomID,
		DisplayName: p.DisplayName,
		Status:      p.Status(),
		JoinedAt:    p.JoinedAt,
	}
	if id, ok := p.ConnID(); ok {
		v.ConnectionID = id
	}
	if since, ok := p.OfflineSince(); ok {
		v.LastSeen = since
	}
	return v
}
