package domain

import "encoding/json"

type EventType string

const (
	EventJoinAccepted      EventType = "join-accepted"
	EventParticipantJoined EventType = "participant-joined"
	EventParticipantOnline EventType = "participant-online"
	EventParticipantLeft   EventType = "participant-left"
	EventCallState         EventType = "call-state"
)

// Event: исходящее событие ядра; транспорт сам решает, как его сериализовать.
type Event struct {
	Type        EventType
	RoomID      string
	Participant *ParticipantView
	Roster      []ParticipantView
	Actor       string
	Call        *CallSummary

	SenderConnID ConnID
	Payload      json.RawMessage
}

// CallEvent: событие жизненного цикла звонка, тип совпадает с kind конверта.
func CallEvent(kind Kind, roomID, actor string, call *CallSummary) Event {
	return Event{
		Type:   EventType(kind),
		RoomID: roomID,
		Actor:  actor,
		Call:   call,
	}
}

// ForwardEvent: переадресованный конверт с подставленным отправителем.
func ForwardEvent(roomID string, env Envelope) Event {
	return Event{
		Type:         EventType(env.Kind),
		RoomID:       roomID,
		SenderConnID: env.SenderConnID,
		Payload:      env.Payload,
	}
}
