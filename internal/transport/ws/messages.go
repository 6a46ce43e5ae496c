package ws

import (
	"encoding/json"

	"github.com/cwrk-planet/session-service/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Входящие типы
const (
	TypeJoin      = "join"
	TypeReconnect = "reconnect"
	TypeLeaveRoom = "leave-room"
	TypeSignal    = "signal"
)

// Исходящие типы, которых нет среди domain.EventType
const (
	TypeConnected      = "connected"       // первый кадр: id соединения
	TypeNameTaken      = "name-taken"      // имя занято живым соединением
	TypeInvalidRequest = "invalid-request" // кривой join/reconnect
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// inbound: сырой кадр; payload разбирается по типу.
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type JoinPayload struct {
	RoomID      string `json:"roomId" validate:"required,max=128"`
	DisplayName string `json:"displayName" validate:"required,max=64"`
}

type SignalPayload struct {
	Kind               string          `json:"kind"`
	TargetConnectionID string          `json:"targetConnectionId,omitempty"`
	Payload            json.RawMessage `json:"payload,omitempty"`
}

type ConnectedPayload struct {
	ConnectionID domain.ConnID `json:"connectionId"`
}

type JoinAcceptedPayload struct {
	Participant *domain.ParticipantView `json:"participant"`
	Roster      []domain.ParticipantView `json:"roster"`
	Call        *domain.CallSummary      `json:"call,omitempty"`
}

type NameTakenPayload struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type ParticipantPayload struct {
	RoomID      string                  `json:"roomId"`
	Participant *domain.ParticipantView `json:"participant"`
}

type CallPayload struct {
	RoomID string              `json:"roomId"`
	Actor  string              `json:"actor,omitempty"`
	Call   *domain.CallSummary `json:"call,omitempty"`
}

// ForwardPayload: offer/answer/candidate и relay-события; payload отдаётся как пришёл.
type ForwardPayload struct {
	SenderConnectionID domain.ConnID   `json:"senderConnectionId"`
	Payload            json.RawMessage `json:"payload,omitempty"`
}

// toMessage переводит событие ядра в кадр протокола.
func toMessage(ev domain.Event) Message {
	switch ev.Type {
	case domain.EventJoinAccepted:
		roster := ev.Roster
		if roster == nil {
			roster = []domain.ParticipantView{}
		}
		return Message{Type: string(ev.Type), Payload: JoinAcceptedPayload{
			Participant: ev.Participant,
			Roster:      roster,
			Call:        ev.Call,
		}}
	case domain.EventParticipantJoined, domain.EventParticipantOnline, domain.EventParticipantLeft:
		return Message{Type: string(ev.Type), Payload: ParticipantPayload{
			RoomID:      ev.RoomID,
			Participant: ev.Participant,
		}}
	case domain.EventCallState,
		domain.EventType(domain.KindCallStart), domain.EventType(domain.KindCallJoin),
		domain.EventType(domain.KindCallLeave), domain.EventType(domain.KindCallEnd):
		return Message{Type: string(ev.Type), Payload: CallPayload{
			RoomID: ev.RoomID,
			Actor:  ev.Actor,
			Call:   ev.Call,
		}}
	}
	return Message{Type: string(ev.Type), Payload: ForwardPayload{
		SenderConnectionID: ev.SenderConnID,
		Payload:            ev.Payload,
	}}
}
