package http

import (
	"time"

	"github.com/cwrk-planet/session-service/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type RoomResponse struct {
	RoomID       string                   `json:"roomId"`
	Participants []domain.ParticipantView `json:"participants"`
	Call         *domain.CallSummary      `json:"call,omitempty"`
}

type RoomsListResponse struct {
	Items       []string `json:"items"`
	ActiveCalls int      `json:"activeCalls"`
}

type EventItem struct {
	ID           string        `json:"id"`
	Kind         string        `json:"kind"`
	DisplayName  string        `json:"displayName"`
	ConnectionID domain.ConnID `json:"connectionId,omitempty"`
	At           time.Time     `json:"at"`
}

type EventsResponse struct {
	Items      []EventItem `json:"items"`
	NextCursor string      `json:"nextCursor,omitempty"`
}
