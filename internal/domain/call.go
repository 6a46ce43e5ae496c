package domain

import (
	"sort"
	"time"
)

type CallSession struct {
	RoomID       string
	StartedBy    string
	StartedAt    time.Time
	Participants map[string]struct{}
}

func (c *CallSession) Has(name string) bool {
	_, ok := c.Participants[name]
	return ok
}

func (c *CallSession) Summary() CallSummary {
	names := make([]string, 0, len(c.Participants))
	for n := range c.Participants {
		names = append(names, n)
	}
	sort.Strings(names)
	return CallSummary{
		RoomID:       c.RoomID,
		StartedBy:    c.StartedBy,
		StartedAt:    c.StartedAt,
		Participants: names,
	}
}

// CallSummary: то, что видит клиент; имена отсортированы.
type CallSummary struct {
	RoomID       string    `json:"roomId"`
	StartedBy    string    `json:"startedBy"`
	StartedAt    time.Time `json:"startedAt"`
	Participants []string  `json:"participants"`
}
