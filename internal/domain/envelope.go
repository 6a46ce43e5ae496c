package domain

import "encoding/json"

type Kind string

const (
	KindCallStart Kind = "call-start"
	KindCallJoin  Kind = "call-join"
	KindCallLeave Kind = "call-leave"
	KindCallEnd   Kind = "call-end"

	KindOffer     Kind = "offer"
	KindAnswer    Kind = "answer"
	KindCandidate Kind = "candidate"
)

type Class int

const (
	ClassUnknown Class = iota
	ClassBroadcast
	ClassDirected
	ClassRelay
)

// Прозрачная ретрансляция (чат, файлы, рисование): состояние не трогаем.
var relayBroadcastKinds = map[Kind]struct{}{
	"chat-message":      {},
	"typing-start":      {},
	"typing-pause":      {},
	"file-created":      {},
	"file-updated":      {},
	"file-renamed":      {},
	"file-deleted":      {},
	"directory-created": {},
	"directory-updated": {},
	"directory-renamed": {},
	"directory-deleted": {},
	"drawing-update":    {},
	"request-drawing":   {},
}

var relayDirectedKinds = map[Kind]struct{}{
	"sync-file-structure": {},
	"sync-drawing":        {},
}

func (k Kind) Class() Class {
	switch k {
	case KindCallStart, KindCallJoin, KindCallLeave, KindCallEnd:
		return ClassBroadcast
	case KindOffer, KindAnswer, KindCandidate:
		return ClassDirected
	}
	if _, ok := relayDirectedKinds[k]; ok {
		return ClassDirected
	}
	if _, ok := relayBroadcastKinds[k]; ok {
		return ClassRelay
	}
	return ClassUnknown
}

// Envelope владеет роутер на время одного dispatch; не сохраняется.
type Envelope struct {
	Kind         Kind
	SenderConnID ConnID
	TargetConnID ConnID
	Payload      json.RawMessage
}
