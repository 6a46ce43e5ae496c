package domain

import "errors"

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNameTaken         = errors.New("display name already taken in the room")
	ErrUnknownTarget     = errors.New("unknown target connection")
	ErrMalformedEnvelope = errors.New("malformed signaling envelope")

	ErrNoOfflineSession = errors.New("no offline session to reclaim")
	ErrNoActiveCall     = errors.New("no active call in the room")
	ErrUnknownSender    = errors.New("sender is not an online participant")
	ErrNotInRoom        = errors.New("participant not in the room")
	ErrNotInCall        = errors.New("participant not in the call")
)
