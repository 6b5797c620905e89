package domain

import "time"

type EventKind string

const (
	EventStateChanged     EventKind = "state-changed"
	EventHeartbeat        EventKind = "heartbeat"
	EventSessionCompleted EventKind = "session-completed"
)

// Event is one notification emitted by the controller. Seq is assigned by
// the feed that records it and increases by one per event.
type Event struct {
	Seq     int64     `json:"seq"`
	Kind    EventKind `json:"kind"`
	At      time.Time `json:"at"`
	State   State     `json:"state"`
	Session *Session  `json:"session,omitempty"`
}
