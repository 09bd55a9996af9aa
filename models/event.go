package models

import (
	"time"
)

type EventType string

const (
	EventJoined            EventType = "JOINED"
	EventCancelled         EventType = "CANCELLED"
	EventSeated            EventType = "SEATED"
	EventSkipped           EventType = "SKIPPED"
	EventSeatedListChanged EventType = "SEATED_LIST_CHANGED"

	// EventSnapshot is the bootstrap message a new observer receives first.
	EventSnapshot EventType = "SNAPSHOT"
	// EventResync tells a dropped observer to reconnect for a fresh snapshot.
	EventResync EventType = "RESYNC"
)

// ChangeEvent describes one committed state change together with the
// queue state that resulted from it.
type ChangeEvent struct {
	Type       EventType `json:"type"`
	Seq        uint64    `json:"seq"`
	Party      *Party    `json:"party,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Snapshot   Snapshot  `json:"snapshot"`
	Seated     []Party   `json:"seated"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Public strips contact details from every party the event carries.
func (ev ChangeEvent) Public() ChangeEvent {
	if ev.Party != nil {
		party := ev.Party.Public()
		ev.Party = &party
	}
	ev.Snapshot = ev.Snapshot.Public()
	ev.Seated = PublicParties(ev.Seated)
	return ev
}
