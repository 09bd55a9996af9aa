package models

import (
	"time"
)

type PartyStatus string

const (
	StatusWaiting PartyStatus = "WAITING"
	StatusSeated  PartyStatus = "SEATED"
)

// Party is one group in the waitlist. Position and EstimatedWait are only
// meaningful while the party is WAITING; SeatedAt is set iff it is SEATED.
type Party struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	PartySize     int         `json:"party_size"`
	Contact       string      `json:"contact,omitempty"`
	JoinedAt      time.Time   `json:"joined_at"`
	Status        PartyStatus `json:"status"` // WAITING, SEATED
	Position      int         `json:"position"`
	EstimatedWait int         `json:"estimated_wait"` // minutes
	SeatedAt      *time.Time  `json:"seated_at,omitempty"`
	Seq           uint64      `json:"seq"`
}

// Clone returns a deep copy so callers never share the store's pointers.
func (p *Party) Clone() Party {
	c := *p
	if p.SeatedAt != nil {
		at := *p.SeatedAt
		c.SeatedAt = &at
	}
	return c
}

// Public is a copy without the contact detail, which only staff may see.
func (p *Party) Public() Party {
	c := p.Clone()
	c.Contact = ""
	return c
}

func PublicParties(parties []Party) []Party {
	out := make([]Party, len(parties))
	for i := range parties {
		out[i] = parties[i].Public()
	}
	return out
}

// ArrivedBefore reports whether p is ahead of o in arrival order.
func (p *Party) ArrivedBefore(o *Party) bool {
	if p.JoinedAt.Equal(o.JoinedAt) {
		return p.Seq < o.Seq
	}
	return p.JoinedAt.Before(o.JoinedAt)
}

type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Seq         uint64    `json:"seq"`
	Waiting     []Party   `json:"waiting"`
	Count       int       `json:"count"`
	AverageWait float64   `json:"average_wait"`
}

func (s Snapshot) Public() Snapshot {
	s.Waiting = PublicParties(s.Waiting)
	return s
}
