package services

import (
	"fmt"
	"sort"
	"time"
	"waitlist/internal/status"
	"waitlist/models"
)

// QueueStore holds the authoritative WAITING order and the SEATED set.
// It does no locking; QueueService owns it and serializes every call.
type QueueStore struct {
	waiting []*models.Party
	seated  []*models.Party
	byID    map[string]*models.Party
}

func NewQueueStore() *QueueStore {
	return &QueueStore{
		byID: make(map[string]*models.Party),
	}
}

// Insert places a WAITING party by (JoinedAt, Seq).
func (s *QueueStore) Insert(p *models.Party) error {
	if _, exists := s.byID[p.ID]; exists {
		return fmt.Errorf("%w: %s", status.ErrDuplicateIdentity, p.ID)
	}

	p.Status = models.StatusWaiting
	p.SeatedAt = nil

	i := sort.Search(len(s.waiting), func(i int) bool {
		return p.ArrivedBefore(s.waiting[i])
	})
	s.waiting = append(s.waiting, nil)
	copy(s.waiting[i+1:], s.waiting[i:])
	s.waiting[i] = p

	s.byID[p.ID] = p
	return nil
}

// Remove deletes a party from whichever set holds it.
func (s *QueueStore) Remove(id string) (*models.Party, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s is unknown", status.ErrNotFound, id)
	}

	if p.Status == models.StatusSeated {
		s.seated = removeParty(s.seated, id)
	} else {
		s.waiting = removeParty(s.waiting, id)
	}
	delete(s.byID, id)
	return p, nil
}

// Transition moves a WAITING party to SEATED, stamping SeatedAt.
func (s *QueueStore) Transition(id string, to models.PartyStatus, at time.Time) (*models.Party, error) {
	if to != models.StatusSeated {
		return nil, fmt.Errorf("%w: cannot transition to %s", status.ErrValidation, to)
	}

	p, err := s.waitingParty(id)
	if err != nil {
		return nil, err
	}

	s.waiting = removeParty(s.waiting, id)

	seatedAt := at
	p.Status = models.StatusSeated
	p.SeatedAt = &seatedAt
	p.Position = 0
	p.EstimatedWait = 0

	i := sort.Search(len(s.seated), func(i int) bool {
		return seatedBefore(p, s.seated[i])
	})
	s.seated = append(s.seated, nil)
	copy(s.seated[i+1:], s.seated[i:])
	s.seated[i] = p

	return p, nil
}

// OrderedWaiting returns the store's own WAITING pointers in arrival order.
// The slice is fresh; the parties are not.
func (s *QueueStore) OrderedWaiting() []*models.Party {
	out := make([]*models.Party, len(s.waiting))
	copy(out, s.waiting)
	return out
}

// SeatedSnapshot returns copies of the SEATED parties by SeatedAt.
func (s *QueueStore) SeatedSnapshot() []models.Party {
	out := make([]models.Party, 0, len(s.seated))
	for _, p := range s.seated {
		out = append(out, p.Clone())
	}
	return out
}

func (s *QueueStore) Get(id string) (*models.Party, bool) {
	p, ok := s.byID[id]
	return p, ok
}

func (s *QueueStore) Head() (*models.Party, bool) {
	if len(s.waiting) == 0 {
		return nil, false
	}
	return s.waiting[0], true
}

func (s *QueueStore) WaitingLen() int { return len(s.waiting) }

func (s *QueueStore) SeatedLen() int { return len(s.seated) }

// Verify checks the store invariants after a re-estimation.
func (s *QueueStore) Verify() error {
	for i, p := range s.waiting {
		if p.Status != models.StatusWaiting {
			return fmt.Errorf("party %s in waiting order has status %s", p.ID, p.Status)
		}
		if p.Position != i+1 {
			return fmt.Errorf("party %s at index %d has position %d", p.ID, i, p.Position)
		}
		if p.SeatedAt != nil {
			return fmt.Errorf("waiting party %s has seated_at", p.ID)
		}
		if p.PartySize < 1 {
			return fmt.Errorf("party %s has size %d", p.ID, p.PartySize)
		}
		if i > 0 && !s.waiting[i-1].ArrivedBefore(p) {
			return fmt.Errorf("party %s is out of arrival order", p.ID)
		}
	}
	for _, p := range s.seated {
		if p.Status != models.StatusSeated || p.SeatedAt == nil {
			return fmt.Errorf("seated party %s has status %s", p.ID, p.Status)
		}
	}
	if len(s.byID) != len(s.waiting)+len(s.seated) {
		return fmt.Errorf("index holds %d parties, sets hold %d", len(s.byID), len(s.waiting)+len(s.seated))
	}
	return nil
}

func (s *QueueStore) waitingParty(id string) (*models.Party, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s is unknown", status.ErrNotFound, id)
	}
	if p.Status != models.StatusWaiting {
		return nil, fmt.Errorf("%w: %s is %s", status.ErrNotFound, id, p.Status)
	}
	return p, nil
}

func (s *QueueStore) seatedParty(id string) (*models.Party, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s is unknown", status.ErrNotFound, id)
	}
	if p.Status != models.StatusSeated {
		return nil, fmt.Errorf("%w: %s is %s", status.ErrNotFound, id, p.Status)
	}
	return p, nil
}

func removeParty(list []*models.Party, id string) []*models.Party {
	for i, p := range list {
		if p.ID == id {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}

func seatedBefore(a, b *models.Party) bool {
	if a.SeatedAt.Equal(*b.SeatedAt) {
		return a.Seq < b.Seq
	}
	return a.SeatedAt.Before(*b.SeatedAt)
}
