package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
	"waitlist/config"
	"waitlist/internal/status"
	"waitlist/models"
	"waitlist/monitoring"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength    = 100
	maxContactLength = 254
)

var partyIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

// EventPublisher receives every committed change in commit order. Publish
// must not block.
type EventPublisher interface {
	Publish(ev models.ChangeEvent)
}

type Notifier interface {
	Notify(ctx context.Context, kind models.EventType, party models.Party) error
}

type AdmissionRecorder interface {
	RecordAdmission(ctx context.Context, rec models.AdmissionRecord) error
}

type JoinRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PartySize int    `json:"party_size"`
	Contact   string `json:"contact"`
}

// QueueService is the admission controller. Every write goes through mu, and
// the store is re-estimated and verified before the lock is released.
type QueueService struct {
	Config *config.Config

	mu             sync.RWMutex
	store          *QueueStore
	insertSeq      uint64
	eventSeq       uint64
	serviceMinutes int

	publisher EventPublisher
	notifier  Notifier
	recorder  AdmissionRecorder
	monitor   *monitoring.Monitor

	now func() time.Time
	wg  sync.WaitGroup
}

// NewQueueService wires the controller. notifier, recorder and monitor may be nil.
func NewQueueService(cfg *config.Config, publisher EventPublisher, notifier Notifier, recorder AdmissionRecorder, monitor *monitoring.Monitor) *QueueService {
	return &QueueService{
		Config:         cfg,
		store:          NewQueueStore(),
		serviceMinutes: cfg.ServiceTimeMinutes,
		publisher:      publisher,
		notifier:       notifier,
		recorder:       recorder,
		monitor:        monitor,
		now:            time.Now,
	}
}

func (s *QueueService) Join(ctx context.Context, req JoinRequest) (models.Party, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Contact = strings.TrimSpace(req.Contact)
	req.ID = strings.TrimSpace(req.ID)

	if err := s.validateJoin(req); err != nil {
		s.monitor.TrackQueueOperation("join", "validation_error")
		return models.Party{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	s.insertSeq++
	party := &models.Party{
		ID:        id,
		Name:      req.Name,
		PartySize: req.PartySize,
		Contact:   req.Contact,
		JoinedAt:  s.now(),
		Seq:       s.insertSeq,
	}

	if err := s.store.Insert(party); err != nil {
		s.monitor.TrackQueueOperation("join", "duplicate")
		return models.Party{}, err
	}

	s.reestimate()
	joined := party.Clone()
	s.commit(models.EventJoined, &joined, "")

	slog.InfoContext(ctx, "party joined", "party_id", joined.ID, "party_size", joined.PartySize, "position", joined.Position)
	s.monitor.TrackQueueOperation("join", "success")
	s.sideEffect(ctx, func(ctx context.Context) {
		s.notify(ctx, models.EventJoined, joined)
	})

	return joined, nil
}

func (s *QueueService) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.waitingParty(id); err != nil {
		s.monitor.TrackQueueOperation("cancel", "not_found")
		return err
	}

	removed, err := s.store.Remove(id)
	if err != nil {
		return err
	}

	s.reestimate()
	cancelled := removed.Clone()
	s.commit(models.EventCancelled, &cancelled, "")

	slog.InfoContext(ctx, "party cancelled", "party_id", id, "queue_length", s.store.WaitingLen())
	s.monitor.TrackQueueOperation("cancel", "success")
	return nil
}

// SeatNext admits the earliest WAITING party. The bool is false when the
// queue is empty; nothing is emitted in that case.
func (s *QueueService) SeatNext(ctx context.Context) (models.Party, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	head, ok := s.store.Head()
	if !ok {
		s.monitor.TrackQueueOperation("seat", "empty")
		return models.Party{}, false
	}

	seated, err := s.store.Transition(head.ID, models.StatusSeated, s.now())
	if err != nil {
		panic(fmt.Sprintf("waitlist: head %s could not be seated: %v", head.ID, err))
	}

	s.reestimate()
	party := seated.Clone()
	s.commit(models.EventSeated, &party, "")

	waited := party.SeatedAt.Sub(party.JoinedAt).Minutes()
	slog.InfoContext(ctx, "party seated", "party_id", party.ID, "waited_minutes", waited, "queue_length", s.store.WaitingLen())
	s.monitor.TrackQueueOperation("seat", "success")
	s.monitor.ObserveActualWait(waited)

	s.sideEffect(ctx, func(ctx context.Context) {
		s.notify(ctx, models.EventSeated, party)
		s.record(ctx, models.AdmissionRecord{
			PartyID:    party.ID,
			Name:       party.Name,
			PartySize:  party.PartySize,
			JoinedAt:   party.JoinedAt,
			SeatedAt:   *party.SeatedAt,
			WaitedMins: waited,
		})
	})

	return party, true
}

// Skip removes a WAITING party at any position without seating it.
func (s *QueueService) Skip(ctx context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.waitingParty(id); err != nil {
		s.monitor.TrackQueueOperation("skip", "not_found")
		return err
	}

	removed, err := s.store.Remove(id)
	if err != nil {
		return err
	}

	s.reestimate()
	skipped := removed.Clone()
	reason = strings.TrimSpace(reason)
	s.commit(models.EventSkipped, &skipped, reason)

	slog.InfoContext(ctx, "party skipped", "party_id", id, "reason", reason, "queue_length", s.store.WaitingLen())
	s.monitor.TrackQueueOperation("skip", "success")
	return nil
}

// Finish removes a SEATED party. WAITING positions are untouched.
func (s *QueueService) Finish(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.seatedParty(id); err != nil {
		s.monitor.TrackQueueOperation("finish", "not_found")
		return err
	}

	removed, err := s.store.Remove(id)
	if err != nil {
		return err
	}

	finished := removed.Clone()
	s.commit(models.EventSeatedListChanged, &finished, "")

	slog.InfoContext(ctx, "party finished", "party_id", id, "seated", s.store.SeatedLen())
	s.monitor.TrackQueueOperation("finish", "success")
	return nil
}

// Lookup returns the current record of a party in either state.
func (s *QueueService) Lookup(id string) (models.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.store.Get(id)
	if !ok {
		return models.Party{}, fmt.Errorf("%w: %s is unknown", status.ErrNotFound, id)
	}
	return p.Clone(), nil
}

// Peek returns the party that SeatNext would admit.
func (s *QueueService) Peek() (models.Party, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	head, ok := s.store.Head()
	if !ok {
		return models.Party{}, false
	}
	return head.Clone(), true
}

func (s *QueueService) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *QueueService) Seated() []models.Party {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.SeatedSnapshot()
}

// State returns the WAITING snapshot and SEATED list from one read.
func (s *QueueService) State() (models.Snapshot, []models.Party) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), s.store.SeatedSnapshot()
}

// SetServiceMinutes changes the per-party service time. Existing estimates
// keep their values until the next structural change.
func (s *QueueService) SetServiceMinutes(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: service time must be positive", status.ErrValidation)
	}

	s.mu.Lock()
	s.serviceMinutes = minutes
	s.mu.Unlock()
	return nil
}

// Shutdown waits for in-flight notifications and history writes.
func (s *QueueService) Shutdown() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		slog.Warn("timeout waiting for queue side effects to finish")
	}
}

func (s *QueueService) validateJoin(req JoinRequest) error {
	switch {
	case req.Name == "":
		return fmt.Errorf("%w: name is required", status.ErrValidation)
	case utf8.RuneCountInString(req.Name) > maxNameLength:
		return fmt.Errorf("%w: name exceeds %d characters", status.ErrValidation, maxNameLength)
	case req.PartySize < 1:
		return fmt.Errorf("%w: party size must be at least 1", status.ErrValidation)
	case s.Config.MaxPartySize > 0 && req.PartySize > s.Config.MaxPartySize:
		return fmt.Errorf("%w: party size must be at most %d", status.ErrValidation, s.Config.MaxPartySize)
	case len(req.Contact) > maxContactLength:
		return fmt.Errorf("%w: contact exceeds %d characters", status.ErrValidation, maxContactLength)
	case req.ID != "" && !partyIDPattern.MatchString(req.ID):
		return fmt.Errorf("%w: id must be 3-64 letters, digits, '-' or '_'", status.ErrValidation)
	}
	return nil
}

// reestimate must run with mu held.
func (s *QueueService) reestimate() {
	Estimate(s.store.OrderedWaiting(), s.serviceMinutes)
	if err := s.store.Verify(); err != nil {
		panic(fmt.Sprintf("waitlist: queue store corrupted: %v", err))
	}
}

// commit publishes the change with mu held so publication order matches
// mutation order.
func (s *QueueService) commit(kind models.EventType, party *models.Party, reason string) {
	s.eventSeq++
	snapshot := s.snapshotLocked()
	seated := s.store.SeatedSnapshot()

	s.monitor.SetQueueSizes(snapshot.Count, len(seated))

	if s.publisher == nil {
		return
	}
	s.publisher.Publish(models.ChangeEvent{
		Type:       kind,
		Seq:        s.eventSeq,
		Party:      party,
		Reason:     reason,
		Snapshot:   snapshot,
		Seated:     seated,
		OccurredAt: snapshot.GeneratedAt,
	})
}

func (s *QueueService) snapshotLocked() models.Snapshot {
	waiting := s.store.OrderedWaiting()
	parties := make([]models.Party, 0, len(waiting))
	totalWait := 0
	for _, p := range waiting {
		parties = append(parties, p.Clone())
		totalWait += p.EstimatedWait
	}

	return models.Snapshot{
		GeneratedAt: s.now(),
		Seq:         s.eventSeq,
		Waiting:     parties,
		Count:       len(parties),
		AverageWait: average(float64(totalWait), len(parties)),
	}
}

func (s *QueueService) sideEffect(ctx context.Context, fn func(ctx context.Context)) {
	if s.notifier == nil && s.recorder == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
}

func (s *QueueService) notify(ctx context.Context, kind models.EventType, party models.Party) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, kind, party); err != nil {
		slog.ErrorContext(ctx, "s.notifier.Notify()", "party_id", party.ID, "type", kind, "error", err)
	}
}

func (s *QueueService) record(ctx context.Context, rec models.AdmissionRecord) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordAdmission(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "s.recorder.RecordAdmission()", "party_id", rec.PartyID, "error", err)
	}
}

// average divides and rounds to one decimal, returning 0 for n == 0.
func average(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return decimal.NewFromFloat(sum).
		Div(decimal.NewFromInt(int64(n))).
		Round(1).
		InexactFloat64()
}
