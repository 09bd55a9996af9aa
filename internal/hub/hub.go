package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"waitlist/models"
	"waitlist/monitoring"
)

var (
	ErrObserverExists   = errors.New("hub: observer already subscribed")
	ErrObserverNotFound = errors.New("hub: observer not found")
	ErrHubClosed        = errors.New("hub: closed")
)

// Subscription is one observer's ordered view of the event stream. The first
// message on C is always a SNAPSHOT. C is closed on Unsubscribe, on Close, or
// when the observer fell behind; Lagged tells the last case apart.
type Subscription struct {
	ID   string
	View string
	C    <-chan models.ChangeEvent

	ch      chan models.ChangeEvent
	lagged  atomic.Bool
	sent    atomic.Uint64
	dropped atomic.Uint64
}

func (s *Subscription) Lagged() bool { return s.lagged.Load() }

func (s *Subscription) Stats() ObserverStats {
	return ObserverStats{Sent: s.sent.Load(), Dropped: s.dropped.Load()}
}

type ObserverStats struct {
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// Hub fans committed change events out to every observer. Publish never
// blocks and never drops; a slow observer is cut off instead and has to
// re-subscribe for a fresh snapshot.
type Hub struct {
	bufferSize int
	monitor    *monitoring.Monitor

	inboxMu sync.Mutex
	inbox   []models.ChangeEvent
	wake    chan struct{}

	mu        sync.Mutex
	observers map[string]*Subscription
	snapshot  models.Snapshot
	seated    []models.Party
	closed    bool
}

func NewHub(bufferSize int, monitor *monitoring.Monitor) *Hub {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Hub{
		bufferSize: bufferSize,
		monitor:    monitor,
		wake:       make(chan struct{}, 1),
		observers:  make(map[string]*Subscription),
		snapshot:   models.Snapshot{Waiting: []models.Party{}, GeneratedAt: time.Now()},
		seated:     []models.Party{},
	}
}

// Prime seeds the cached state handed to new observers before any event
// has been published.
func (h *Hub) Prime(snapshot models.Snapshot, seated []models.Party) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = snapshot
	h.seated = seated
}

// Publish queues ev for delivery and returns immediately.
func (h *Hub) Publish(ev models.ChangeEvent) {
	h.inboxMu.Lock()
	h.inbox = append(h.inbox, ev)
	h.inboxMu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Run delivers queued events until ctx is cancelled, then closes the hub.
func (h *Hub) Run(ctx context.Context) {
	slog.Info("broadcast hub started", "buffer", h.bufferSize)
	for {
		select {
		case <-h.wake:
			h.drain()
		case <-ctx.Done():
			h.drain()
			h.Close()
			slog.Info("broadcast hub stopped")
			return
		}
	}
}

func (h *Hub) drain() {
	for {
		h.inboxMu.Lock()
		batch := h.inbox
		h.inbox = nil
		h.inboxMu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, ev := range batch {
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev models.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.snapshot = ev.Snapshot
	h.seated = ev.Seated

	for id, sub := range h.observers {
		select {
		case sub.ch <- ev:
			sub.sent.Add(1)
		default:
			sub.dropped.Add(1)
			sub.lagged.Store(true)
			h.removeLocked(id)
			h.monitor.TrackBroadcastDrop()
			slog.Warn("observer dropped, buffer full", "observer", id, "view", sub.View, "seq", ev.Seq)
		}
	}
}

// Subscribe registers an observer. Its first message is the cached snapshot,
// and every event after it follows in publication order.
func (h *Hub) Subscribe(observerID, view string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if _, exists := h.observers[observerID]; exists {
		return nil, ErrObserverExists
	}

	ch := make(chan models.ChangeEvent, h.bufferSize+1)
	sub := &Subscription{
		ID:   observerID,
		View: view,
		C:    ch,
		ch:   ch,
	}

	ch <- h.bootstrapLocked()
	sub.sent.Add(1)

	h.observers[observerID] = sub
	h.monitor.ObserverConnected(view)
	slog.Info("observer subscribed", "observer", observerID, "view", view, "observers", len(h.observers))
	return sub, nil
}

func (h *Hub) Unsubscribe(observerID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.observers[observerID]; !exists {
		return ErrObserverNotFound
	}
	h.removeLocked(observerID)
	slog.Info("observer unsubscribed", "observer", observerID, "observers", len(h.observers))
	return nil
}

// release removes sub only while it is still the subscription registered
// under its id. A reconnect that reused the id is left alone.
func (h *Hub) release(sub *Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, exists := h.observers[sub.ID]; !exists || current != sub {
		return false
	}
	h.removeLocked(sub.ID)
	stats := sub.Stats()
	slog.Info("observer released", "observer", sub.ID, "sent", stats.Sent, "observers", len(h.observers))
	return true
}

// Cached returns the last snapshot the hub has seen.
func (h *Hub) Cached() models.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot
}

func (h *Hub) ObserverCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

// Close disconnects every observer. Later Subscribe calls fail.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id := range h.observers {
		h.removeLocked(id)
	}
}

func (h *Hub) removeLocked(id string) {
	sub := h.observers[id]
	delete(h.observers, id)
	close(sub.ch)
	h.monitor.ObserverDisconnected(sub.View)
}

func (h *Hub) bootstrapLocked() models.ChangeEvent {
	return models.ChangeEvent{
		Type:       models.EventSnapshot,
		Seq:        h.snapshot.Seq,
		Snapshot:   h.snapshot,
		Seated:     h.seated,
		OccurredAt: time.Now(),
	}
}
