package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"waitlist/models"
	"waitlist/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannelPublisher struct {
	mu       sync.Mutex
	channels []string
	messages []any
	err      error
}

func (p *fakeChannelPublisher) Publish(channel string, message any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, message)
	return p.err
}

func TestPartyChannel(t *testing.T) {
	assert.Equal(t, "party-abc", PartyChannel("abc"))
}

func TestNotificationService_Joined(t *testing.T) {
	pub := &fakeChannelPublisher{}
	svc := NewNotificationService(pub)

	party := models.Party{ID: "p1", Position: 3, EstimatedWait: 45}
	require.NoError(t, svc.Notify(context.Background(), models.EventJoined, party))

	require.Len(t, pub.channels, 1)
	assert.Equal(t, "party-p1", pub.channels[0])

	msg := pub.messages[0].(map[string]any)
	assert.Equal(t, "queue_status", msg["type"])
	assert.Equal(t, "WAITING", msg["status"])
	assert.Equal(t, 3, msg["position"])
	assert.Equal(t, 45, msg["estimated_wait"])
	assert.Contains(t, msg["message"], "#3")
}

func TestNotificationService_JoinedAtHead(t *testing.T) {
	pub := &fakeChannelPublisher{}
	svc := NewNotificationService(pub)

	require.NoError(t, svc.Notify(context.Background(), models.EventJoined, models.Party{ID: "p1", Position: 1}))

	msg := pub.messages[0].(map[string]any)
	assert.Contains(t, msg["message"], "next")
}

func TestNotificationService_Seated(t *testing.T) {
	pub := &fakeChannelPublisher{}
	svc := NewNotificationService(pub)

	require.NoError(t, svc.Notify(context.Background(), models.EventSeated, models.Party{ID: "p1"}))

	msg := pub.messages[0].(map[string]any)
	assert.Equal(t, "SEATED", msg["status"])
	assert.Equal(t, "Your table is ready", msg["message"])
}

func TestNotificationService_IgnoresOtherEvents(t *testing.T) {
	pub := &fakeChannelPublisher{}
	svc := NewNotificationService(pub)

	for _, kind := range []models.EventType{models.EventCancelled, models.EventSkipped, models.EventSeatedListChanged} {
		require.NoError(t, svc.Notify(context.Background(), kind, models.Party{ID: "p1"}))
	}
	assert.Empty(t, pub.channels)
}

func TestNotificationService_BreakerOpens(t *testing.T) {
	pub := &fakeChannelPublisher{err: errors.New("pubnub unavailable")}
	svc := NewNotificationService(pub)
	ctx := context.Background()
	party := models.Party{ID: "p1"}
	assert.Equal(t, utils.StateClosed, svc.Breaker().State())

	for i := 0; i < 5; i++ {
		err := svc.Notify(ctx, models.EventSeated, party)
		assert.ErrorContains(t, err, "pubnub unavailable")
	}

	err := svc.Notify(ctx, models.EventSeated, party)
	assert.ErrorIs(t, err, utils.ErrCircuitOpen)
	assert.Len(t, pub.channels, 5)
	assert.Equal(t, utils.StateOpen, svc.Breaker().State())
}
