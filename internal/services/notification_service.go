package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"waitlist/models"
	"waitlist/utils"

	pubnub "github.com/pubnub/go"
)

// Publisher sends a message on a realtime channel.
type Publisher interface {
	Publish(channel string, message any) error
}

type pubnubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNubPublisher(pn *pubnub.PubNub) Publisher {
	return &pubnubPublisher{pn: pn}
}

func (p *pubnubPublisher) Publish(channel string, message any) error {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	return err
}

// NotificationService tells a party about its own progress on the
// party-<id> channel. Delivery is best effort.
type NotificationService struct {
	publisher Publisher
	breaker   *utils.CircuitBreaker
}

func NewNotificationService(publisher Publisher) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		breaker:   utils.NewCircuitBreaker("pubnub", 5, 30*time.Second),
	}
}

// Breaker exposes the circuit guarding the publisher for health reporting.
func (s *NotificationService) Breaker() *utils.CircuitBreaker {
	return s.breaker
}

func PartyChannel(partyID string) string {
	return fmt.Sprintf("party-%s", partyID)
}

func (s *NotificationService) Notify(ctx context.Context, kind models.EventType, party models.Party) error {
	message, ok := notificationMessage(kind, party)
	if !ok {
		return nil
	}

	channel := PartyChannel(party.ID)
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.publisher.Publish(channel, message)
	})
	if err != nil {
		return fmt.Errorf("notify %s on %s: %w", kind, channel, err)
	}

	slog.DebugContext(ctx, "notification sent", "channel", channel, "type", kind)
	return nil
}

func notificationMessage(kind models.EventType, party models.Party) (map[string]any, bool) {
	switch kind {
	case models.EventJoined:
		text := fmt.Sprintf("You joined the queue. You are #%d in line", party.Position)
		if party.Position == 1 {
			text = "You joined the queue. You're next!"
		}
		return map[string]any{
			"type":           "queue_status",
			"status":         string(models.StatusWaiting),
			"party_id":       party.ID,
			"position":       party.Position,
			"estimated_wait": party.EstimatedWait,
			"message":        text,
		}, true
	case models.EventSeated:
		return map[string]any{
			"type":     "queue_status",
			"status":   string(models.StatusSeated),
			"party_id": party.ID,
			"message":  "Your table is ready",
		}, true
	default:
		return nil, false
	}
}
