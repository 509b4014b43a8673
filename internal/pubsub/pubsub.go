// Package pubsub implements the Redis pub/sub bus carrying adoption workflow
// events between instances.
//
// Every instance publishes events as part of processing a workflow mutation
// and subscribes to the same channels. On receipt, a subscriber invalidates
// its animal caches (animal events) and forwards adoption events to its
// local push hub, so a user connected to instance B still receives live
// events for a mutation handled by instance A. Publish failures are logged
// and swallowed; the bus is a best-effort side channel, never part of the
// primary mutation.
package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/barinakhq/shelter-backend/internal/cache"
)

// Bus channels.
const (
	ChannelAnimalUpdated    = "animal:updated"
	ChannelAdoptionApproved = "adoption:approved"
	ChannelAdoptionRejected = "adoption:rejected"
	ChannelAnimalAdopted    = "animal:adopted"
)

// AdoptionEvent is the payload for adoption lifecycle channels.
type AdoptionEvent struct {
	RequestID uint      `json:"request_id"`
	UserID    uint      `json:"user_id"`
	AnimalID  uint      `json:"animal_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AnimalEvent is the payload for animal lifecycle channels.
type AnimalEvent struct {
	AnimalID  uint      `json:"animal_id"`
	UserID    uint      `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits workflow events onto the bus.
type Publisher struct {
	client redis.UniversalClient
}

// NewPublisher returns a Publisher over the given Redis client. A nil client
// yields a no-op publisher.
func NewPublisher(client redis.UniversalClient) *Publisher {
	return &Publisher{client: client}
}

// publish marshals payload and publishes it, logging (not returning) errors.
func (p *Publisher) publish(ctx context.Context, channel string, payload any) {
	if p == nil || p.client == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("pubsub marshal failed")
		return
	}
	if err := p.client.Publish(ctx, channel, b).Err(); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("pubsub publish failed")
	}
}

// AdoptionApproved announces an approved request.
func (p *Publisher) AdoptionApproved(ctx context.Context, requestID, userID, animalID uint) {
	p.publish(ctx, ChannelAdoptionApproved, AdoptionEvent{
		RequestID: requestID, UserID: userID, AnimalID: animalID, Timestamp: time.Now().UTC(),
	})
}

// AdoptionRejected announces a rejected request.
func (p *Publisher) AdoptionRejected(ctx context.Context, requestID, userID, animalID uint, reason string) {
	p.publish(ctx, ChannelAdoptionRejected, AdoptionEvent{
		RequestID: requestID, UserID: userID, AnimalID: animalID, Reason: reason, Timestamp: time.Now().UTC(),
	})
}

// AnimalAdopted announces that an animal left the adoptable pool.
func (p *Publisher) AnimalAdopted(ctx context.Context, animalID, userID uint) {
	p.publish(ctx, ChannelAnimalAdopted, AnimalEvent{
		AnimalID: animalID, UserID: userID, Timestamp: time.Now().UTC(),
	})
}

// AnimalUpdated announces a direct edit to an animal record.
func (p *Publisher) AnimalUpdated(ctx context.Context, animalID uint) {
	p.publish(ctx, ChannelAnimalUpdated, AnimalEvent{
		AnimalID: animalID, Timestamp: time.Now().UTC(),
	})
}

// Invalidator is the cache surface the subscriber needs.
type Invalidator interface {
	Invalidate(ctx context.Context, pattern string) (int, error)
}

// Pusher is the live-delivery surface the subscriber needs.
type Pusher interface {
	PushTo(userID uint, event string, payload any)
}

// Subscriber consumes bus events and applies their local side effects:
// cache invalidation for animal data and push forwarding for adoption
// events targeting users connected to this instance.
type Subscriber struct {
	client redis.UniversalClient
	cache  Invalidator
	push   Pusher
}

// NewSubscriber returns a Subscriber wired to the local cache and push hub.
// Either dependency may be nil; the corresponding side effect is skipped.
func NewSubscriber(client redis.UniversalClient, cache Invalidator, push Pusher) *Subscriber {
	return &Subscriber{client: client, cache: cache, push: push}
}

// Run subscribes to all bus channels and dispatches messages until ctx is
// cancelled. It is meant to be launched as a goroutine from main.
func (s *Subscriber) Run(ctx context.Context) {
	if s.client == nil {
		return
	}
	sub := s.client.Subscribe(ctx,
		ChannelAnimalUpdated,
		ChannelAdoptionApproved,
		ChannelAdoptionRejected,
		ChannelAnimalAdopted,
	)
	defer func() { _ = sub.Close() }()
	log.Info().Msg("pubsub subscriber started")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.dispatch(ctx, msg.Channel, []byte(msg.Payload))
		}
	}
}

// dispatch routes one bus message to its handler.
func (s *Subscriber) dispatch(ctx context.Context, channel string, payload []byte) {
	switch channel {
	case ChannelAnimalUpdated, ChannelAnimalAdopted:
		var ev AnimalEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("pubsub decode failed")
			return
		}
		s.invalidateAnimal(ctx, ev.AnimalID)
	case ChannelAdoptionApproved, ChannelAdoptionRejected:
		var ev AdoptionEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("pubsub decode failed")
			return
		}
		s.invalidateAnimal(ctx, ev.AnimalID)
		if s.push != nil {
			s.push.PushTo(ev.UserID, "adoption_event", map[string]any{
				"channel":             channel,
				"adoption_request_id": ev.RequestID,
				"animal_id":           ev.AnimalID,
			})
		}
	default:
		log.Debug().Str("channel", channel).Msg("pubsub message on unknown channel")
	}
}

// invalidateAnimal drops the list caches and the specific animal entry.
func (s *Subscriber) invalidateAnimal(ctx context.Context, animalID uint) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Invalidate(ctx, cache.PatternAnimalLists); err != nil {
		log.Error().Err(err).Msg("pubsub cache invalidation failed")
	}
	if animalID != 0 {
		if _, err := s.cache.Invalidate(ctx, cache.AnimalKey(animalID)); err != nil {
			log.Error().Err(err).Msg("pubsub cache invalidation failed")
		}
	}
}
