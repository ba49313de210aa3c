package events

import (
	"context"
	"slices"
	"sync"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Broker distributes published events to every subscriber.
type Broker struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	events      chan Event
	logger      *zerolog.Logger
}

// NewBroker creates a new event broker. Subscribers may be added before or
// after Run starts.
func NewBroker(logger *zerolog.Logger) *Broker {
	return &Broker{
		events: make(chan Event, 256),
		logger: logger,
	}
}

// Run delivers events until ctx is cancelled, then closes all subscribers.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			subs := b.subscribers
			b.subscribers = nil
			b.mu.Unlock()
			for _, sub := range subs {
				_ = sub.Close()
			}
			b.logger.Debug().Msg("Event broker shut down")
			return

		case event := <-b.events:
			b.mu.RLock()
			subs := slices.Clone(b.subscribers)
			b.mu.RUnlock()

			for _, sub := range subs {
				if err := sub.Send(event); err != nil {
					b.logger.Warn().
						Err(err).
						Str("event_type", string(event.Type)).
						Msg("Failed to send event to subscriber")
				}
			}

			b.logger.Debug().
				Str("event_type", string(event.Type)).
				Int("subscribers", len(subs)).
				Msg("Event broadcasted")
		}
	}
}

// Publish queues an event. Events are dropped when the queue is full.
func (b *Broker) Publish(eventType EventType, data any) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: utc.Now(),
		Data:      data,
	}

	select {
	case b.events <- event:
	default:
		b.logger.Warn().
			Str("event_type", string(eventType)).
			Msg("Event channel full, event dropped")
	}
}

// Subscribe registers a subscriber.
func (b *Broker) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

// Unsubscribe removes and closes a subscriber.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	idx := slices.Index(b.subscribers, sub)
	if idx >= 0 {
		b.subscribers = slices.Delete(b.subscribers, idx, idx+1)
	}
	b.mu.Unlock()

	if idx >= 0 {
		_ = sub.Close()
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
