package events

// Subscriber consumes events from a Broker.
type Subscriber interface {
	// Send delivers an event. It must not block.
	Send(Event) error

	// Close releases the subscriber.
	Close() error
}
