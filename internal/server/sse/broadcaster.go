// Package sse streams catalog events to HTTP clients as Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"
)

// Event represents an SSE event.
type Event struct {
	Event string `json:"event,omitempty"` // Event type (optional)
	ID    string `json:"id,omitempty"`    // Event ID (optional)
	Data  any    `json:"data"`            // Event data
}

// Broadcaster manages Server-Sent Events connections.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[chan Event]struct{}
	closed  bool
	logger  *zerolog.Logger
}

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		clients: make(map[chan Event]struct{}),
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (b *Broadcaster) Run(ctx context.Context) {
	<-ctx.Done()

	b.mu.Lock()
	b.closed = true
	for client := range b.clients {
		close(client)
	}
	b.clients = make(map[chan Event]struct{})
	b.mu.Unlock()
	b.logger.Debug().Msg("SSE broadcaster shut down")
}

// Broadcast sends an event to all connected clients. Clients whose buffer is
// full miss the event.
func (b *Broadcaster) Broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- event:
		default:
			b.logger.Warn().Msg("SSE client buffer full, event skipped")
		}
	}
}

// ClientCount returns the number of connected SSE clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) add() (chan Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, false
	}
	client := make(chan Event, 64)
	b.clients[client] = struct{}{}
	b.logger.Debug().Int("total_clients", len(b.clients)).Msg("SSE client connected")
	return client, true
}

func (b *Broadcaster) remove(client chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
		b.logger.Debug().Int("total_clients", len(b.clients)).Msg("SSE client disconnected")
	}
}

// ServeHTTP handles SSE connections.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, ok := b.add()
	if !ok {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer b.remove(client)

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	b.writeEvent(w, flusher, Event{
		Event: "client.connected",
		Data: map[string]any{
			"message":   "Connected to catalog event stream",
			"timestamp": utc.Now(),
		},
	})

	for {
		select {
		case event, ok := <-client:
			if !ok {
				return
			}
			b.writeEvent(w, flusher, event)

		case <-r.Context().Done():
			return
		}
	}
}

// writeEvent writes an SSE event to the response writer.
func (b *Broadcaster) writeEvent(w http.ResponseWriter, flusher http.Flusher, event Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to marshal SSE event data")
		return
	}

	if event.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event.Event)
	}
	if event.ID != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", event.ID)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
