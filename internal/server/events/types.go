// Package events fans catalog engine events out to streaming transports.
//
// Engine hooks publish into a Broker; the WebSocket hub and the SSE
// broadcaster subscribe to it through the adapters package.
package events

import (
	"github.com/agentstation/utc"
)

// EventType represents the type of catalog event.
type EventType string

// Event types.
const (
	CatalogAdded        EventType = "catalog.added"
	CatalogRemoved      EventType = "catalog.removed"
	CatalogFailed       EventType = "catalog.failed"
	CycleCompleted      EventType = "cycle.completed"
	CycleFailed         EventType = "cycle.failed"
	AnnouncementChanged EventType = "announcement.changed"

	// ClientConnected is sent by transports to a newly connected client.
	ClientConnected EventType = "client.connected"
)

// Event represents a catalog event with type, timestamp, and data.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp utc.Time  `json:"timestamp"`
	Data      any       `json:"data"`
}
