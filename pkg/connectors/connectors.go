// Package connectors declares the collaborators the reconciliation engine
// drives: a registry that owns live connector instances and an announcer
// that tells the rest of the cluster which catalogs this node serves.
package connectors

import (
	"context"
	"time"
)

// Handle describes a connector the registry created.
type Handle struct {
	Catalog   string    `json:"catalog"`
	Connector string    `json:"connector"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry creates and drops connectors by catalog name.
type Registry interface {
	// CreateConnector instantiates a connector of the given type for catalog
	// name. Failures are reported and leave no live connector behind.
	CreateConnector(ctx context.Context, name, connectorName string, properties map[string]string) (Handle, error)

	// DropConnector releases the connector for name. Dropping an unknown
	// name is a no-op.
	DropConnector(ctx context.Context, name string)
}

// Announcer publishes catalog availability to cluster peers.
type Announcer interface {
	Publish(catalogName string)
	Retract(catalogName string)
}
