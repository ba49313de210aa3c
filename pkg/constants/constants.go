// Package constants provides shared constants used throughout catalogd.
package constants

import "time"

// Timing defaults.
const (
	// DefaultPollInterval is the delay between the end of one reconcile
	// cycle and the start of the next.
	DefaultPollInterval = 10 * time.Second

	// DefaultInitialDelay is the delay before the first scheduled cycle.
	DefaultInitialDelay = 60 * time.Second

	// DefaultQueryTimeout bounds a single database source load.
	DefaultQueryTimeout = 30 * time.Second

	// DefaultWatchDebounce coalesces bursts of file system events.
	DefaultWatchDebounce = 500 * time.Millisecond

	// DefaultConnectTimeout bounds connector connectivity checks.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown of the engine and server.
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultHTTPReadTimeout is the admin server read timeout.
	DefaultHTTPReadTimeout = 10 * time.Second

	// DefaultHTTPWriteTimeout is the admin server write timeout.
	DefaultHTTPWriteTimeout = 10 * time.Second

	// DefaultHTTPIdleTimeout is the admin server idle timeout.
	DefaultHTTPIdleTimeout = 120 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Catalog definition defaults.
const (
	// DefaultConfigDir is where property files are read from.
	DefaultConfigDir = "etc/catalog/"

	// PropertiesExtension is the default catalog file extension.
	PropertiesExtension = ".properties"

	// ConnectorNameProperty holds the connector type inside a property file.
	ConnectorNameProperty = "connector.name"

	// DefaultCatalogTable is the registry table read by the database source.
	DefaultCatalogTable = "catalog"

	// DefaultDatabaseDriver is the database/sql driver used by the database source.
	DefaultDatabaseDriver = "pgx"

	// EnvPrefix prefixes environment variable overrides of configuration keys.
	EnvPrefix = "CATALOGD"
)

// Admin server defaults.
const (
	DefaultHTTPHost = "localhost"
	DefaultHTTPPort = 8080
	APIPathPrefix   = "/v1"
)
