// Package config holds the startup configuration of the catalog reconciler.
// A Config is built once, validated, and treated as immutable afterwards.
package config

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/agentstation/catalogd/pkg/constants"
	"github.com/agentstation/catalogd/pkg/errors"
)

// SourceType selects where catalog definitions are loaded from.
type SourceType string

// Supported source types.
const (
	SourceFile     SourceType = "FILE"
	SourceDatabase SourceType = "DATABASE"
)

// ParseSourceType normalises s. Unknown values are returned as-is (upper
// cased) and rejected later by source selection.
func ParseSourceType(s string) SourceType {
	return SourceType(strings.ToUpper(strings.TrimSpace(s)))
}

func (t SourceType) String() string { return string(t) }

// Config is the reconciler configuration.
type Config struct {
	SourceType       SourceType
	ConfigDir        string
	FileExtensions   []string
	PollInterval     time.Duration
	InitialDelay     time.Duration
	DisabledCatalogs []string
	Database         DatabaseConfig
	Watch            WatchConfig
}

// DatabaseConfig configures the relational catalog registry.
type DatabaseConfig struct {
	Driver       string
	URL          string
	User         string
	Password     string
	Table        string
	QueryTimeout time.Duration
}

// WatchConfig configures file system change notifications for the file source.
type WatchConfig struct {
	Enabled  bool
	Debounce time.Duration
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		SourceType:     SourceFile,
		ConfigDir:      constants.DefaultConfigDir,
		FileExtensions: []string{constants.PropertiesExtension},
		PollInterval:   constants.DefaultPollInterval,
		InitialDelay:   constants.DefaultInitialDelay,
		Database: DatabaseConfig{
			Driver:       constants.DefaultDatabaseDriver,
			Table:        constants.DefaultCatalogTable,
			QueryTimeout: constants.DefaultQueryTimeout,
		},
		Watch: WatchConfig{
			Debounce: constants.DefaultWatchDebounce,
		},
	}
}

var postgresSchemes = []string{"postgres", "postgresql"}

// urlScheme returns the lower-cased scheme of a URL style DSN, ignoring a
// leading "jdbc:". Key=value DSNs have none.
func urlScheme(dsn string) string {
	dsn = strings.TrimPrefix(strings.TrimSpace(dsn), "jdbc:")
	scheme, _, found := strings.Cut(dsn, "://")
	if !found {
		return ""
	}
	return strings.ToLower(scheme)
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate checks the configuration for internal consistency.
// The source type itself is checked by source selection.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.NewValidationError(KeyPollInterval, c.PollInterval, "must be positive")
	}
	if c.InitialDelay < 0 {
		return errors.NewValidationError(KeyInitialDelay, c.InitialDelay, "must not be negative")
	}
	switch c.SourceType {
	case SourceFile:
		if c.ConfigDir == "" {
			return errors.NewValidationError(KeyConfigDir, c.ConfigDir, "is required for FILE source")
		}
		if len(c.FileExtensions) == 0 {
			return errors.NewValidationError(KeyFileExtensions, c.FileExtensions, "at least one extension is required")
		}
	case SourceDatabase:
		if c.Database.URL == "" {
			return errors.NewValidationError(KeyDatabaseURL, "", "is required for DATABASE source")
		}
		if scheme := urlScheme(c.Database.URL); scheme != "" && !slices.Contains(postgresSchemes, scheme) {
			return errors.NewValidationError(KeyDatabaseURL, c.Database.URL,
				"scheme "+scheme+" is not supported, only PostgreSQL registries can be read")
		}
		if !tableName.MatchString(c.Database.Table) {
			return errors.NewValidationError(KeyDatabaseTable, c.Database.Table, "must be a plain or schema-qualified identifier")
		}
		if c.Database.QueryTimeout < 0 {
			return errors.NewValidationError(KeyDatabaseQueryTimeout, c.Database.QueryTimeout, "must not be negative")
		}
	}
	if c.Watch.Enabled && c.Watch.Debounce < 0 {
		return errors.NewValidationError(KeyWatchDebounce, c.Watch.Debounce, "must not be negative")
	}
	return nil
}

// IsDisabled reports whether name is in the disabled catalog list.
func (c Config) IsDisabled(name string) bool {
	for _, d := range c.DisabledCatalogs {
		if d == name {
			return true
		}
	}
	return false
}

// SplitList splits a comma separated list, trimming entries and dropping
// empty ones.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
