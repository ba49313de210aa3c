package server

import (
	"net"
	"strconv"
	"time"

	"github.com/agentstation/catalogd/pkg/constants"
)

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string
	Port int

	// API settings
	PathPrefix string

	// AdminToken guards POST endpoints. Empty disables the check.
	AdminToken  string
	TokenHeader string

	CacheTTL time.Duration

	// HTTP timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Features
	MetricsEnabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           constants.DefaultHTTPHost,
		Port:           constants.DefaultHTTPPort,
		PathPrefix:     constants.APIPathPrefix,
		TokenHeader:    "X-Admin-Token",
		CacheTTL:       time.Minute,
		ReadTimeout:    constants.DefaultHTTPReadTimeout,
		WriteTimeout:   constants.DefaultHTTPWriteTimeout,
		IdleTimeout:    constants.DefaultHTTPIdleTimeout,
		MetricsEnabled: true,
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
