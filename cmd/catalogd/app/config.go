package app

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/catalogd/pkg/constants"
)

// Config holds the command line configuration. Reconciler settings live in
// pkg/config and are read from the file named by ConfigFile.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// ConfigFile is the reconciler config file (YAML, JSON, TOML or .properties).
	ConfigFile string

	// Admin server
	Host           string
	Port           int
	AdminToken     string
	MetricsEnabled bool

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration in order of precedence:
//  1. Command-line flags (handled by cobra)
//  2. Environment variables
//  3. .env and .env.local files
//  4. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("config", "")
	v.SetDefault("host", constants.DefaultHTTPHost)
	v.SetDefault("port", constants.DefaultHTTPPort)
	v.SetDefault("admin_token", "")
	v.SetDefault("metrics", true)

	return &Config{
		ConfigFile:     v.GetString("config"),
		Host:           v.GetString("host"),
		Port:           v.GetInt("port"),
		AdminToken:     v.GetString("admin_token"),
		MetricsEnabled: v.GetBool("metrics"),

		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}, nil
}

// UpdateFromFlags applies parsed global flags on top of the loaded values.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads .env files. Existing variables are never overridden,
// and .env.local is read first so it takes precedence over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
