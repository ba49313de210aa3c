package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-ini/ini"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/agentstation/catalogd/pkg/constants"
	"github.com/agentstation/catalogd/pkg/errors"
)

// Configuration keys.
const (
	KeySourceType           = "catalog.source.type"
	KeyConfigDir            = "catalog.config-dir"
	KeyFileExtensions       = "catalog.file-extensions"
	KeyPollInterval         = "catalog.detect.time.interval"
	KeyInitialDelay         = "catalog.detect.initial-delay"
	KeyDisabledCatalogs     = "catalog.disabled-catalogs"
	KeyDatabaseDriver       = "catalog.source.database.driver"
	KeyDatabaseURL          = "catalog.source.database.url"
	KeyDatabaseUser         = "catalog.source.database.user"
	KeyDatabasePassword     = "catalog.source.database.password"
	KeyDatabaseTable        = "catalog.source.database.table"
	KeyDatabaseQueryTimeout = "catalog.source.database.query-timeout"
	KeyWatchEnabled         = "catalog.watch.enabled"
	KeyWatchDebounce        = "catalog.watch.debounce"
)

// Keys accepted for compatibility with older deployments.
const (
	legacyKeyConfigDir        = "plugin.config-dir"
	legacyKeyDatabaseURL      = "catalog.source.mysql.url"
	legacyKeyDatabaseUser     = "catalog.source.mysql.user"
	legacyKeyDatabasePassword = "catalog.source.mysql.password"
)

// NewViper returns a viper instance wired for catalogd: environment
// variables prefixed with CATALOGD_ override file values, with "." and "-"
// mapped to "_".
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads an optional config file and the environment into a validated
// Config. YAML, JSON and TOML files go through viper's codecs; a
// .properties file is read as flat key=value pairs.
func Load(path string) (Config, error) {
	v := NewViper()
	if err := ReadFile(v, path); err != nil {
		return Config{}, err
	}
	cfg, err := FromViper(v)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadFile merges the config file at path into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if strings.EqualFold(filepath.Ext(path), constants.PropertiesExtension) {
		values, err := readProperties(path)
		if err != nil {
			return err
		}
		if err := v.MergeConfigMap(nest(values)); err != nil {
			return errors.NewConfigError("file", fmt.Sprintf("failed to merge %s", path), err)
		}
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.NewConfigError("file", fmt.Sprintf("failed to read %s", path), err)
	}
	return nil
}

// FromViper builds a Config from v, starting from Default and overriding
// every key that is set. Legacy keys are honoured when the current key is
// absent.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Default()

	if s, ok := lookupString(v, KeySourceType); ok {
		cfg.SourceType = ParseSourceType(s)
	}
	if s, ok := lookupString(v, KeyConfigDir, legacyKeyConfigDir); ok {
		cfg.ConfigDir = s
	}
	if v.IsSet(KeyFileExtensions) {
		cfg.FileExtensions = normaliseExtensions(lookupList(v, KeyFileExtensions))
	}
	if v.IsSet(KeyDisabledCatalogs) {
		cfg.DisabledCatalogs = lookupList(v, KeyDisabledCatalogs)
	}

	var err error
	if cfg.PollInterval, err = lookupSeconds(v, KeyPollInterval, cfg.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.InitialDelay, err = lookupSeconds(v, KeyInitialDelay, cfg.InitialDelay); err != nil {
		return Config{}, err
	}

	if s, ok := lookupString(v, KeyDatabaseDriver); ok {
		cfg.Database.Driver = s
	}
	if s, ok := lookupString(v, KeyDatabaseURL, legacyKeyDatabaseURL); ok {
		cfg.Database.URL = s
	}
	if s, ok := lookupString(v, KeyDatabaseUser, legacyKeyDatabaseUser); ok {
		cfg.Database.User = s
	}
	if s, ok := lookupString(v, KeyDatabasePassword, legacyKeyDatabasePassword); ok {
		cfg.Database.Password = s
	}
	if s, ok := lookupString(v, KeyDatabaseTable); ok {
		cfg.Database.Table = s
	}
	if cfg.Database.QueryTimeout, err = lookupSeconds(v, KeyDatabaseQueryTimeout, cfg.Database.QueryTimeout); err != nil {
		return Config{}, err
	}

	if v.IsSet(KeyWatchEnabled) {
		cfg.Watch.Enabled = v.GetBool(KeyWatchEnabled)
	}
	if cfg.Watch.Debounce, err = lookupSeconds(v, KeyWatchDebounce, cfg.Watch.Debounce); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func lookupString(v *viper.Viper, keys ...string) (string, bool) {
	for _, key := range keys {
		if v.IsSet(key) {
			if s := strings.TrimSpace(v.GetString(key)); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// lookupList accepts either a comma separated string or a list.
func lookupList(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case string:
		return SplitList(raw)
	default:
		var out []string
		for _, item := range cast.ToStringSlice(raw) {
			out = append(out, SplitList(item)...)
		}
		return out
	}
}

// lookupSeconds reads a duration given either as a bare number of seconds
// (the historical format) or as a Go duration string such as "1m30s".
func lookupSeconds(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	if !v.IsSet(key) {
		return fallback, nil
	}
	raw := v.Get(key)
	switch val := raw.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		return time.Duration(cast.ToFloat64(val) * float64(time.Second)), nil
	case time.Duration:
		return val, nil
	}

	s := strings.TrimSpace(cast.ToString(raw))
	if s == "" {
		return fallback, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.NewValidationError(key, s, "must be a number of seconds or a duration")
	}
	return d, nil
}

func normaliseExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// readProperties loads a flat key=value file with go-ini.
func readProperties(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("file", fmt.Sprintf("failed to read %s", path), err)
	}
	f, err := ini.LoadSources(PropertiesLoadOptions(), data)
	if err != nil {
		return nil, errors.NewConfigError("file", fmt.Sprintf("failed to parse %s", path), err)
	}
	return f.Section(ini.DefaultSection).KeysHash(), nil
}

// PropertiesLoadOptions configures go-ini for Java-style property files:
// no sections, "=" or ":" delimiters (the first one on the line wins),
// case-sensitive keys, and '#' kept inside values such as JDBC URLs.
// Keys without a value are rejected.
func PropertiesLoadOptions() ini.LoadOptions {
	return ini.LoadOptions{
		KeyValueDelimiters:      "=:",
		IgnoreInlineComment:     true,
		PreserveSurroundedQuote: true,
	}
}

// nest turns dotted keys into the nested maps viper expects from a config
// file. A key that is both a leaf and a prefix keeps the deeper value.
func nest(flat map[string]string) map[string]any {
	root := map[string]any{}
	for key, value := range flat {
		parts := strings.Split(strings.ToLower(key), ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		leaf := parts[len(parts)-1]
		if _, isMap := node[leaf].(map[string]any); !isMap {
			node[leaf] = value
		}
	}
	return root
}
