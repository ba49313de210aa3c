// Package files loads catalog definitions from a directory of property
// files. Each file with a recognised extension defines one catalog named
// after the file; its connector.name entry selects the connector and the
// remaining entries are passed to the connector as properties.
package files

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-ini/ini"

	"github.com/agentstation/catalogd/pkg/catalogs"
	"github.com/agentstation/catalogd/pkg/config"
	"github.com/agentstation/catalogd/pkg/constants"
	"github.com/agentstation/catalogd/pkg/errors"
	"github.com/agentstation/catalogd/pkg/logging"
	"github.com/agentstation/catalogd/pkg/substitute"
)

// Source reads catalogs from property files in a directory.
type Source struct {
	dir        string
	extensions []string
	substitute substitute.Func
}

// Option configures a Source.
type Option func(*Source)

// WithExtensions sets the recognised file extensions, including the dot.
func WithExtensions(exts ...string) Option {
	return func(s *Source) {
		if len(exts) > 0 {
			s.extensions = exts
		}
	}
}

// WithSubstitution sets the substitution applied to every property value.
func WithSubstitution(fn substitute.Func) Option {
	return func(s *Source) {
		if fn != nil {
			s.substitute = fn
		}
	}
}

// New returns a Source reading from dir.
func New(dir string, opts ...Option) *Source {
	s := &Source{
		dir:        dir,
		extensions: []string{constants.PropertiesExtension},
		substitute: substitute.Identity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the directory the source reads from.
func (s *Source) Dir() string { return s.dir }

// Extensions returns the recognised file extensions.
func (s *Source) Extensions() []string { return slices.Clone(s.extensions) }

// LoadAll parses every catalog file in the directory. A missing directory
// yields an empty set. A file without connector.name fails the whole load;
// a file whose connector.name is empty is skipped.
func (s *Source) LoadAll(ctx context.Context) (catalogs.Set, error) {
	logger := logging.FromContext(ctx)
	set := catalogs.Set{}

	info, err := os.Stat(s.dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug().Str("dir", s.dir).Msg("Catalog directory does not exist")
		return set, nil
	case err != nil:
		return nil, errors.NewSourceUnavailableError("file", "stat", s.dir, err)
	case !info.IsDir():
		logger.Warn().Str("dir", s.dir).Msg("Catalog path is not a directory")
		return set, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.NewSourceUnavailableError("file", "list", s.dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name, ok := s.catalogName(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())

		// Stat follows symlinks; entry.Type() does not.
		fi, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// dangling symlink or removed since listing
				continue
			}
			return nil, errors.NewSourceUnavailableError("file", "stat", path, err)
		}
		if !fi.Mode().IsRegular() {
			continue
		}

		record, ok, err := s.loadFile(name, path)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Warn().
				Str("catalog", name).
				Str("file", path).
				Msg("Skipping catalog with empty " + constants.ConnectorNameProperty)
			continue
		}
		set.Add(record)
		logger.Debug().
			Str("catalog", name).
			Str("connector", record.ConnectorName()).
			Str("file", path).
			Msg("Loaded catalog file")
	}

	return set, nil
}

// catalogName strips a recognised extension from file.
func (s *Source) catalogName(file string) (string, bool) {
	ext := filepath.Ext(file)
	if ext == "" || !slices.Contains(s.extensions, ext) {
		return "", false
	}
	name := strings.TrimSuffix(file, ext)
	return name, name != ""
}

// loadFile parses one catalog file. It reports false when connector.name is
// present but empty after substitution; a file without the key is malformed.
func (s *Source) loadFile(name, path string) (catalogs.Record, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return catalogs.Record{}, false, errors.NewSourceUnavailableError("file", "read", path, err)
	}

	props, err := ParseProperties(data)
	if err != nil {
		return catalogs.Record{}, false, errors.NewMalformedRecordError(name, path, "cannot parse properties", err)
	}

	for k, v := range props {
		props[k] = s.substitute(v)
	}

	raw, found := props[constants.ConnectorNameProperty]
	if !found {
		return catalogs.Record{}, false, errors.NewMalformedRecordError(name, path,
			"Catalog configuration does not contain "+constants.ConnectorNameProperty, nil)
	}
	delete(props, constants.ConnectorNameProperty)
	connector := strings.TrimSpace(raw)
	if connector == "" {
		return catalogs.Record{}, false, nil
	}

	record, err := catalogs.NewRecord(name, connector, props)
	if err != nil {
		return catalogs.Record{}, false, errors.NewMalformedRecordError(name, path, err.Error(), err)
	}
	return record, true, nil
}

// ParseProperties reads flat key=value lines. Sections are rejected since
// property files have none.
func ParseProperties(data []byte) (map[string]string, error) {
	f, err := ini.LoadSources(config.PropertiesLoadOptions(), data)
	if err != nil {
		return nil, errors.WrapParse("properties", "", err)
	}
	for _, section := range f.Sections() {
		if section.Name() != ini.DefaultSection && len(section.Keys()) > 0 {
			return nil, errors.NewParseError("properties", "", "unexpected section ["+section.Name()+"]", nil)
		}
	}
	return f.Section(ini.DefaultSection).KeysHash(), nil
}
