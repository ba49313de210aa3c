// Package database loads catalog definitions from a relational registry
// table with the columns catalog_name, connector_name and properties, where
// properties holds a JSON object of string values.
//
// The default driver is pgx; lib/pq is also registered as "postgres".
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver

	"github.com/agentstation/catalogd/pkg/catalogs"
	"github.com/agentstation/catalogd/pkg/config"
	"github.com/agentstation/catalogd/pkg/constants"
	"github.com/agentstation/catalogd/pkg/errors"
	"github.com/agentstation/catalogd/pkg/logging"
	"github.com/agentstation/catalogd/pkg/substitute"
)

// Opener opens a database handle; sql.Open by default.
type Opener func(driver, dsn string) (*sql.DB, error)

// Source reads catalogs from a registry table.
type Source struct {
	cfg        config.DatabaseConfig
	open       Opener
	substitute substitute.Func
}

// Option configures a Source.
type Option func(*Source)

// WithOpener replaces sql.Open.
func WithOpener(open Opener) Option {
	return func(s *Source) {
		if open != nil {
			s.open = open
		}
	}
}

// WithSubstitution sets the substitution applied to the raw properties
// document before it is decoded.
func WithSubstitution(fn substitute.Func) Option {
	return func(s *Source) {
		if fn != nil {
			s.substitute = fn
		}
	}
}

// New returns a Source for cfg.
func New(cfg config.DatabaseConfig, opts ...Option) *Source {
	if cfg.Driver == "" {
		cfg.Driver = constants.DefaultDatabaseDriver
	}
	if cfg.Table == "" {
		cfg.Table = constants.DefaultCatalogTable
	}
	s := &Source{
		cfg:        cfg,
		open:       sql.Open,
		substitute: substitute.Identity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query returns the statement used to read the registry.
func (s *Source) Query() string {
	return fmt.Sprintf("SELECT catalog_name, connector_name, properties FROM %s", s.cfg.Table)
}

// LoadAll reads every row of the registry table. Rows with an empty field
// or an undecodable properties document are skipped. The connection is
// opened per call and released before returning.
func (s *Source) LoadAll(ctx context.Context) (catalogs.Set, error) {
	logger := logging.FromContext(ctx)

	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	dsn, err := DSN(s.cfg)
	if err != nil {
		return nil, errors.NewSourceUnavailableError("database", "open", s.cfg.Driver, err)
	}
	db, err := s.open(s.cfg.Driver, dsn)
	if err != nil {
		return nil, errors.NewSourceUnavailableError("database", "open", s.cfg.Driver, err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to close catalog database")
		}
	}()

	rows, err := db.QueryContext(ctx, s.Query())
	if err != nil {
		return nil, errors.NewSourceUnavailableError("database", "query", s.cfg.Table, err)
	}
	defer func() { _ = rows.Close() }()

	set := catalogs.Set{}
	for rows.Next() {
		var name, connector, properties sql.NullString
		if err := rows.Scan(&name, &connector, &properties); err != nil {
			return nil, errors.NewSourceUnavailableError("database", "scan", s.cfg.Table, err)
		}

		if name.String == "" || connector.String == "" || properties.String == "" {
			logger.Debug().
				Str("catalog", name.String).
				Str("connector", connector.String).
				Msg("Skipping catalog row with empty fields")
			continue
		}

		record, err := s.decode(name.String, connector.String, properties.String)
		if err != nil {
			logger.Warn().Err(err).Str("catalog", name.String).Msg("Skipping malformed catalog row")
			continue
		}
		set.Add(record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewSourceUnavailableError("database", "scan", s.cfg.Table, err)
	}

	logger.Debug().Int("catalogs", set.Len()).Str("table", s.cfg.Table).Msg("Loaded catalogs from database")
	return set, nil
}

func (s *Source) decode(name, connector, properties string) (catalogs.Record, error) {
	props, err := DecodeProperties(s.substitute(properties))
	if err != nil {
		return catalogs.Record{}, errors.NewMalformedRecordError(name, s.cfg.Table, "properties is not a flat JSON object", err)
	}
	record, err := catalogs.NewRecord(name, connector, props)
	if err != nil {
		return catalogs.Record{}, errors.NewMalformedRecordError(name, s.cfg.Table, err.Error(), err)
	}
	return record, nil
}

// DecodeProperties decodes a JSON object into string properties. Numbers
// and booleans are kept in their JSON text form, nulls are dropped, and
// nested values or trailing data are rejected.
func DecodeProperties(doc string) (map[string]string, error) {
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("properties must be a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after properties object")
	}

	props := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			props[k] = val
		case json.Number:
			props[k] = val.String()
		case bool:
			props[k] = strconv.FormatBool(val)
		default:
			return nil, fmt.Errorf("property %q must be a scalar, got %T", k, v)
		}
	}
	return props, nil
}
