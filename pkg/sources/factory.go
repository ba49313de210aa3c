package sources

import (
	"database/sql"

	"github.com/agentstation/catalogd/pkg/config"
	"github.com/agentstation/catalogd/pkg/errors"
	"github.com/agentstation/catalogd/pkg/sources/database"
	"github.com/agentstation/catalogd/pkg/sources/files"
	"github.com/agentstation/catalogd/pkg/substitute"
)

type options struct {
	substitute substitute.Func
	opener     database.Opener
}

// Option configures source selection.
type Option func(*options)

// WithSubstitution sets the variable substitution applied to property values.
func WithSubstitution(fn substitute.Func) Option {
	return func(o *options) {
		o.substitute = fn
	}
}

// WithDBOpener replaces sql.Open for the database source.
func WithDBOpener(open func(driver, dsn string) (*sql.DB, error)) Option {
	return func(o *options) {
		o.opener = open
	}
}

// New selects the Source variant named by cfg.SourceType. Selection is pure:
// nothing is opened or read until LoadAll.
func New(cfg config.Config, opts ...Option) (Source, error) {
	o := &options{substitute: substitute.Identity}
	for _, opt := range opts {
		opt(o)
	}

	switch config.ParseSourceType(string(cfg.SourceType)) {
	case config.SourceFile:
		return files.New(cfg.ConfigDir,
			files.WithExtensions(cfg.FileExtensions...),
			files.WithSubstitution(o.substitute),
		), nil
	case config.SourceDatabase:
		dbOpts := []database.Option{database.WithSubstitution(o.substitute)}
		if o.opener != nil {
			dbOpts = append(dbOpts, database.WithOpener(o.opener))
		}
		return database.New(cfg.Database, dbOpts...), nil
	default:
		return nil, &errors.UnsupportedSourceTypeError{Type: string(cfg.SourceType)}
	}
}
