// Package sources defines where catalog definitions come from.
//
// A Source produces the complete current set of catalog records on every
// call. Implementations live in the files and database subpackages; New
// selects one from configuration.
package sources

import (
	"context"

	"github.com/agentstation/catalogd/pkg/catalogs"
)

// Source loads every catalog definition currently present.
//
// LoadAll returns an *errors.SourceUnavailableError when the backing store
// cannot be read and an *errors.MalformedRecordError when a definition is
// unusable and the source treats that as fatal.
type Source interface {
	LoadAll(ctx context.Context) (catalogs.Set, error)
}

// Func adapts a plain function to Source.
type Func func(ctx context.Context) (catalogs.Set, error)

// LoadAll calls f.
func (f Func) LoadAll(ctx context.Context) (catalogs.Set, error) {
	return f(ctx)
}

// Static returns a Source that always yields the given records.
func Static(records ...catalogs.Record) Source {
	return Func(func(context.Context) (catalogs.Set, error) {
		return catalogs.NewSet(records...), nil
	})
}
