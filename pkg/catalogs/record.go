// Package catalogs models catalog definitions and the content-addressed sets
// used to detect which catalogs were added or removed between two loads.
//
// A Record is identified by its Fingerprint, a hash over the catalog name,
// connector name and properties. Two records with equal content always share
// a fingerprint, so a Set keyed by fingerprint can be diffed without looking
// at field values.
package catalogs

import (
	"maps"
	"slices"

	"github.com/agentstation/catalogd/pkg/errors"
)

// Record is an immutable catalog definition.
type Record struct {
	name          string
	connectorName string
	properties    map[string]string
	fingerprint   Fingerprint
}

// NewRecord builds a record, copying properties. Name and connector name
// must be non-empty.
func NewRecord(name, connectorName string, properties map[string]string) (Record, error) {
	if name == "" {
		return Record{}, errors.NewValidationError("name", name, "catalog name is required")
	}
	if connectorName == "" {
		return Record{}, errors.NewValidationError("connectorName", connectorName, "connector name is required")
	}

	props := make(map[string]string, len(properties))
	maps.Copy(props, properties)

	r := Record{
		name:          name,
		connectorName: connectorName,
		properties:    props,
	}
	r.fingerprint = computeFingerprint(r)
	return r, nil
}

// MustRecord is NewRecord that panics on invalid input. Intended for tests
// and static definitions.
func MustRecord(name, connectorName string, properties map[string]string) Record {
	r, err := NewRecord(name, connectorName, properties)
	if err != nil {
		panic(err)
	}
	return r
}

// Name returns the catalog name.
func (r Record) Name() string { return r.name }

// ConnectorName returns the connector type the catalog is served by.
func (r Record) ConnectorName() string { return r.connectorName }

// Fingerprint returns the content identity of the record.
func (r Record) Fingerprint() Fingerprint { return r.fingerprint }

// Properties returns a copy of the connector properties.
func (r Record) Properties() map[string]string {
	return maps.Clone(r.properties)
}

// Property returns a single property value.
func (r Record) Property(key string) (string, bool) {
	v, ok := r.properties[key]
	return v, ok
}

// PropertyKeys returns the property keys in sorted order.
func (r Record) PropertyKeys() []string {
	return slices.Sorted(maps.Keys(r.properties))
}

// IsZero reports whether r is the zero Record.
func (r Record) IsZero() bool {
	return r.fingerprint == ""
}

// Equal reports whether two records have the same content.
func (r Record) Equal(other Record) bool {
	return r.fingerprint == other.fingerprint
}
