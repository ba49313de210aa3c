package catalogs

import "encoding/json"

// Summary is the externally visible form of a Record. Property values are
// left out because they routinely carry credentials.
type Summary struct {
	Name         string      `json:"name" yaml:"name"`
	Connector    string      `json:"connector" yaml:"connector"`
	Fingerprint  Fingerprint `json:"fingerprint" yaml:"fingerprint"`
	PropertyKeys []string    `json:"property_keys" yaml:"property_keys"`
}

// Summary returns the record without property values.
func (r Record) Summary() Summary {
	return Summary{
		Name:         r.name,
		Connector:    r.connectorName,
		Fingerprint:  r.fingerprint,
		PropertyKeys: r.PropertyKeys(),
	}
}

// MarshalJSON encodes the record as its Summary.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Summary())
}

// Summaries maps records to their summaries, keeping order.
func Summaries(records []Record) []Summary {
	out := make([]Summary, 0, len(records))
	for _, r := range records {
		out = append(out, r.Summary())
	}
	return out
}
