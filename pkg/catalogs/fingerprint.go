package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint is the lowercase hex SHA-256 of a record's canonical encoding.
type Fingerprint string

// Short returns the first 12 characters, for display.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

func (f Fingerprint) String() string { return string(f) }

// canonicalRecord fixes field order; encoding/json sorts map keys, so the
// encoding of the properties is independent of insertion order.
type canonicalRecord struct {
	CatalogName   string            `json:"catalogName"`
	ConnectorName string            `json:"connectorName"`
	Properties    map[string]string `json:"properties"`
}

func computeFingerprint(r Record) Fingerprint {
	data, err := json.Marshal(canonicalRecord{
		CatalogName:   r.name,
		ConnectorName: r.connectorName,
		Properties:    r.properties,
	})
	if err != nil {
		// map[string]string always marshals
		panic(err)
	}
	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:]))
}
