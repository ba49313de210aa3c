package catalogs

import (
	"cmp"
	"maps"
	"slices"
)

// Set maps fingerprints to records. The key of every entry is the
// fingerprint of its value.
type Set map[Fingerprint]Record

// NewSet builds a set from records. Records with equal content collapse
// into one entry.
func NewSet(records ...Record) Set {
	s := make(Set, len(records))
	for _, r := range records {
		s.Add(r)
	}
	return s
}

// Add inserts r keyed by its fingerprint.
func (s Set) Add(r Record) {
	s[r.Fingerprint()] = r
}

// Remove deletes the entry for fingerprint f.
func (s Set) Remove(f Fingerprint) {
	delete(s, f)
}

// Contains reports whether a record with fingerprint f is in the set.
func (s Set) Contains(f Fingerprint) bool {
	_, ok := s[f]
	return ok
}

// Len returns the number of records.
func (s Set) Len() int { return len(s) }

// Clone returns a shallow copy. Records are immutable, so this is a full
// snapshot.
func (s Set) Clone() Set {
	if s == nil {
		return Set{}
	}
	return maps.Clone(s)
}

// Records returns the records sorted by name, then fingerprint.
func (s Set) Records() []Record {
	return SortRecords(slices.Collect(maps.Values(s)))
}

// Names returns the sorted catalog names in the set.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for _, r := range s.Records() {
		names = append(names, r.Name())
	}
	return names
}

// ByName returns the first record with the given catalog name.
func (s Set) ByName(name string) (Record, bool) {
	for _, r := range s.Records() {
		if r.Name() == name {
			return r, true
		}
	}
	return Record{}, false
}

// Diff holds the difference between an applied set and a freshly loaded one.
type Diff struct {
	// Added are records present in the current set but not applied.
	Added []Record
	// Removed are applied records absent from the current set.
	Removed []Record
	// Unchanged counts records present in both.
	Unchanged int
}

// IsEmpty reports whether the diff carries no changes.
func (d Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Compare computes added = current \ applied and removed = applied \ current
// by fingerprint. Both slices are sorted by name.
func Compare(applied, current Set) Diff {
	var d Diff
	for f, r := range applied {
		if current.Contains(f) {
			d.Unchanged++
			continue
		}
		d.Removed = append(d.Removed, r)
	}
	for f, r := range current {
		if !applied.Contains(f) {
			d.Added = append(d.Added, r)
		}
	}
	SortRecords(d.Removed)
	SortRecords(d.Added)
	return d
}

// SortRecords sorts records in place by name, then fingerprint, and returns them.
func SortRecords(records []Record) []Record {
	slices.SortFunc(records, func(a, b Record) int {
		return cmp.Or(
			cmp.Compare(a.Name(), b.Name()),
			cmp.Compare(a.Fingerprint(), b.Fingerprint()),
		)
	})
	return records
}
