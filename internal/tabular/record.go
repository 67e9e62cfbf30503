package tabular

import (
	"encoding/json"
	"slices"
)

// IdentifierRecord is the ordered, non-empty list of identifiers taken from
// an uploaded file. It is immutable; accessors return copies.
type IdentifierRecord struct {
	values []string
}

// NewIdentifierRecord copies values into a record. It is exported for
// callers that already hold normalized identifiers (tests, the CLI).
func NewIdentifierRecord(values []string) IdentifierRecord {
	return IdentifierRecord{values: slices.Clone(values)}
}

// Len returns the number of identifiers.
func (r IdentifierRecord) Len() int {
	return len(r.values)
}

// IsZero reports whether the record holds no identifiers.
func (r IdentifierRecord) IsZero() bool {
	return len(r.values) == 0
}

// Values returns a copy of the identifiers.
func (r IdentifierRecord) Values() []string {
	return slices.Clone(r.values)
}

// Sample returns a copy of at most n identifiers from the start.
func (r IdentifierRecord) Sample(n int) []string {
	if n > len(r.values) {
		n = len(r.values)
	}
	if n < 0 {
		n = 0
	}
	return slices.Clone(r.values[:n])
}

// MarshalJSON encodes the record as a plain string array.
func (r IdentifierRecord) MarshalJSON() ([]byte, error) {
	if r.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.values)
}

// UnmarshalJSON decodes a plain string array.
func (r *IdentifierRecord) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	r.values = values
	return nil
}
