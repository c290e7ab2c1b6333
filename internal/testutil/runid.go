package testutil

// DefaultRunID is returned by a FixedRunID created with an empty id.
const DefaultRunID = "test-run-default"

// FixedRunID generates the same run id every time, so traces recorded by
// repeated runs of one scenario compare byte for byte.
//
// It satisfies store.IDGenerator. Stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator returning id, or DefaultRunID if id is
// empty.
func NewFixedRunID(id string) FixedRunID {
	if id == "" {
		id = DefaultRunID
	}
	return FixedRunID{id: id}
}

// Generate returns the fixed id.
func (g FixedRunID) Generate() string {
	return g.id
}
