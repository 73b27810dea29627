package backfill

import "context"

// Document is one stored record. Identity lives under IDField.
type Document map[string]any

// IDField is the key every stored record is addressed by.
const IDField = "_id"

// Update sets fields on the record with the given identity.
type Update struct {
	ID  any
	Set map[string]any
}

// Store opens connections to the configured database.
type Store interface {
	Connect(ctx context.Context) (Conn, error)
}

// Conn is one open connection bound to a database. Implementations must
// report a missing value as an absent key or a nil value; store-specific
// "undefined" markers are normalized to nil.
type Conn interface {
	// Probe reads the index metadata of collection and fails when the
	// collection does not exist.
	Probe(ctx context.Context, collection string) error
	// Scan calls fn for every record of collection in store order and
	// stops at the first error.
	Scan(ctx context.Context, collection string, fn func(Document) error) error
	// Apply performs field-level merge updates keyed by identity and
	// returns the number of records modified.
	Apply(ctx context.Context, collection string, updates []Update) (int64, error)
	// Close releases the connection.
	Close(ctx context.Context) error
}
