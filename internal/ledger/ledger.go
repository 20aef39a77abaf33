// Package ledger provides per-collection persistence with serialized
// read-modify-write semantics. Every entity in the system is stored as an
// ordered sequence of JSON-serializable records inside a named collection,
// and all mutation flows through Update, which commits the whole collection
// atomically or leaves the prior committed state untouched.
package ledger

import "context"

// Keyed is implemented by every record type stored in a collection.
type Keyed interface {
	RecordID() string
}

// Mutator transforms a collection snapshot into its next state. Returning an
// error aborts the update without persisting anything.
type Mutator[T Keyed] func(records []T) ([]T, error)

// Collection is the ledger contract. Update calls for the same collection
// never interleave: the mutator always observes the latest committed state,
// which is the synchronization primitive the scrim and ladder state machines
// rely on. Distinct collections are independent.
type Collection[T Keyed] interface {
	Read(ctx context.Context) ([]T, error)
	Update(ctx context.Context, mutate Mutator[T]) ([]T, error)
}

// Find returns the record with the given id, if present.
func Find[T Keyed](records []T, id string) (T, bool) {
	for _, record := range records {
		if record.RecordID() == id {
			return record, true
		}
	}
	var zero T
	return zero, false
}

// Replace swaps the record with the same id for updated, leaving order intact.
func Replace[T Keyed](records []T, updated T) []T {
	next := make([]T, len(records))
	for i, record := range records {
		if record.RecordID() == updated.RecordID() {
			next[i] = updated
		} else {
			next[i] = record
		}
	}
	return next
}
