package entrant

import "context"

// Repository reads recipient records from the document store. Reads are
// issued fresh at the start of every fan-out: the status on selected-group
// records is the sole duplicate-suppression signal, so stale reads widen
// the (accepted) double-send window under concurrent invocations.
type Repository interface {
	// ListGroup returns every record in the named group for the event.
	// An empty group returns an empty slice, not an error.
	ListGroup(ctx context.Context, eventID string, group Group) ([]*Record, error)

	// Find returns one record, or shared.ErrEntrantNotFound.
	Find(ctx context.Context, eventID string, group Group, entrantID ID) (*Record, error)
}
