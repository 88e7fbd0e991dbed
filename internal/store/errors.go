package store

import "errors"

// Domain errors for the store package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, store.ErrNoRow) {
//	    // absence is a valid cached state, not a failure
//	}
var (
	// ErrNoRow is returned by point queries when no row matches the filter.
	// Callers treat this as "unknown/none", never as a failure.
	ErrNoRow = errors.New("store: no row")

	// ErrFetch is returned when a query fails. Transient; shown as a
	// non-blocking status at the UI boundary.
	ErrFetch = errors.New("store: fetch failed")

	// ErrMutation is returned when a mutation fails. Local state is left
	// unchanged by callers.
	ErrMutation = errors.New("store: mutation failed")

	// ErrSubscription is returned when a change feed could not be
	// established. Not retried automatically; the next key activation
	// retries implicitly.
	ErrSubscription = errors.New("store: subscription failed")

	// ErrUnknownTable is returned when a table name is not in the schema map.
	ErrUnknownTable = errors.New("store: unknown table")

	// ErrUnknownColumn is returned when a filter or patch references a
	// column not in the schema map.
	ErrUnknownColumn = errors.New("store: unknown column")
)
