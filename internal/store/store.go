package store

import (
	"context"
	"encoding/json"
)

// Filter selects rows by equality on a single column. This mirrors the
// remote store's filtered subscription primitive: one column, one value.
type Filter struct {
	Column string
	Value  string
}

// Event carries one pushed row change for a subscribed (table, key) pair.
type Event struct {
	// Table is the table the changed row belongs to.
	Table string

	// Key is the filter value the subscription was opened with.
	Key string

	// Row is the full new row as JSON.
	Row json.RawMessage
}

// Handler consumes push events for a subscription. Handlers are invoked
// from transport goroutines and must not block.
type Handler func(Event)

// Subscription is the handle for an open change feed. At most one
// subscription may be live per key at a time; callers release the old handle
// before opening a new one for a different key.
type Subscription interface {
	// Unsubscribe closes the feed. Safe to call more than once.
	Unsubscribe() error
}

// Store is the remote record store contract the synchronization core is
// written against.
//
// Delivery on subscriptions is at-least-once and ordered per key; consumers
// apply last-write-wins so duplicates are harmless. No ordering is guaranteed
// across distinct keys.
type Store interface {
	// GetLatest returns the most recent row matching filter, ordered by the
	// table's timestamp-like column. Returns ErrNoRow when nothing matches.
	GetLatest(ctx context.Context, table string, filter Filter) (json.RawMessage, error)

	// List returns all rows matching filter in association/insertion order.
	// An empty result is a valid response, not an error.
	List(ctx context.Context, table string, filter Filter) ([]json.RawMessage, error)

	// Insert adds a row and publishes it on the change feed.
	Insert(ctx context.Context, table string, row map[string]any) error

	// Update patches the rows matching filter and publishes the updated row
	// on the change feed keyed by filter.Value.
	Update(ctx context.Context, table string, filter Filter, patch map[string]any) error

	// Subscribe opens a change feed for rows matching filter. Events are
	// delivered in transport order for the key.
	Subscribe(table string, filter Filter, handler Handler) (Subscription, error)
}
