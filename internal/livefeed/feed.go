package livefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ventanahq/ventana-core/internal/store"
)

// Source is the subset of the record store a Feed depends on.
// *store.SQLStore satisfies it.
type Source interface {
	GetLatest(ctx context.Context, table string, filter store.Filter) (json.RawMessage, error)
	Subscribe(table string, filter store.Filter, handler store.Handler) (store.Subscription, error)
}

// DecodeFunc converts a raw store row into the feed's value type.
type DecodeFunc[T any] func(json.RawMessage) (T, error)

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Feed caches the latest decoded row for one key of one table.
//
// All methods are safe for concurrent use. The onChange callback is invoked
// outside the feed's lock, after each applied update.
type Feed[T any] struct {
	source   Source
	table    string
	column   string
	decode   DecodeFunc[T]
	onChange func(T)
	logger   Logger

	mu       sync.Mutex
	gen      uint64
	key      string
	sub      store.Subscription
	value    T
	hasValue bool
	// pushed marks that at least one push has been applied in the current
	// generation. The activation fetch result is discarded once set.
	pushed bool
}

// New creates a feed over source for one table, filtered by filterColumn.
func New[T any](source Source, table, filterColumn string, decode DecodeFunc[T]) *Feed[T] {
	return &Feed[T]{
		source: source,
		table:  table,
		column: filterColumn,
		decode: decode,
		logger: noopLogger{},
	}
}

// SetLogger attaches a logger. Pass nil to silence the feed.
func (f *Feed[T]) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	f.logger = logger
}

// OnChange registers a callback invoked after every applied update.
// It must be set before the first Activate call.
func (f *Feed[T]) OnChange(fn func(T)) {
	f.onChange = fn
}

// Activate switches the feed to key.
//
// The previous subscription, if any, is closed first. A new subscription is
// opened before the seed fetch is issued, so a change that lands between
// fetch issuance and fetch completion is still reflected. The fetch result
// seeds the cache only when no push has been applied in the meantime.
//
// A missing row is not an error; the cache simply stays empty until the
// first push arrives. A fetch failure leaves the subscription active.
func (f *Feed[T]) Activate(ctx context.Context, key string) error {
	f.mu.Lock()
	f.closeSubscriptionLocked()
	f.gen++
	gen := f.gen
	f.key = key
	var zero T
	f.value = zero
	f.hasValue = false
	f.pushed = false
	f.mu.Unlock()

	filter := store.Filter{Column: f.column, Value: key}

	sub, err := f.source.Subscribe(f.table, filter, func(e store.Event) {
		f.applyPush(gen, e.Row)
	})
	if err != nil {
		return fmt.Errorf("activating feed for %s/%s: %w", f.table, key, err)
	}

	f.mu.Lock()
	if f.gen != gen {
		// Superseded while the subscription was being opened.
		f.mu.Unlock()
		if err := sub.Unsubscribe(); err != nil {
			f.logger.Warn("livefeed: closing superseded subscription failed",
				"table", f.table, "key", key, "error", err)
		}
		return nil
	}
	f.sub = sub
	f.mu.Unlock()

	raw, err := f.source.GetLatest(ctx, f.table, filter)
	if err != nil {
		if errors.Is(err, store.ErrNoRow) {
			f.logger.Debug("livefeed: no row yet", "table", f.table, "key", key)
			return nil
		}
		return fmt.Errorf("seeding feed for %s/%s: %w", f.table, key, err)
	}
	f.applyFetch(gen, raw)
	return nil
}

// Deactivate closes the current subscription and clears the cache.
// Safe to call when the feed is not active.
func (f *Feed[T]) Deactivate() {
	f.mu.Lock()
	f.gen++
	f.closeSubscriptionLocked()
	f.key = ""
	var zero T
	f.value = zero
	f.hasValue = false
	f.pushed = false
	f.mu.Unlock()
}

// Set overwrites the cached value when key matches the current activation.
// A value produced for a key the feed has since moved away from is dropped.
// Subsequent push events still take precedence as they arrive.
func (f *Feed[T]) Set(key string, v T) {
	f.mu.Lock()
	if f.key != key {
		f.mu.Unlock()
		return
	}
	f.value = v
	f.hasValue = true
	f.pushed = true
	f.mu.Unlock()
	f.notify(v)
}

// Value returns the cached value and whether one has been applied since the
// last activation.
func (f *Feed[T]) Value() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.hasValue
}

// Key returns the key of the current activation, or "" when inactive.
func (f *Feed[T]) Key() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key
}

func (f *Feed[T]) applyPush(gen uint64, raw json.RawMessage) {
	v, err := f.decode(raw)
	if err != nil {
		f.logger.Warn("livefeed: decoding push failed", "table", f.table, "error", err)
		return
	}

	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return
	}
	f.value = v
	f.hasValue = true
	f.pushed = true
	f.mu.Unlock()
	f.notify(v)
}

func (f *Feed[T]) applyFetch(gen uint64, raw json.RawMessage) {
	v, err := f.decode(raw)
	if err != nil {
		f.logger.Warn("livefeed: decoding fetch result failed", "table", f.table, "error", err)
		return
	}

	f.mu.Lock()
	if f.gen != gen || f.pushed {
		f.mu.Unlock()
		return
	}
	f.value = v
	f.hasValue = true
	f.mu.Unlock()
	f.notify(v)
}

// closeSubscriptionLocked closes the open subscription, if any.
// The caller must hold f.mu.
func (f *Feed[T]) closeSubscriptionLocked() {
	if f.sub == nil {
		return
	}
	if err := f.sub.Unsubscribe(); err != nil {
		f.logger.Warn("livefeed: unsubscribe failed", "table", f.table, "key", f.key, "error", err)
	}
	f.sub = nil
}

func (f *Feed[T]) notify(v T) {
	if f.onChange != nil {
		f.onChange(v)
	}
}
