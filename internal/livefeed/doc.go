// Package livefeed keeps an in-memory value synchronized with one row of
// the record store.
//
// A Feed binds a table and filter column to a decoded value type. Activating
// the feed for a key opens a change-feed subscription for that key, then
// performs a point fetch to seed the cache. Push events received over the
// subscription overwrite the cached value as they arrive (last write wins).
//
// Each activation carries a generation token. Updates produced by a previous
// activation, whether a late fetch response or a push on a stale
// subscription, are discarded instead of overwriting the current key's
// value. A fetch response is also discarded when a push for the same
// activation has already been applied, so the fetch can never roll the cache
// back behind a newer push.
//
// At most one subscription is open per feed at any time. Re-activating with
// a new key closes the previous subscription before opening the next one.
package livefeed
