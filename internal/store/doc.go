// Package store defines the remote record store contract consumed by the
// live state synchronization core, and provides the production SQL-backed
// implementation.
//
// # Contract
//
// The store is a queryable, mutable record store that also emits change
// events per (table, key) subscription:
//
//   - GetLatest: point query for the most recent row matching a filter
//   - List: list query in association/insertion order
//   - Insert / Update: mutations; every successful mutation is published on
//     the change feed so all consumers (including the mutator) observe it
//   - Subscribe: at-least-once, order-preserving-per-key push feed
//
// Duplicate delivery is tolerated by consumers applying last-write-wins.
//
// # Production implementation
//
// SQLStore runs queries and mutations against the hub's SQLite database and
// carries the change feed over MQTT. The ingest service publishes telemetry
// and device rows on ventana/store/{table}/{key}; SQLStore publishes the rows
// it mutates on the same topics, which is how a mutation's confirmation comes
// back to the mutating consumer as a push event.
//
// Table and column names are validated against a fixed schema map before any
// SQL is built; unknown identifiers are rejected.
package store
