package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ventanahq/ventana-core/internal/infrastructure/mqtt"
)

// Logger defines the logging interface used by SQLStore.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Transport is the change-feed transport SQLStore publishes and subscribes
// on. *mqtt.Client satisfies it.
type Transport interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// tableSpec describes one table the store may touch. All identifiers in
// generated SQL come from this map, never from caller input.
type tableSpec struct {
	columns map[string]struct{}

	// latestOrder orders point queries so GetLatest returns the most
	// recent row. Defaults to rowid DESC.
	latestOrder string
}

// schema is the fixed set of hub tables the dashboard core works with.
var schema = map[string]tableSpec{
	"spaces": {
		columns: colSet("id", "user_id", "name", "description", "created_at"),
	},
	"device": {
		columns: colSet("id", "name", "description", "hardware_id", "image_url", "is_open", "created_at"),
	},
	"spaces_has_devices": {
		columns: colSet("space_id", "device_id"),
	},
	"telemetry": {
		columns:     colSet("id", "device_id", "ts", "temp_in", "temp_out", "hum_in", "hum_out", "gases", "motion", "obstacle", "rain", "raw"),
		latestOrder: "ts DESC, id DESC",
	},
}

// spaceDevicesTable is a read-only pseudo-table: the devices associated to a
// space, in association insertion order. Association order is the
// authoritative display order; there is no independent sort key.
const spaceDevicesTable = "space_devices"

const spaceDevicesSQL = `
	SELECT d.id, d.name, d.description, d.hardware_id,
		d.image_url, d.is_open, d.created_at
	FROM spaces_has_devices shd
	JOIN device d ON d.id = shd.device_id
	WHERE shd.space_id = ?
	ORDER BY shd.rowid`

func colSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// SQLStore implements Store against the hub's SQLite database, with the
// change feed carried over MQTT.
type SQLStore struct {
	db        *sql.DB
	transport Transport
	qos       byte
	logger    Logger
}

// NewSQLStore creates a store over an open database connection and a
// connected change-feed transport.
func NewSQLStore(db *sql.DB, transport Transport) *SQLStore {
	return &SQLStore{
		db:        db,
		transport: transport,
		qos:       1,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *SQLStore) SetLogger(logger Logger) {
	s.logger = logger
}

// GetLatest returns the most recent row matching filter.
func (s *SQLStore) GetLatest(ctx context.Context, table string, filter Filter) (json.RawMessage, error) {
	spec, err := s.tableFor(table, filter.Column)
	if err != nil {
		return nil, err
	}

	order := spec.latestOrder
	if order == "" {
		order = "rowid DESC"
	}

	// Identifiers come from the schema map; only the value is bound.
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? ORDER BY %s LIMIT 1", table, filter.Column, order)

	rows, err := s.db.QueryContext(ctx, query, filter.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer rows.Close()

	result, err := scanJSONRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if len(result) == 0 {
		return nil, ErrNoRow
	}
	return result[0], nil
}

// List returns all rows matching filter in insertion order.
func (s *SQLStore) List(ctx context.Context, table string, filter Filter) ([]json.RawMessage, error) {
	var query string
	switch {
	case table == spaceDevicesTable:
		if filter.Column != "space_id" {
			return nil, fmt.Errorf("%w: %s is filtered by space_id only", ErrUnknownColumn, spaceDevicesTable)
		}
		query = spaceDevicesSQL
	default:
		if _, err := s.tableFor(table, filter.Column); err != nil {
			return nil, err
		}
		query = fmt.Sprintf("SELECT * FROM %s WHERE %s = ? ORDER BY rowid", table, filter.Column)
	}

	rows, err := s.db.QueryContext(ctx, query, filter.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer rows.Close()

	result, err := scanJSONRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return result, nil
}

// Insert adds a row and publishes it on the change feed.
func (s *SQLStore) Insert(ctx context.Context, table string, row map[string]any) error {
	spec, ok := schema[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if len(row) == 0 {
		return fmt.Errorf("%w: empty row", ErrMutation)
	}

	// Deterministic column order for the generated statement.
	cols := make([]string, 0, len(row))
	for col := range row {
		if _, ok := spec.columns[col]; !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := make([]any, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	for _, col := range cols {
		args = append(args, row[col])
		placeholders = append(placeholders, "?")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrMutation, err)
	}

	s.publishRow(table, eventKey(row), row)
	return nil
}

// Update patches the rows matching filter and publishes the updated row.
func (s *SQLStore) Update(ctx context.Context, table string, filter Filter, patch map[string]any) error {
	spec, err := s.tableFor(table, filter.Column)
	if err != nil {
		return err
	}
	if len(patch) == 0 {
		return fmt.Errorf("%w: empty patch", ErrMutation)
	}

	cols := make([]string, 0, len(patch))
	for col := range patch {
		if _, ok := spec.columns[col]; !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		args = append(args, patch[col])
	}
	args = append(args, filter.Value)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", table, strings.Join(sets, ", "), filter.Column)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMutation, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMutation, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: no row matches %s = %s", ErrMutation, filter.Column, filter.Value)
	}

	// Publish the confirmed row so every subscriber, the mutator included,
	// observes the change as a push event.
	updated, err := s.GetLatest(ctx, table, filter)
	if err != nil {
		s.logger.Warn("store: reading back updated row failed", "table", table, "key", filter.Value, "error", err)
		return nil
	}
	s.publishRaw(table, filter.Value, updated)
	return nil
}

// Subscribe opens a change feed for rows matching filter.
func (s *SQLStore) Subscribe(table string, filter Filter, handler Handler) (Subscription, error) {
	if _, ok := schema[table]; !ok && table != spaceDevicesTable {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: handler cannot be nil", ErrSubscription)
	}

	topic := mqtt.Topics{}.RowChange(table, filter.Value)
	key := filter.Value

	err := s.transport.Subscribe(topic, s.qos, func(_ string, payload []byte) error {
		handler(Event{
			Table: table,
			Key:   key,
			Row:   json.RawMessage(payload),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubscription, err)
	}

	s.logger.Debug("store: subscription opened", "table", table, "key", key)
	return &feedSubscription{store: s, topic: topic}, nil
}

// feedSubscription is the handle for one open change feed.
type feedSubscription struct {
	store  *SQLStore
	topic  string
	closed bool
}

// Unsubscribe closes the feed. Safe to call more than once.
func (f *feedSubscription) Unsubscribe() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if err := f.store.transport.Unsubscribe(f.topic); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscription, err)
	}
	return nil
}

// tableFor validates a (table, column) pair against the schema map.
func (s *SQLStore) tableFor(table, column string) (tableSpec, error) {
	spec, ok := schema[table]
	if !ok {
		return tableSpec{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if _, ok := spec.columns[column]; !ok {
		return tableSpec{}, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, column)
	}
	return spec, nil
}

// publishRow marshals and publishes a freshly written row.
func (s *SQLStore) publishRow(table, key string, row map[string]any) {
	if key == "" {
		return
	}
	payload, err := json.Marshal(row)
	if err != nil {
		s.logger.Warn("store: marshalling change event failed", "table", table, "error", err)
		return
	}
	s.publishRaw(table, key, payload)
}

// publishRaw publishes a row payload on the change feed. Publish failures
// are logged, not returned: the mutation itself already committed.
func (s *SQLStore) publishRaw(table, key string, payload []byte) {
	topic := mqtt.Topics{}.RowChange(table, key)
	if err := s.transport.Publish(topic, payload, s.qos, false); err != nil {
		s.logger.Warn("store: publishing change event failed", "topic", topic, "error", err)
	}
}

// eventKey picks the change-feed key for an inserted row.
func eventKey(row map[string]any) string {
	for _, col := range []string{"id", "space_id", "device_id"} {
		if v, ok := row[col].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// scanJSONRows converts a generic result set into one JSON object per row.
func scanJSONRows(rows *sql.Rows) ([]json.RawMessage, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []json.RawMessage
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		obj := make(map[string]any, len(cols))
		for i, col := range cols {
			switch v := vals[i].(type) {
			case []byte:
				obj[col] = string(v)
			default:
				obj[col] = v
			}
		}

		encoded, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		result = append(result, encoded)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
