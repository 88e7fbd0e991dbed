package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ventanahq/ventana-core/internal/device"
	"github.com/ventanahq/ventana-core/internal/infrastructure/database"
	"github.com/ventanahq/ventana-core/internal/infrastructure/mqtt"
)

// fakeTransport is an in-process change-feed transport for tests. It
// dispatches published payloads synchronously to matching subscribers.
type fakeTransport struct {
	mu       sync.Mutex
	handlers map[string]mqtt.MessageHandler
	// published records every publish in order.
	published []publishedMsg

	subscribeErr error
}

type publishedMsg struct {
	topic   string
	payload []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeTransport) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	return nil
}

func (f *fakeTransport) Publish(topic string, payload []byte, _ byte, _ bool) error {
	f.mu.Lock()
	f.published = append(f.published, publishedMsg{topic: topic, payload: payload})
	handler := f.handlers[topic]
	f.mu.Unlock()

	if handler != nil {
		return handler(topic, payload)
	}
	return nil
}

func (f *fakeTransport) subscriptionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

const testSchema = `
CREATE TABLE spaces (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT,
	created_at TEXT
);
CREATE TABLE device (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	hardware_id TEXT,
	image_url TEXT,
	is_open INTEGER NOT NULL DEFAULT 0,
	created_at TEXT
);
CREATE TABLE spaces_has_devices (
	space_id TEXT NOT NULL,
	device_id TEXT NOT NULL
);
CREATE TABLE telemetry (
	id INTEGER,
	device_id TEXT NOT NULL,
	ts TEXT,
	temp_in REAL, temp_out REAL, hum_in REAL, hum_out REAL,
	gases REAL, motion INTEGER, obstacle REAL, rain REAL,
	raw TEXT
);`

func newTestStore(t *testing.T) (*SQLStore, *fakeTransport) {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "hub.db"),
		WALMode:     false,
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("creating test schema: %v", err)
	}

	transport := newFakeTransport()
	return NewSQLStore(db.DB, transport), transport
}

func mustExec(t *testing.T, s *SQLStore, query string, args ...any) {
	t.Helper()
	if _, err := s.db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func TestSQLStore_GetLatest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustExec(t, s, `INSERT INTO telemetry (id, device_id, ts, temp_in) VALUES (1, 'dev-1', '2026-08-01T10:00:00Z', 20.0)`)
	mustExec(t, s, `INSERT INTO telemetry (id, device_id, ts, temp_in) VALUES (2, 'dev-1', '2026-08-01T11:00:00Z', 21.5)`)
	mustExec(t, s, `INSERT INTO telemetry (id, device_id, ts, temp_in) VALUES (3, 'dev-2', '2026-08-01T12:00:00Z', 30.0)`)

	t.Run("returns most recent row for key", func(t *testing.T) {
		raw, err := s.GetLatest(ctx, "telemetry", Filter{Column: "device_id", Value: "dev-1"})
		if err != nil {
			t.Fatalf("GetLatest() error = %v", err)
		}

		var row struct {
			ID     int64   `json:"id"`
			TempIn float64 `json:"temp_in"`
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			t.Fatalf("unmarshalling row: %v", err)
		}
		if row.ID != 2 || row.TempIn != 21.5 {
			t.Errorf("row = %+v, want id=2 temp_in=21.5", row)
		}
	})

	t.Run("returns ErrNoRow when nothing matches", func(t *testing.T) {
		_, err := s.GetLatest(ctx, "telemetry", Filter{Column: "device_id", Value: "dev-missing"})
		if !errors.Is(err, ErrNoRow) {
			t.Errorf("GetLatest() error = %v, want ErrNoRow", err)
		}
	})

	t.Run("rejects unknown table", func(t *testing.T) {
		_, err := s.GetLatest(ctx, "secrets", Filter{Column: "id", Value: "x"})
		if !errors.Is(err, ErrUnknownTable) {
			t.Errorf("GetLatest() error = %v, want ErrUnknownTable", err)
		}
	})

	t.Run("rejects unknown column", func(t *testing.T) {
		_, err := s.GetLatest(ctx, "device", Filter{Column: "id; DROP TABLE device", Value: "x"})
		if !errors.Is(err, ErrUnknownColumn) {
			t.Errorf("GetLatest() error = %v, want ErrUnknownColumn", err)
		}
	})
}

func TestSQLStore_List_SpaceDevicesAssociationOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustExec(t, s, `INSERT INTO device (id, name) VALUES ('dev-a', 'Window A')`)
	mustExec(t, s, `INSERT INTO device (id, name) VALUES ('dev-b', 'Window B')`)
	mustExec(t, s, `INSERT INTO device (id, name) VALUES ('dev-c', 'Window C')`)

	// Association order differs from both name order and device insert order.
	mustExec(t, s, `INSERT INTO spaces_has_devices (space_id, device_id) VALUES ('sp-1', 'dev-b')`)
	mustExec(t, s, `INSERT INTO spaces_has_devices (space_id, device_id) VALUES ('sp-1', 'dev-a')`)
	mustExec(t, s, `INSERT INTO spaces_has_devices (space_id, device_id) VALUES ('sp-2', 'dev-c')`)

	rows, err := s.List(ctx, "space_devices", Filter{Column: "space_id", Value: "sp-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("List() returned %d rows, want 2", len(rows))
	}

	// Rows must decode into Device with the id populated; the dashboard
	// keys selection and feed activation on it.
	var got []string
	for _, raw := range rows {
		d, err := device.FromRow(raw)
		if err != nil {
			t.Fatalf("decoding row: %v", err)
		}
		if d.ID == "" {
			t.Fatalf("decoded device has empty ID: %s", raw)
		}
		got = append(got, d.ID)
	}
	if got[0] != "dev-b" || got[1] != "dev-a" {
		t.Errorf("device order = %v, want [dev-b dev-a] (association insertion order)", got)
	}
	if got := rows[0]; !bytes.Contains(got, []byte(`"name":"Window B"`)) {
		t.Errorf("row = %s, want joined device columns", got)
	}
}

func TestSQLStore_List_EmptyIsNotError(t *testing.T) {
	s, _ := newTestStore(t)

	rows, err := s.List(context.Background(), "spaces", Filter{Column: "user_id", Value: "nobody"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("List() returned %d rows, want 0", len(rows))
	}
}

func TestSQLStore_Insert(t *testing.T) {
	s, transport := newTestStore(t)
	ctx := context.Background()

	err := s.Insert(ctx, "spaces", map[string]any{
		"id":      "sp-1",
		"user_id": "user-1",
		"name":    "Living Room",
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	rows, err := s.List(ctx, "spaces", Filter{Column: "user_id", Value: "user-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("List() returned %d rows, want 1", len(rows))
	}

	if len(transport.published) != 1 {
		t.Fatalf("published %d events, want 1", len(transport.published))
	}
	if transport.published[0].topic != "ventana/store/spaces/sp-1" {
		t.Errorf("published topic = %q", transport.published[0].topic)
	}

	t.Run("rejects unknown column", func(t *testing.T) {
		err := s.Insert(ctx, "spaces", map[string]any{"id": "sp-2", "owner": "x"})
		if !errors.Is(err, ErrUnknownColumn) {
			t.Errorf("Insert() error = %v, want ErrUnknownColumn", err)
		}
	})
}

func TestSQLStore_Update(t *testing.T) {
	s, transport := newTestStore(t)
	ctx := context.Background()

	mustExec(t, s, `INSERT INTO device (id, name, is_open) VALUES ('dev-1', 'Window', 0)`)

	t.Run("patches row and publishes confirmation", func(t *testing.T) {
		err := s.Update(ctx, "device", Filter{Column: "id", Value: "dev-1"}, map[string]any{"is_open": true})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		raw, err := s.GetLatest(ctx, "device", Filter{Column: "id", Value: "dev-1"})
		if err != nil {
			t.Fatalf("GetLatest() error = %v", err)
		}
		var row struct {
			IsOpen int64 `json:"is_open"`
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			t.Fatalf("unmarshalling row: %v", err)
		}
		if row.IsOpen != 1 {
			t.Errorf("is_open = %d, want 1", row.IsOpen)
		}

		if len(transport.published) != 1 {
			t.Fatalf("published %d events, want 1", len(transport.published))
		}
		if transport.published[0].topic != "ventana/store/device/dev-1" {
			t.Errorf("published topic = %q", transport.published[0].topic)
		}
	})

	t.Run("fails when no row matches", func(t *testing.T) {
		err := s.Update(ctx, "device", Filter{Column: "id", Value: "dev-missing"}, map[string]any{"is_open": true})
		if !errors.Is(err, ErrMutation) {
			t.Errorf("Update() error = %v, want ErrMutation", err)
		}
	})
}

func TestSQLStore_Subscribe(t *testing.T) {
	s, transport := newTestStore(t)

	var events []Event
	sub, err := s.Subscribe("telemetry", Filter{Column: "device_id", Value: "dev-1"}, func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	payload := []byte(`{"id":7,"device_id":"dev-1","temp_in":19.5}`)
	if err := transport.Publish("ventana/store/telemetry/dev-1", payload, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("received %d events, want 1", len(events))
	}
	if events[0].Table != "telemetry" || events[0].Key != "dev-1" {
		t.Errorf("event = %+v", events[0])
	}

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		if err := sub.Unsubscribe(); err != nil {
			t.Fatalf("Unsubscribe() error = %v", err)
		}
		if err := sub.Unsubscribe(); err != nil {
			t.Errorf("second Unsubscribe() error = %v", err)
		}
		if transport.subscriptionCount() != 0 {
			t.Errorf("subscriptionCount = %d, want 0", transport.subscriptionCount())
		}
	})
}

func TestSQLStore_Subscribe_TransportFailure(t *testing.T) {
	s, transport := newTestStore(t)
	transport.subscribeErr = errors.New("broker unavailable")

	_, err := s.Subscribe("device", Filter{Column: "id", Value: "dev-1"}, func(Event) {})
	if !errors.Is(err, ErrSubscription) {
		t.Errorf("Subscribe() error = %v, want ErrSubscription", err)
	}
}
