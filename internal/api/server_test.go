package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ventanahq/ventana-core/internal/dashboard"
	"github.com/ventanahq/ventana-core/internal/infrastructure/config"
	"github.com/ventanahq/ventana-core/internal/infrastructure/logging"
	"github.com/ventanahq/ventana-core/internal/session"
	"github.com/ventanahq/ventana-core/internal/store"
)

// memStore is a minimal in-memory dashboard.Store for handler tests.
type memStore struct {
	mu        sync.Mutex
	spaceRows []json.RawMessage
	devices   map[string]json.RawMessage
	joins     [][2]string
	handlers  map[string]store.Handler
}

func newMemStore() *memStore {
	return &memStore{
		devices:  make(map[string]json.RawMessage),
		handlers: make(map[string]store.Handler),
	}
}

func (m *memStore) seed() {
	m.spaceRows = append(m.spaceRows,
		json.RawMessage(`{"id":"sp-1","user_id":"user-1","name":"Living Room"}`))
	m.devices["dev-1"] = json.RawMessage(`{"id":"dev-1","name":"North Window","is_open":false}`)
	m.joins = append(m.joins, [2]string{"sp-1", "dev-1"})
}

func (m *memStore) GetLatest(_ context.Context, table string, filter store.Filter) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if table == "device" {
		if raw, ok := m.devices[filter.Value]; ok {
			return raw, nil
		}
	}
	return nil, store.ErrNoRow
}

func (m *memStore) List(_ context.Context, table string, filter store.Filter) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch table {
	case "spaces":
		var out []json.RawMessage
		for _, raw := range m.spaceRows {
			if strings.Contains(string(raw), fmt.Sprintf("%q", filter.Value)) {
				out = append(out, raw)
			}
		}
		return out, nil
	case "space_devices":
		var out []json.RawMessage
		for _, j := range m.joins {
			if j[0] == filter.Value {
				out = append(out, m.devices[j[1]])
			}
		}
		return out, nil
	}
	return nil, store.ErrUnknownTable
}

func (m *memStore) Insert(_ context.Context, table string, row map[string]any) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch table {
	case "spaces":
		m.spaceRows = append(m.spaceRows, raw)
	case "device":
		id, _ := row["id"].(string)
		m.devices[id] = raw
	case "spaces_has_devices":
		sid, _ := row["space_id"].(string)
		did, _ := row["device_id"].(string)
		m.joins = append(m.joins, [2]string{sid, did})
	}
	return nil
}

func (m *memStore) Update(_ context.Context, table string, filter store.Filter, patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.devices[filter.Value]
	if !ok {
		return store.ErrMutation
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return err
	}
	for k, v := range patch {
		row[k] = v
	}
	updated, err := json.Marshal(row)
	if err != nil {
		return err
	}
	m.devices[filter.Value] = updated
	return nil
}

func (m *memStore) Subscribe(table string, filter store.Filter, handler store.Handler) (store.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := table + "/" + filter.Value
	m.handlers[key] = handler
	return &memSub{store: m, key: key}, nil
}

type memSub struct {
	store *memStore
	key   string
}

func (s *memSub) Unsubscribe() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	delete(s.store.handlers, s.key)
	return nil
}

// memSessions is an in-memory dashboard.Sessions.
type memSessions struct {
	userID string
}

func (s *memSessions) UserID() string { return s.userID }

func (s *memSessions) SignIn(userID string) (session.Session, error) {
	s.userID = userID
	return session.Session{UserID: userID}, nil
}

func (s *memSessions) SignOut() error {
	s.userID = ""
	return nil
}

// newTestServer builds a started controller plus a router to exercise.
func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()

	ms := newMemStore()
	ms.seed()

	ctrl := dashboard.NewController(ms, &memSessions{userID: "user-1"})
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("controller Start() error = %v", err)
	}

	srv, err := New(Deps{
		Config:     config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:         config.WebSocketConfig{MaxMessageSize: 4096, PingInterval: 30, PongTimeout: 60},
		Logger:     logging.Default(),
		Controller: ctrl,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.hub = NewHub(srv.wsCfg, srv.logger)
	return srv, ms
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func TestServer_New(t *testing.T) {
	t.Run("requires logger", func(t *testing.T) {
		if _, err := New(Deps{Controller: &dashboard.Controller{}}); err == nil {
			t.Error("New() succeeded without logger")
		}
	})

	t.Run("requires controller", func(t *testing.T) {
		if _, err := New(Deps{Logger: logging.Default()}); err == nil {
			t.Error("New() succeeded without controller")
		}
	})
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestHandleView(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/view", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var v dashboard.View
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshalling view: %v", err)
	}
	if !v.SignedIn || v.SelectedSpaceID != "sp-1" || len(v.Devices) != 1 {
		t.Errorf("view = %+v", v)
	}
}

func TestHandleToggle(t *testing.T) {
	srv, ms := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/devices/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body)
	}

	var v dashboard.View
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshalling view: %v", err)
	}
	if v.SelectedDevice == nil || !v.SelectedDevice.IsOpen.Bool() {
		t.Error("toggle did not flip the actuator in the response")
	}

	ms.mu.Lock()
	stored := string(ms.devices["dev-1"])
	ms.mu.Unlock()
	if !strings.Contains(stored, `"is_open":true`) {
		t.Errorf("stored row = %s, want is_open true", stored)
	}
}

func TestHandleSelectDevice(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("clamps out of range index", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/devices/select", `{"index":42}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body)
		}
		var v dashboard.View
		if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
			t.Fatalf("unmarshalling view: %v", err)
		}
		if v.SelectedDeviceIndex != 0 {
			t.Errorf("index = %d, want clamped to 0", v.SelectedDeviceIndex)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/devices/select", `{`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandleCreateSpace(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("creates space", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/spaces/", `{"name":"Attic"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body)
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/spaces/", `{"name":""}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandleSelectSpace_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/spaces/sp-missing/select", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleSignOutAndIn(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/auth/signout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("signout status = %d, want 200", rec.Code)
	}
	var v dashboard.View
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshalling view: %v", err)
	}
	if v.SignedIn || len(v.Spaces) != 0 {
		t.Errorf("view after signout = %+v, want anonymous", v)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/auth/signin", `{"user_id":"user-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d, want 200, body: %s", rec.Code, rec.Body)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshalling view: %v", err)
	}
	if !v.SignedIn || len(v.Spaces) != 1 {
		t.Errorf("view after signin = %+v", v)
	}
}

func TestHub_BroadcastView(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, logging.Default())

	client := &WSClient{hub: hub, send: make(chan []byte, 1)}
	hub.Register(client)
	defer hub.Unregister(client)

	hub.BroadcastView(dashboard.View{SelectedSpaceID: "sp-1"})

	select {
	case data := <-client.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshalling broadcast: %v", err)
		}
		if msg.Type != WSTypeView {
			t.Errorf("type = %q, want %q", msg.Type, WSTypeView)
		}
	default:
		t.Fatal("no message delivered to client")
	}
}
