package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ventanahq/ventana-core/internal/device"
	"github.com/ventanahq/ventana-core/internal/livefeed"
	"github.com/ventanahq/ventana-core/internal/session"
	"github.com/ventanahq/ventana-core/internal/space"
	"github.com/ventanahq/ventana-core/internal/store"
)

// Store is the record store surface the controller depends on.
// *store.SQLStore satisfies it.
type Store interface {
	livefeed.Source
	List(ctx context.Context, table string, filter store.Filter) ([]json.RawMessage, error)
	Insert(ctx context.Context, table string, row map[string]any) error
	Update(ctx context.Context, table string, filter store.Filter, patch map[string]any) error
}

// Sessions is the sign-in state the controller depends on.
// *session.Manager satisfies it.
type Sessions interface {
	UserID() string
	SignIn(userID string) (session.Session, error)
	SignOut() error
}

// Recorder receives every applied telemetry sample.
// Used to forward samples to long-term storage.
type Recorder interface {
	RecordSample(s device.Sample)
}

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Controller owns the dashboard state machine.
// All exported methods are safe for concurrent use.
type Controller struct {
	store    Store
	sessions Sessions
	recorder Recorder
	logger   Logger

	deviceFeed    *livefeed.Feed[device.Device]
	telemetryFeed *livefeed.Feed[device.Sample]

	mu              sync.Mutex
	spaces          []space.Space
	devices         []device.Device
	selectedSpaceID string
	selectedIndex   int
	inflight        map[string]bool

	onChange func(View)
}

// NewController creates a controller over st and sessions.
// Call Start to load the initial state.
func NewController(st Store, sessions Sessions) *Controller {
	c := &Controller{
		store:    st,
		sessions: sessions,
		logger:   noopLogger{},
		inflight: make(map[string]bool),
	}

	c.deviceFeed = livefeed.New(st, "device", "id", device.FromRow)
	c.deviceFeed.OnChange(c.onDevicePush)

	c.telemetryFeed = livefeed.New(st, "telemetry", "device_id", device.SampleFromRow)
	c.telemetryFeed.OnChange(c.onTelemetryPush)

	return c
}

// SetLogger attaches a logger to the controller and its feeds.
func (c *Controller) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
	c.deviceFeed.SetLogger(logger)
	c.telemetryFeed.SetLogger(logger)
}

// SetRecorder attaches a telemetry recorder. Optional.
func (c *Controller) SetRecorder(r Recorder) {
	c.recorder = r
}

// OnChange registers the snapshot callback.
// Must be set before Start; invoked after every applied change.
func (c *Controller) OnChange(fn func(View)) {
	c.onChange = fn
}

// Start loads the signed-in user's spaces and selects the first one.
// Anonymous sessions start with an empty dashboard.
func (c *Controller) Start(ctx context.Context) error {
	spaces, err := c.loadSpaces(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.spaces = spaces
	c.mu.Unlock()

	if len(spaces) > 0 {
		return c.SelectSpace(ctx, spaces[0].ID)
	}
	c.notify()
	return nil
}

// Shutdown closes both live feeds.
func (c *Controller) Shutdown() {
	c.deviceFeed.Deactivate()
	c.telemetryFeed.Deactivate()
}

// SelectSpace makes spaceID the active space and selects its first device.
// Selecting the already-active space is a no-op.
func (c *Controller) SelectSpace(ctx context.Context, spaceID string) error {
	c.mu.Lock()
	if c.selectedSpaceID == spaceID {
		c.mu.Unlock()
		return nil
	}
	known := false
	for _, s := range c.spaces {
		if s.ID == spaceID {
			known = true
			break
		}
	}
	c.mu.Unlock()

	if !known {
		return fmt.Errorf("%w: %s", ErrNoSpace, spaceID)
	}

	devices, err := c.loadDevices(ctx, spaceID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.selectedSpaceID = spaceID
	c.devices = devices
	c.selectedIndex = 0
	c.mu.Unlock()

	return c.activateSelected(ctx)
}

// SelectDevice moves the device selection to index.
// Out-of-range indexes fall back to the first device.
// Selecting the current index is a no-op.
func (c *Controller) SelectDevice(ctx context.Context, index int) error {
	c.mu.Lock()
	index = clamp(index, len(c.devices))
	if index == c.selectedIndex {
		c.mu.Unlock()
		return nil
	}
	c.selectedIndex = index
	c.mu.Unlock()

	return c.activateSelected(ctx)
}

// Toggle flips the selected device's actuator.
//
// The write is confirmed: the cached position changes only after the store
// accepts the mutation. A failed write leaves every cache untouched. While
// a toggle for the device is in flight, further calls return immediately
// without issuing a second write.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	id := c.selectedDeviceIDLocked()
	if id == "" {
		c.mu.Unlock()
		return ErrNoDevice
	}
	if c.inflight[id] {
		c.mu.Unlock()
		c.logger.Debug("dashboard: toggle already in flight", "device_id", id)
		return nil
	}
	c.inflight[id] = true
	c.mu.Unlock()
	c.notify()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
		c.notify()
	}()

	current, ok := c.currentDevice(id)
	if !ok {
		return ErrNoDevice
	}
	target := !current.IsOpen.Bool()

	err := c.store.Update(ctx, "device", store.Filter{Column: "id", Value: id},
		map[string]any{"is_open": target})
	if err != nil {
		return fmt.Errorf("toggling device %s: %w", id, err)
	}

	current.IsOpen = device.FlexBool(target)
	c.deviceFeed.Set(id, current)
	c.updateListedDevice(current)

	c.logger.Info("dashboard: actuator toggled", "device_id", id, "is_open", target)
	return nil
}

// Refetch reloads the space and device lists from the store.
//
// The replacement is atomic: readers observe either the old lists or the
// new ones. When the refreshed device list differs from the current one,
// the device selection resets to the first entry and stale telemetry is
// discarded.
func (c *Controller) Refetch(ctx context.Context) error {
	spaces, err := c.loadSpaces(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.spaces = spaces
	spaceID := c.selectedSpaceID
	c.mu.Unlock()

	if spaceID != "" && !containsSpace(spaces, spaceID) {
		// The selected space is gone; fall back to the first remaining one.
		if len(spaces) > 0 {
			c.mu.Lock()
			c.selectedSpaceID = ""
			c.mu.Unlock()
			return c.SelectSpace(ctx, spaces[0].ID)
		}
		c.clearSelection()
		c.notify()
		return nil
	}

	if spaceID == "" {
		c.notify()
		return nil
	}

	devices, err := c.loadDevices(ctx, spaceID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	changed := !sameDeviceIDs(c.devices, devices)
	c.devices = devices
	if changed {
		c.selectedIndex = 0
	}
	c.mu.Unlock()

	if changed {
		return c.activateSelected(ctx)
	}
	c.notify()
	return nil
}

// AddSpace creates a space for the signed-in user and refreshes the list.
func (c *Controller) AddSpace(ctx context.Context, name, description string) (space.Space, error) {
	userID := c.sessions.UserID()
	if userID == "" {
		return space.Space{}, ErrNotSignedIn
	}
	if name == "" {
		return space.Space{}, fmt.Errorf("%w: space name is required", ErrInvalidInput)
	}

	s := space.Space{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	err := c.store.Insert(ctx, "spaces", map[string]any{
		"id":          s.ID,
		"user_id":     s.UserID,
		"name":        s.Name,
		"description": s.Description,
		"created_at":  s.CreatedAt,
	})
	if err != nil {
		return space.Space{}, fmt.Errorf("creating space: %w", err)
	}

	c.logger.Info("dashboard: space created", "space_id", s.ID, "name", s.Name)
	return s, c.Refetch(ctx)
}

// AddDevice registers a device and attaches it to spaceID.
// When spaceID is the selected space, the device list refreshes and the
// selection resets per the device-list-change rule.
func (c *Controller) AddDevice(ctx context.Context, spaceID, name, description, hardwareID string) (device.Device, error) {
	if c.sessions.UserID() == "" {
		return device.Device{}, ErrNotSignedIn
	}
	if name == "" {
		return device.Device{}, fmt.Errorf("%w: device name is required", ErrInvalidInput)
	}

	c.mu.Lock()
	known := containsSpace(c.spaces, spaceID)
	c.mu.Unlock()
	if !known {
		return device.Device{}, fmt.Errorf("%w: %s", ErrNoSpace, spaceID)
	}

	d := device.Device{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		HardwareID:  hardwareID,
		IsOpen:      false,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	err := c.store.Insert(ctx, "device", map[string]any{
		"id":          d.ID,
		"name":        d.Name,
		"description": d.Description,
		"hardware_id": d.HardwareID,
		"is_open":     false,
		"created_at":  d.CreatedAt,
	})
	if err != nil {
		return device.Device{}, fmt.Errorf("registering device: %w", err)
	}

	err = c.store.Insert(ctx, "spaces_has_devices", map[string]any{
		"space_id":  spaceID,
		"device_id": d.ID,
	})
	if err != nil {
		return device.Device{}, fmt.Errorf("attaching device to space: %w", err)
	}

	c.logger.Info("dashboard: device registered", "device_id", d.ID, "space_id", spaceID)
	return d, c.Refetch(ctx)
}

// SignIn establishes a session for userID and loads its spaces.
func (c *Controller) SignIn(ctx context.Context, userID string) error {
	if _, err := c.sessions.SignIn(userID); err != nil {
		return err
	}
	c.clearSelection()
	return c.Start(ctx)
}

// SignOut ends the session and clears all account-scoped state.
func (c *Controller) SignOut() error {
	if err := c.sessions.SignOut(); err != nil {
		return err
	}
	c.clearSelection()
	c.mu.Lock()
	c.spaces = nil
	c.mu.Unlock()
	c.notify()
	return nil
}

// View returns a snapshot of the current dashboard state.
func (c *Controller) View() View {
	c.mu.Lock()
	v := View{
		SignedIn:            false,
		Spaces:              append([]space.Space(nil), c.spaces...),
		SelectedSpaceID:     c.selectedSpaceID,
		Devices:             append([]device.Device(nil), c.devices...),
		SelectedDeviceIndex: c.selectedIndex,
	}
	id := c.selectedDeviceIDLocked()
	v.TogglePending = id != "" && c.inflight[id]
	c.mu.Unlock()

	if userID := c.sessions.UserID(); userID != "" {
		v.SignedIn = true
		v.UserID = userID
	}

	if id != "" {
		if d, ok := c.currentDevice(id); ok {
			v.SelectedDevice = &d
		}
		if s, ok := c.telemetryFeed.Value(); ok {
			v.Readings = device.ProjectReadings(&s)
		}
	}
	return v
}

// onDevicePush handles a live update of the selected device's row.
func (c *Controller) onDevicePush(d device.Device) {
	c.updateListedDevice(d)
	c.notify()
}

// onTelemetryPush handles a new telemetry sample for the selected device.
func (c *Controller) onTelemetryPush(s device.Sample) {
	if c.recorder != nil {
		c.recorder.RecordSample(s)
	}
	c.notify()
}

// activateSelected points both feeds at the selected device, or closes
// them when the device list is empty.
func (c *Controller) activateSelected(ctx context.Context) error {
	c.mu.Lock()
	id := c.selectedDeviceIDLocked()
	c.mu.Unlock()

	if id == "" {
		c.deviceFeed.Deactivate()
		c.telemetryFeed.Deactivate()
		c.notify()
		return nil
	}

	if err := c.deviceFeed.Activate(ctx, id); err != nil {
		return fmt.Errorf("activating device feed: %w", err)
	}
	if err := c.telemetryFeed.Activate(ctx, id); err != nil {
		return fmt.Errorf("activating telemetry feed: %w", err)
	}
	c.notify()
	return nil
}

// clearSelection drops the selection and closes both feeds.
func (c *Controller) clearSelection() {
	c.deviceFeed.Deactivate()
	c.telemetryFeed.Deactivate()
	c.mu.Lock()
	c.selectedSpaceID = ""
	c.devices = nil
	c.selectedIndex = 0
	c.mu.Unlock()
}

// loadSpaces fetches the signed-in user's spaces.
// Anonymous sessions get an empty list without touching the store.
func (c *Controller) loadSpaces(ctx context.Context) ([]space.Space, error) {
	userID := c.sessions.UserID()
	if userID == "" {
		return nil, nil
	}

	rows, err := c.store.List(ctx, "spaces", store.Filter{Column: "user_id", Value: userID})
	if err != nil {
		return nil, fmt.Errorf("loading spaces: %w", err)
	}

	spaces := make([]space.Space, 0, len(rows))
	for _, raw := range rows {
		s, err := space.FromRow(raw)
		if err != nil {
			c.logger.Warn("dashboard: skipping undecodable space row", "error", err)
			continue
		}
		spaces = append(spaces, s)
	}
	return spaces, nil
}

// loadDevices fetches the device list of a space, in association order.
func (c *Controller) loadDevices(ctx context.Context, spaceID string) ([]device.Device, error) {
	rows, err := c.store.List(ctx, "space_devices", store.Filter{Column: "space_id", Value: spaceID})
	if err != nil {
		return nil, fmt.Errorf("loading devices of space %s: %w", spaceID, err)
	}

	devices := make([]device.Device, 0, len(rows))
	for _, raw := range rows {
		d, err := device.FromRow(raw)
		if err != nil {
			c.logger.Warn("dashboard: skipping undecodable device row", "error", err)
			continue
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// currentDevice resolves the freshest known row for a device id, preferring
// the live feed over the listed copy.
func (c *Controller) currentDevice(id string) (device.Device, bool) {
	if d, ok := c.deviceFeed.Value(); ok && d.ID == id {
		return d, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.devices {
		if d.ID == id {
			return d, true
		}
	}
	return device.Device{}, false
}

// updateListedDevice mirrors a fresh device row into the listed copy.
func (c *Controller) updateListedDevice(d device.Device) {
	c.mu.Lock()
	for i := range c.devices {
		if c.devices[i].ID == d.ID {
			c.devices[i] = d
			break
		}
	}
	c.mu.Unlock()
}

// selectedDeviceIDLocked returns the selected device's id.
// The caller must hold c.mu.
func (c *Controller) selectedDeviceIDLocked() string {
	if len(c.devices) == 0 {
		return ""
	}
	return c.devices[clamp(c.selectedIndex, len(c.devices))].ID
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.View())
	}
}

// clamp returns index when it is a valid position in a list of the given
// length, and 0 for any out-of-range index. An out-of-range selection falls
// back to the first device rather than a nearby one.
func clamp(index, length int) int {
	if index < 0 || index >= length {
		return 0
	}
	return index
}

func containsSpace(spaces []space.Space, id string) bool {
	for _, s := range spaces {
		if s.ID == id {
			return true
		}
	}
	return false
}

func sameDeviceIDs(a, b []device.Device) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
