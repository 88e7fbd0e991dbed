package dashboard

import (
	"github.com/ventanahq/ventana-core/internal/device"
	"github.com/ventanahq/ventana-core/internal/space"
)

// View is an immutable snapshot of everything the dashboard shows.
// Slices are fresh copies; holders may keep a View without locking.
type View struct {
	// SignedIn reports whether an account session is active.
	SignedIn bool `json:"signed_in"`

	// UserID is the signed-in account, or "" when anonymous.
	UserID string `json:"user_id,omitempty"`

	// Spaces is the signed-in user's space list.
	// Empty for anonymous sessions.
	Spaces []space.Space `json:"spaces"`

	// SelectedSpaceID is the active space, or "" when none.
	SelectedSpaceID string `json:"selected_space_id,omitempty"`

	// Devices is the device list of the selected space, in the order the
	// devices were added to it.
	Devices []device.Device `json:"devices"`

	// SelectedDeviceIndex is the position of the selected device in
	// Devices. Meaningless when Devices is empty.
	SelectedDeviceIndex int `json:"selected_device_index"`

	// SelectedDevice is the live row of the selected device, or nil when
	// no device is selected.
	SelectedDevice *device.Device `json:"selected_device,omitempty"`

	// Readings is the climate snapshot for the selected device.
	// Zero-valued until the first telemetry sample arrives.
	Readings device.Readings `json:"readings"`

	// TogglePending reports whether an actuator write for the selected
	// device is still awaiting confirmation.
	TogglePending bool `json:"toggle_pending"`
}
