package device

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Device is one motorized window unit registered with the hub.
type Device struct {
	// ID is the unique device identifier.
	ID string `json:"id"`

	// Name is the user-assigned display name.
	Name string `json:"name"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`

	// HardwareID identifies the physical controller board.
	HardwareID string `json:"hardware_id,omitempty"`

	// ImageURL points to an optional photo of the installation.
	ImageURL string `json:"image_url,omitempty"`

	// IsOpen is the last known actuator position.
	IsOpen FlexBool `json:"is_open"`

	// CreatedAt is the registration timestamp, RFC 3339.
	CreatedAt string `json:"created_at,omitempty"`
}

// FromRow decodes a device from a record store row or change event.
func FromRow(raw json.RawMessage) (Device, error) {
	var d Device
	if err := json.Unmarshal(raw, &d); err != nil {
		return Device{}, fmt.Errorf("decoding device row: %w", err)
	}
	return d, nil
}

// FlexBool is a boolean that unmarshals from JSON true/false, from the
// numbers 0/1, and from the strings "0"/"1"/"true"/"false". SQLite stores
// booleans as integers, so the same column arrives in both shapes.
type FlexBool bool

// Bool returns the plain boolean value.
func (b FlexBool) Bool() bool {
	return bool(b)
}

// MarshalJSON encodes as a plain JSON boolean.
func (b FlexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", "1", `"true"`, `"1"`:
		*b = true
		return nil
	case "false", "0", `"false"`, `"0"`, "null", `""`:
		*b = false
		return nil
	}
	return fmt.Errorf("cannot decode %q as boolean", data)
}
