package space

import (
	"encoding/json"
	"fmt"
)

// Space is one user-defined grouping of devices.
type Space struct {
	// ID is the unique space identifier.
	ID string `json:"id"`

	// UserID is the owning account.
	UserID string `json:"user_id"`

	// Name is the user-assigned display name.
	Name string `json:"name"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`

	// CreatedAt is the creation timestamp, RFC 3339.
	CreatedAt string `json:"created_at,omitempty"`
}

// FromRow decodes a space from a record store row or change event.
func FromRow(raw json.RawMessage) (Space, error) {
	var s Space
	if err := json.Unmarshal(raw, &s); err != nil {
		return Space{}, fmt.Errorf("decoding space row: %w", err)
	}
	return s, nil
}
