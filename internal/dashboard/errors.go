package dashboard

import "errors"

// Sentinel errors for dashboard operations.
// Use errors.Is to test for them.
var (
	// ErrNoDevice indicates no device is selected.
	ErrNoDevice = errors.New("no device selected")

	// ErrNoSpace indicates the referenced space does not exist.
	ErrNoSpace = errors.New("space not found")

	// ErrNotSignedIn indicates the operation requires an account.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrInvalidInput indicates a missing or malformed argument.
	ErrInvalidInput = errors.New("invalid input")
)
