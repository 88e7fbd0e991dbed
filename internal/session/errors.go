package session

import "errors"

// Sentinel errors for session operations.
// Use errors.Is to test for them.
var (
	// ErrNoSession indicates no account is signed in.
	ErrNoSession = errors.New("no active session")

	// ErrInvalidToken indicates the marker token failed verification.
	ErrInvalidToken = errors.New("invalid session token")
)
