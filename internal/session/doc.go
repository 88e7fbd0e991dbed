// Package session persists the dashboard's sign-in state across restarts.
//
// The signed-in account is recorded as a marker file containing a signed
// token. On startup the marker is loaded and verified; a missing, expired,
// or tampered marker yields the anonymous session, never an error the
// caller must branch on. Anonymous sessions see an empty space list.
//
// Signing out deletes the marker and clears all account-scoped state.
package session
