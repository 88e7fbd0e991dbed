// Package dashboard orchestrates the live view of the hub.
//
// A Controller holds the signed-in user's spaces, the devices of the
// selected space, the current device selection, and two live feeds bound
// to the selected device: its actuator row and its latest telemetry
// sample. Every applied change produces a fresh View snapshot delivered
// to the registered callback, which is how connected clients stay current.
//
// Selection rules:
//   - Selecting the already-selected space is a no-op.
//   - The device index is clamped into the list's bounds, floored at 0.
//   - Whenever the device list changes, the index resets to 0 and any
//     cached telemetry for the previous device is discarded.
//
// The actuator toggle is a confirmed write: the cached position changes
// only after the store reports the mutation succeeded. While a toggle for
// a device is in flight, further toggles for that device are ignored.
package dashboard
