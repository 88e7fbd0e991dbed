// Package device defines the motorized window model and its sensor
// telemetry.
//
// Rows arrive from two sources with different encodings: the hub's SQLite
// record store, where booleans are INTEGER 0/1 columns, and JSON change
// events pushed over MQTT, where they are true/false. The decode helpers in
// this package accept both so callers never branch on the source.
package device
