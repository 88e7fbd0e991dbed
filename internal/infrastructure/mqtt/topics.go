package mqtt

import "fmt"

// Topic prefixes for the Ventana change feed.
//
// Row change topics use the scheme: ventana/store/{table}/{key}
// where key is the row identifier the subscriber filters on (a device id,
// a space id, or a user id depending on the table).
const (
	// TopicPrefixStore is the base for all record store change topics.
	TopicPrefixStore = "ventana/store"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "ventana/system"
)

// Topics provides builders for Ventana MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	t := topics.RowChange("device", "dev-42")
//	// Returns: "ventana/store/device/dev-42"
type Topics struct{}

// RowChange returns the change-feed topic for a single row key in a table.
//
// Example: ventana/store/telemetry/dev-42
func (Topics) RowChange(table, key string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixStore, table, key)
}

// SystemStatus returns the system status topic.
//
// Example: ventana/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
