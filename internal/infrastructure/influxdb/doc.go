// Package influxdb provides long-term telemetry storage in InfluxDB v2.
//
// The hub's record store only keeps the latest sensor sample per device;
// this package forwards every applied sample to InfluxDB so historical
// climate data survives. Writes are non-blocking and batched by the
// underlying client; a failed write never stalls the live dashboard.
//
// The integration is optional. When disabled in configuration, Connect
// returns ErrDisabled and the caller runs without a recorder.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    // run without long-term storage
//	}
//	defer client.Close()
//
//	client.RecordSample(sample)
package influxdb
