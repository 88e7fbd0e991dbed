package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/ventanahq/ventana-core/internal/device"
)

// telemetryMeasurement is the InfluxDB measurement telemetry samples land in.
const telemetryMeasurement = "telemetry"

// RecordSample forwards one telemetry sample to long-term storage.
//
// Only sensors present in the sample become fields; absent readings are
// omitted rather than written as zero. The point's timestamp is the
// sample's own reported time when parseable, otherwise the receive time.
//
// The write is non-blocking; failures surface via the SetOnError callback.
func (c *Client) RecordSample(s device.Sample) {
	if !c.IsConnected() {
		return
	}

	fields := telemetryFields(s)
	if len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		telemetryMeasurement,
		map[string]string{"device_id": s.DeviceID},
		fields,
		sampleTime(s),
	)
	c.writeAPI.WritePoint(point)
}

// telemetryFields maps the sample's present sensors onto InfluxDB fields.
func telemetryFields(s device.Sample) map[string]interface{} {
	fields := make(map[string]interface{})
	put := func(name string, v *float64) {
		if v != nil {
			fields[name] = *v
		}
	}
	put("temp_in", s.TempIn)
	put("temp_out", s.TempOut)
	put("hum_in", s.HumIn)
	put("hum_out", s.HumOut)
	put("gases", s.Gases)
	put("obstacle", s.Obstacle)
	put("rain", s.Rain)
	if s.Motion.Bool() {
		fields["motion"] = 1.0
	}
	return fields
}

// sampleTime resolves the point timestamp from the sample's reported time.
func sampleTime(s device.Sample) time.Time {
	if s.Ts != "" {
		if ts, err := time.Parse(time.RFC3339, s.Ts); err == nil {
			return ts
		}
	}
	return time.Now()
}
