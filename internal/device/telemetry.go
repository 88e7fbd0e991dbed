package device

import (
	"encoding/json"
	"fmt"
)

// Sample is one telemetry row reported by a device's sensor board.
// Numeric fields are pointers because the board omits sensors it does not
// carry; an absent reading is nil, not zero.
type Sample struct {
	ID       int64    `json:"id"`
	DeviceID string   `json:"device_id"`
	Ts       string   `json:"ts,omitempty"`
	TempIn   *float64 `json:"temp_in,omitempty"`
	TempOut  *float64 `json:"temp_out,omitempty"`
	HumIn    *float64 `json:"hum_in,omitempty"`
	HumOut   *float64 `json:"hum_out,omitempty"`
	Gases    *float64 `json:"gases,omitempty"`
	Motion   FlexBool `json:"motion,omitempty"`
	Obstacle *float64 `json:"obstacle,omitempty"`
	Rain     *float64 `json:"rain,omitempty"`
	Raw      string   `json:"raw,omitempty"`
}

// SampleFromRow decodes a telemetry sample from a record store row or
// change event.
func SampleFromRow(raw json.RawMessage) (Sample, error) {
	var s Sample
	if err := json.Unmarshal(raw, &s); err != nil {
		return Sample{}, fmt.Errorf("decoding telemetry row: %w", err)
	}
	return s, nil
}

// Readings is the climate snapshot shown for the selected device.
// Every field is always populated; missing measurements read as zero.
type Readings struct {
	TempIn  float64 `json:"temp_in"`
	TempOut float64 `json:"temp_out"`
	HumIn   float64 `json:"hum_in"`
	HumOut  float64 `json:"hum_out"`
}

// ProjectReadings maps a sample onto the climate snapshot. It is total:
// a nil sample or a sample with absent fields yields zeroes, never an error.
func ProjectReadings(s *Sample) Readings {
	if s == nil {
		return Readings{}
	}
	return Readings{
		TempIn:  deref(s.TempIn),
		TempOut: deref(s.TempOut),
		HumIn:   deref(s.HumIn),
		HumOut:  deref(s.HumOut),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
