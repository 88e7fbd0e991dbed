package device

import (
	"encoding/json"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestProjectReadings(t *testing.T) {
	tests := []struct {
		name   string
		sample *Sample
		want   Readings
	}{
		{
			name:   "no sample yet",
			sample: nil,
			want:   Readings{},
		},
		{
			name: "full sample",
			sample: &Sample{
				DeviceID: "dev-1",
				TempIn:   f(21.5),
				HumIn:    f(40),
				TempOut:  f(18.2),
				HumOut:   f(60),
			},
			want: Readings{TempIn: 21.5, TempOut: 18.2, HumIn: 40, HumOut: 60},
		},
		{
			name:   "sparse sample defaults missing fields to zero",
			sample: &Sample{DeviceID: "dev-1", TempIn: f(19.0)},
			want:   Readings{TempIn: 19.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectReadings(tt.sample)
			if got != tt.want {
				t.Errorf("ProjectReadings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSampleFromRow(t *testing.T) {
	t.Run("store row", func(t *testing.T) {
		raw := json.RawMessage(`{"id":42,"device_id":"dev-1","ts":"2026-08-01T10:00:00Z","temp_in":21.5,"motion":1}`)
		s, err := SampleFromRow(raw)
		if err != nil {
			t.Fatalf("SampleFromRow() error = %v", err)
		}
		if s.ID != 42 || s.DeviceID != "dev-1" {
			t.Errorf("sample = %+v", s)
		}
		if s.TempIn == nil || *s.TempIn != 21.5 {
			t.Errorf("temp_in = %v, want 21.5", s.TempIn)
		}
		if s.TempOut != nil {
			t.Errorf("temp_out = %v, want nil for absent column", s.TempOut)
		}
		if !s.Motion.Bool() {
			t.Error("motion = false, want true")
		}
	})

	t.Run("malformed row", func(t *testing.T) {
		if _, err := SampleFromRow(json.RawMessage(`[]`)); err == nil {
			t.Error("SampleFromRow() succeeded on malformed row")
		}
	})
}
