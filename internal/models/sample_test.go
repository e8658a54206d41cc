package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample_DecodeLooseDates(t *testing.T) {
	body := `[
		{"timestamp": "2024-01-05T08:00:00Z", "steps": 1000, "heartRate": 72},
		{"date": 1704441600000},
		{"timestamp": {"nested": true}},
		{"timestamp": null, "date": "2024-01-06"},
		{"unknownField": 5}
	]`

	var samples []Sample
	require.NoError(t, json.Unmarshal([]byte(body), &samples), "malformed dates must not fail decoding")
	require.Len(t, samples, 5)

	src, ok := samples[0].DateSource()
	assert.True(t, ok)
	assert.Equal(t, "2024-01-05T08:00:00Z", src.String())
	assert.Equal(t, 1000, *samples[0].Steps)

	src, ok = samples[1].DateSource()
	assert.True(t, ok)
	assert.Equal(t, "1704441600000", src.String())

	src, ok = samples[2].DateSource()
	assert.True(t, ok)
	_, err := src.Parse(time.UTC)
	assert.Error(t, err)

	src, ok = samples[3].DateSource()
	assert.True(t, ok)
	assert.Equal(t, "2024-01-06", src.String())

	_, ok = samples[4].DateSource()
	assert.False(t, ok)
}

func TestSampleTime_Parse(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		loc  *time.Location
		want time.Time
	}{
		{"rfc3339", "2024-01-05T08:00:00Z", time.UTC, time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)},
		{"rfc3339 fractional", "2024-01-05T08:00:00.123Z", time.UTC, time.Date(2024, 1, 5, 8, 0, 0, 123000000, time.UTC)},
		{"zone-less in location", "2024-01-05T08:00:00", tokyo, time.Date(2024, 1, 5, 8, 0, 0, 0, tokyo)},
		{"date only", "2024-01-05", tokyo, time.Date(2024, 1, 5, 0, 0, 0, 0, tokyo)},
		{"epoch millis", "1704441600000", time.UTC, time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSampleTime(tt.raw).Parse(tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestSampleTime_ParseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not-a-date", "2024-13-45", "yesterday"} {
		_, err := NewSampleTime(raw).Parse(time.UTC)
		assert.Error(t, err, raw)
	}
}

func TestStartOfDay(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 03:00 UTC on Jan 6 is still Jan 5 in New York
	ts := time.Date(2024, 1, 6, 3, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), StartOfDay(ts, time.UTC))
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, newYork), StartOfDay(ts, newYork))
}

func TestSyncCounters_Add(t *testing.T) {
	steps, hr, cal, dist, o2 := 100, 60.0, 200.0, 1.5, 98.0
	var c SyncCounters

	c.Add(&Sample{HealthMetrics: HealthMetrics{Steps: &steps, HeartRate: &hr, Calories: &cal, Distance: &dist, BloodOxygen: &o2}})
	c.Add(&Sample{
		HealthMetrics: HealthMetrics{Steps: &steps, HeartRate: &hr, Calories: &cal},
		Workouts:      []WorkoutSummary{{Type: "run"}, {Type: "walk"}},
	})
	c.Add(&Sample{SleepStages: &SleepStages{}})

	assert.Equal(t, SyncCounters{DataPoints: 8, HealthDataCount: 3, WorkoutDataCount: 2, SleepDataCount: 1}, c)
}

func TestHealthMetrics_CountBloodPressureOnce(t *testing.T) {
	sys, dia := 120, 80
	m := HealthMetrics{BloodPressure: &BloodPressure{Systolic: &sys, Diastolic: &dia}}

	assert.Equal(t, 1, m.Count())
}

func TestSample_MetricCountIncludesNullKeys(t *testing.T) {
	var samples []Sample
	require.NoError(t, json.Unmarshal([]byte(`[
		{"steps": null, "heartRate": 70},
		{"date": "2024-01-05", "workouts": [{"type": "run"}], "unknownField": 1},
		{"bloodPressure": {"systolic": 120, "diastolic": 80}, "temperature": null, "stressLevel": 20}
	]`), &samples))

	assert.Equal(t, 2, samples[0].MetricCount())
	assert.Nil(t, samples[0].Steps)
	assert.Equal(t, 0, samples[1].MetricCount())
	assert.Equal(t, 3, samples[2].MetricCount())

	var c SyncCounters
	for i := range samples {
		c.Add(&samples[i])
	}
	assert.Equal(t, SyncCounters{DataPoints: 5, HealthDataCount: 3, WorkoutDataCount: 1, SleepDataCount: 0}, c)
}
