package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sample is one health reading pushed by a device during a sync. Fields the
// service does not know are ignored by the decoder.
type Sample struct {
	Date      SampleTime `json:"date"`
	Timestamp SampleTime `json:"timestamp"`
	HealthMetrics
	SleepStages *SleepStages     `json:"sleepStages,omitempty" validate:"omitempty"`
	Workouts    []WorkoutSummary `json:"workouts,omitempty" validate:"omitempty,dive"`

	// reportedMetrics counts metric keys in the decoded body, null values
	// included.
	reportedMetrics int
}

// metricKeys are the JSON names of the HealthMetrics fields.
var metricKeys = []string{
	"steps", "heartRate", "calories", "distance", "sleepHours",
	"activeMinutes", "bloodOxygen", "bloodPressure", "temperature", "stressLevel",
}

func (s *Sample) UnmarshalJSON(data []byte) error {
	type plain Sample
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	*s = Sample(p)
	s.reportedMetrics = 0
	for _, k := range metricKeys {
		if _, ok := keys[k]; ok {
			s.reportedMetrics++
		}
	}
	return nil
}

// MetricCount is the number of metric keys the device sent. Samples built in
// code count their non-nil metrics.
func (s *Sample) MetricCount() int {
	if s.reportedMetrics > 0 {
		return s.reportedMetrics
	}
	return s.HealthMetrics.Count()
}

// SampleTime keeps the raw JSON value of a date field. Decoding never fails,
// so one malformed timestamp cannot reject the whole request body.
type SampleTime struct {
	raw string
	set bool
}

func NewSampleTime(raw string) SampleTime {
	return SampleTime{raw: raw, set: true}
}

func (st *SampleTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*st = SampleTime{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*st = SampleTime{raw: s, set: true}
		return nil
	}

	*st = SampleTime{raw: string(data), set: true}
	return nil
}

func (st SampleTime) MarshalJSON() ([]byte, error) {
	if !st.set {
		return []byte("null"), nil
	}
	return json.Marshal(st.raw)
}

func (st SampleTime) IsSet() bool { return st.set }

func (st SampleTime) String() string { return st.raw }

var sampleTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Parse interprets the value as RFC3339, a zone-less date-time in loc, a
// bare date in loc, or epoch milliseconds.
func (st SampleTime) Parse(loc *time.Location) (time.Time, error) {
	raw := strings.TrimSpace(st.raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}

	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).In(loc), nil
	}

	for _, layout := range sampleTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date value %q", raw)
}

// DateSource returns the field that dates the sample: timestamp first, then
// date. ok is false when neither is present.
func (s *Sample) DateSource() (SampleTime, bool) {
	if s.Timestamp.IsSet() {
		return s.Timestamp, true
	}
	if s.Date.IsSet() {
		return s.Date, true
	}
	return SampleTime{}, false
}

// StartOfDay truncates t to midnight of its calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
