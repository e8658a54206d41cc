package models

import (
	"time"

	"github.com/google/uuid"
)

type DataSource string

const (
	DataSourceBluetooth DataSource = "bluetooth"
	DataSourceManual    DataSource = "manual"
	DataSourceImport    DataSource = "import"
)

type BloodPressure struct {
	Systolic  *int `json:"systolic,omitempty" validate:"omitempty,gte=0"`
	Diastolic *int `json:"diastolic,omitempty" validate:"omitempty,gte=0"`
}

// SleepStages is a night's sleep broken down by stage, in hours.
type SleepStages struct {
	Deep  *float64 `json:"deep,omitempty" validate:"omitempty,gte=0,lte=24"`
	Light *float64 `json:"light,omitempty" validate:"omitempty,gte=0,lte=24"`
	REM   *float64 `json:"rem,omitempty" validate:"omitempty,gte=0,lte=24"`
	Awake *float64 `json:"awake,omitempty" validate:"omitempty,gte=0,lte=24"`
}

type WorkoutSummary struct {
	Type            string     `json:"type"`
	DurationMinutes *float64   `json:"durationMinutes,omitempty" validate:"omitempty,gte=0"`
	Calories        *float64   `json:"calories,omitempty" validate:"omitempty,gte=0"`
	Distance        *float64   `json:"distance,omitempty" validate:"omitempty,gte=0"`
	AvgHeartRate    *float64   `json:"avgHeartRate,omitempty" validate:"omitempty,gte=0,lte=300"`
	StartTime       *time.Time `json:"startTime,omitempty"`
}

// HealthMetrics is the closed set of scalar metrics a device can report for a
// day. A nil field means "not reported".
type HealthMetrics struct {
	Steps         *int           `json:"steps,omitempty" validate:"omitempty,gte=0"`
	HeartRate     *float64       `json:"heartRate,omitempty" validate:"omitempty,gte=0,lte=300"`
	Calories      *float64       `json:"calories,omitempty" validate:"omitempty,gte=0"`
	Distance      *float64       `json:"distance,omitempty" validate:"omitempty,gte=0"`
	SleepHours    *float64       `json:"sleepHours,omitempty" validate:"omitempty,gte=0,lte=24"`
	ActiveMinutes *int           `json:"activeMinutes,omitempty" validate:"omitempty,gte=0"`
	BloodOxygen   *float64       `json:"bloodOxygen,omitempty" validate:"omitempty,gte=0,lte=100"`
	BloodPressure *BloodPressure `json:"bloodPressure,omitempty" validate:"omitempty"`
	Temperature   *float64       `json:"temperature,omitempty" validate:"omitempty,gte=30,lte=45"`
	StressLevel   *float64       `json:"stressLevel,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// Count returns how many metrics are present.
func (m HealthMetrics) Count() int {
	n := 0
	for _, present := range []bool{
		m.Steps != nil,
		m.HeartRate != nil,
		m.Calories != nil,
		m.Distance != nil,
		m.SleepHours != nil,
		m.ActiveMinutes != nil,
		m.BloodOxygen != nil,
		m.BloodPressure != nil,
		m.Temperature != nil,
		m.StressLevel != nil,
	} {
		if present {
			n++
		}
	}
	return n
}

// HealthDataPoint is one calendar day of metrics for a (user, device) pair.
// Date carries no time of day.
type HealthDataPoint struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"userId"`
	DeviceID string    `json:"deviceId"`
	Date     time.Time `json:"date"`
	HealthMetrics
	SleepStages   *SleepStages     `json:"sleepStages,omitempty"`
	Workouts      []WorkoutSummary `json:"workouts,omitempty"`
	SyncSessionID *string          `json:"syncSessionId,omitempty"`
	DataSource    DataSource       `json:"dataSource"`
	IsActive      bool             `json:"isActive"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// HealthDataFilter bounds a health history query. Zero times mean unbounded.
type HealthDataFilter struct {
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
