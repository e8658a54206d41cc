package models

import (
	"time"

	"github.com/google/uuid"
)

type SyncStatus string

const (
	SyncStatusInProgress SyncStatus = "in-progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
	SyncStatusCancelled  SyncStatus = "cancelled"
)

type SyncType string

const (
	SyncTypeFull        SyncType = "full"
	SyncTypeIncremental SyncType = "incremental"
)

// BytesPerDataPoint is the fixed size estimate used for BytesTransferred.
const BytesPerDataPoint = 64

const (
	SyncErrorInvalidDate = "INVALID_DATE"
	SyncErrorAbandoned   = "SYNC_ABANDONED"
)

type SyncError struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
}

// SyncCounters are the running totals of one sync call.
type SyncCounters struct {
	DataPoints       int `json:"dataPoints"`
	HealthDataCount  int `json:"healthDataCount"`
	WorkoutDataCount int `json:"workoutDataCount"`
	SleepDataCount   int `json:"sleepDataCount"`
}

// Add folds one sample into the counters.
func (c *SyncCounters) Add(s *Sample) {
	c.DataPoints += s.MetricCount()
	c.HealthDataCount++
	c.WorkoutDataCount += len(s.Workouts)
	if s.SleepStages != nil {
		c.SleepDataCount++
	}
}

// SyncSession is the audit record of one sync call. Status only moves
// forward out of in-progress, and EndTime is set by that same transition.
type SyncSession struct {
	ID               uuid.UUID   `json:"id"`
	SessionID        string      `json:"sessionId"`
	UserID           uuid.UUID   `json:"userId"`
	DeviceID         string      `json:"deviceId"`
	DeviceName       string      `json:"deviceName"`
	StartTime        time.Time   `json:"startTime"`
	EndTime          *time.Time  `json:"endTime,omitempty"`
	Status           SyncStatus  `json:"status"`
	DataPoints       int         `json:"dataPoints"`
	BytesTransferred int64       `json:"bytesTransferred"`
	HealthDataCount  int         `json:"healthDataCount"`
	WorkoutDataCount int         `json:"workoutDataCount"`
	SleepDataCount   int         `json:"sleepDataCount"`
	Errors           []SyncError `json:"errors"`
	SyncType         SyncType    `json:"syncType"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// SyncResult is returned to the caller of a sync.
type SyncResult struct {
	SessionID string `json:"sessionId"`
	SyncCounters
}
