package tracking

import (
	"encoding/json"
	"time"

	"github.com/keshav2k4/employee-tracker-App/internal/history"
)

// Outcome is the result of one tick. Only StoreErr is a hard failure; the
// other errors are recorded and the schedule carries on.
type Outcome struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Entry      *history.Entry
	Synced     bool
	MovedM     float64

	AcquireErr error
	GeocodeErr error
	StoreErr   error
	SyncErr    error
}

func (o Outcome) Persisted() bool {
	return o.Entry != nil
}

// Err returns the hard failure of the tick, if any.
func (o Outcome) Err() error {
	return o.StoreErr
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartedAt    time.Time      `json:"started_at"`
		FinishedAt   time.Time      `json:"finished_at"`
		Entry        *history.Entry `json:"entry"`
		Persisted    bool           `json:"persisted"`
		Synced       bool           `json:"synced"`
		MovedM       float64        `json:"moved_m"`
		AcquireError string         `json:"acquire_error,omitempty"`
		GeocodeError string         `json:"geocode_error,omitempty"`
		StorageError string         `json:"storage_error,omitempty"`
		SyncError    string         `json:"sync_error,omitempty"`
	}{
		StartedAt:    o.StartedAt,
		FinishedAt:   o.FinishedAt,
		Entry:        o.Entry,
		Persisted:    o.Persisted(),
		Synced:       o.Synced,
		MovedM:       o.MovedM,
		AcquireError: errString(o.AcquireErr),
		GeocodeError: errString(o.GeocodeErr),
		StorageError: errString(o.StoreErr),
		SyncError:    errString(o.SyncErr),
	})
}

// Status describes the current session. Counters and LastOutcome cover the
// whole process lifetime, across sessions.
type Status struct {
	Active          bool       `json:"active"`
	IntervalMS      int64      `json:"interval_ms,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	Ticks           int        `json:"ticks"`
	Persisted       int        `json:"persisted"`
	Synced          int        `json:"synced"`
	AcquireFailures int        `json:"acquire_failures"`
	GeocodeFailures int        `json:"geocode_failures"`
	StorageFailures int        `json:"storage_failures"`
	SyncFailures    int        `json:"sync_failures"`
	LastOutcome     *Outcome   `json:"last_outcome,omitempty"`
}

type StartRequest struct {
	IntervalMS int64 `json:"interval_ms"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
