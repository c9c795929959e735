// Package task drives a forecast request from submission to a terminal state.
package task

import (
	"time"

	"github.com/i474232898/aqi-forecast/internal/forecast"
)

// Status is the lifecycle state of a task. Transitions are monotonic along
// QUEUED -> FETCHING -> PREDICTING -> {DONE | ERROR}; DONE and ERROR are
// terminal.
type Status string

const (
	StatusQueued     Status = "QUEUED"
	StatusFetching   Status = "FETCHING"
	StatusPredicting Status = "PREDICTING"
	StatusDone       Status = "DONE"
	StatusError      Status = "ERROR"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Result is the published outcome of a completed task.
type Result struct {
	Forecasts forecast.PollutantSeries `json:"forecasts"`
	AQI       []int                    `json:"aqi"`
	MinAQI    int                      `json:"minAqi"`
	MaxAQI    int                      `json:"maxAqi"`
}

// Task is one end-to-end forecast request. Each id identifies exactly one
// execution; resubmitting identical parameters yields an independent task.
type Task struct {
	ID              string    `json:"id"`
	Lat             float64   `json:"lat"`
	Long            float64   `json:"long"`
	PredictionHours int       `json:"predictionHours"`
	Status          Status    `json:"status"`
	Result          *Result   `json:"result,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Done reports whether the task reached a terminal state.
func (t *Task) Done() bool {
	return t.Status.Terminal()
}

// Clone returns a deep copy so callers can never alias ledger-owned state.
func (t *Task) Clone() *Task {
	cp := *t
	if t.Result != nil {
		res := *t.Result
		res.AQI = append([]int(nil), t.Result.AQI...)
		res.Forecasts = forecast.PollutantSeries{
			CO:   append([]float64(nil), t.Result.Forecasts.CO...),
			NO2:  append([]float64(nil), t.Result.Forecasts.NO2...),
			O3:   append([]float64(nil), t.Result.Forecasts.O3...),
			SO2:  append([]float64(nil), t.Result.Forecasts.SO2...),
			PM25: append([]float64(nil), t.Result.Forecasts.PM25...),
			PM10: append([]float64(nil), t.Result.Forecasts.PM10...),
		}
		cp.Result = &res
	}
	return &cp
}

// Ledger is the durable task store. Update applies the mutation as an atomic
// read-modify-write; implementations serialize all writes and must refuse to
// mutate a task that is already terminal.
type Ledger interface {
	Create(t *Task) error
	Get(id string) (*Task, error)
	Update(id string, mutate func(*Task) error) (*Task, error)
	List() ([]*Task, error)
}
