package task

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/aqi-forecast/internal/airnow"
	"github.com/i474232898/aqi-forecast/internal/aqi"
	"github.com/i474232898/aqi-forecast/internal/forecast"
)

// dataUnavailableMsg terminates a task whose lookback window produced no
// usable records after fetch and resolve.
const dataUnavailableMsg = "data unavailable"

// HistoryFetcher retrieves the historical lookback window.
type HistoryFetcher interface {
	FetchWindow(ctx context.Context, ref time.Time, hours int) ([]airnow.HourlyRecord, error)
}

// Queue accepts task ids for background execution.
type Queue interface {
	Enqueue(id string) bool
}

// Config holds orchestration parameters.
type Config struct {
	// LookbackHours is the fixed historical window fed to the model.
	LookbackHours int
	// MaxDistanceKm bounds the nearest-station search.
	MaxDistanceKm float64
}

// Service coordinates fetcher, resolver, forecast gateway and AQI calculator,
// persisting every transition into the ledger.
type Service struct {
	ledger  Ledger
	fetcher HistoryFetcher
	gateway forecast.Gateway
	queue   Queue
	cfg     Config
}

// NewService creates a Service. Attach the runner with SetQueue before the
// first Submit.
func NewService(ledger Ledger, fetcher HistoryFetcher, gateway forecast.Gateway, cfg Config) *Service {
	if cfg.LookbackHours <= 0 || cfg.LookbackHours > airnow.MaxLookbackHours {
		cfg.LookbackHours = airnow.MaxLookbackHours
	}
	if cfg.MaxDistanceKm <= 0 {
		cfg.MaxDistanceKm = airnow.DefaultMaxDistanceKm
	}
	return &Service{
		ledger:  ledger,
		fetcher: fetcher,
		gateway: gateway,
		cfg:     cfg,
	}
}

// SetQueue wires the background queue; split from NewService because the
// runner needs the service as its processor.
func (s *Service) SetQueue(q Queue) {
	s.queue = q
}

// Submit validates parameters, persists a QUEUED task and schedules it for
// background execution. It returns without waiting for completion.
func (s *Service) Submit(lat, long float64, predictionHours int) (*Task, error) {
	if predictionHours <= 0 || predictionHours > forecast.MaxHorizon {
		return nil, fmt.Errorf("predictionHours must be in [1,%d]", forecast.MaxHorizon)
	}
	if lat < -90 || lat > 90 || long < -180 || long > 180 {
		return nil, fmt.Errorf("coordinates out of range")
	}

	now := time.Now().UTC()
	t := &Task{
		ID:              uuid.New().String(),
		Lat:             lat,
		Long:            long,
		PredictionHours: predictionHours,
		Status:          StatusQueued,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.ledger.Create(t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if s.queue != nil {
		s.queue.Enqueue(t.ID)
	}
	return t, nil
}

// Get returns a task snapshot.
func (s *Service) Get(id string) (*Task, error) {
	return s.ledger.Get(id)
}

// List returns all tasks in insertion order.
func (s *Service) List() ([]*Task, error) {
	return s.ledger.List()
}

// Process drives one task to a terminal state: fetch the lookback window,
// resolve the nearest station, call the forecast gateway, compute AQI and
// persist the outcome. Failures never retry; they land in ERROR with the
// captured message.
func (s *Service) Process(ctx context.Context, id string) {
	t, err := s.transition(id, StatusFetching)
	if err != nil {
		log.Printf("task %s: enter FETCHING: %v", id, err)
		return
	}

	ref := airnow.ReferenceTime(time.Now())
	records, err := s.fetcher.FetchWindow(ctx, ref, s.cfg.LookbackHours)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown, not a task failure. Leave the task non-terminal so
			// startup recovery or the sweeper re-runs it.
			log.Printf("task %s: interrupted during fetch, left in %s", id, t.Status)
			return
		}
		s.fail(id, fmt.Sprintf("fetch window: %v", err))
		return
	}

	res := airnow.Resolve(records, &t.Lat, &t.Long, s.cfg.MaxDistanceKm)
	if len(res.Records) == 0 {
		s.fail(id, dataUnavailableMsg)
		return
	}
	if res.Station != nil {
		log.Printf("task %s: nearest station %s (%s) at %.2f km, %d records",
			id, res.Station.AQSID, res.Station.Name, res.DistanceKm, len(res.Records))
	}

	if _, err := s.transition(id, StatusPredicting); err != nil {
		log.Printf("task %s: enter PREDICTING: %v", id, err)
		return
	}

	horizon := t.PredictionHours
	if horizon > forecast.MaxHorizon {
		horizon = forecast.MaxHorizon
	}

	pred, err := s.gateway.Predict(ctx, forecast.Request{
		TaskID:          t.ID,
		Lat:             t.Lat,
		Long:            t.Long,
		PredictionHours: horizon,
		HistoricalData: forecast.HistoricalData{
			RequestedHours: s.cfg.LookbackHours,
			TotalRecords:   len(res.Records),
			Data:           res.Records,
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Printf("task %s: interrupted during predict, left in %s", id, StatusPredicting)
			return
		}
		s.fail(id, err.Error())
		return
	}

	series, err := aqi.Series(
		pred.Forecasts.CO, pred.Forecasts.NO2, pred.Forecasts.O3,
		pred.Forecasts.SO2, pred.Forecasts.PM25, pred.Forecasts.PM10,
	)
	if err != nil {
		s.fail(id, err.Error())
		return
	}
	if len(series) == 0 {
		s.fail(id, "forecast returned no timesteps")
		return
	}

	minAQI, maxAQI := series[0], series[0]
	for _, v := range series {
		if v < minAQI {
			minAQI = v
		}
		if v > maxAQI {
			maxAQI = v
		}
	}

	_, err = s.ledger.Update(id, func(t *Task) error {
		t.Status = StatusDone
		t.Result = &Result{
			Forecasts: pred.Forecasts,
			AQI:       series,
			MinAQI:    minAQI,
			MaxAQI:    maxAQI,
		}
		return nil
	})
	if err != nil {
		log.Printf("task %s: persist DONE: %v", id, err)
		return
	}
	log.Printf("task %s: done, aqi range %d-%d over %d hours", id, minAQI, maxAQI, len(series))
}

func (s *Service) transition(id string, status Status) (*Task, error) {
	return s.ledger.Update(id, func(t *Task) error {
		t.Status = status
		return nil
	})
}

func (s *Service) fail(id, msg string) {
	log.Printf("task %s: failed: %s", id, msg)
	if _, err := s.ledger.Update(id, func(t *Task) error {
		t.Status = StatusError
		t.Error = msg
		return nil
	}); err != nil {
		log.Printf("task %s: persist ERROR: %v", id, err)
	}
}
