// Package forecast talks to the external forecasting model service.
package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/aqi-forecast/internal/airnow"
)

// MaxHorizon is the model service's documented maximum forecast horizon in
// hours. Larger requests are silently clamped.
const MaxHorizon = 12

// DefaultTimeout bounds a single forecast call; model inference over a full
// 168-hour window can take minutes.
const DefaultTimeout = 300 * time.Second

// HistoricalData is the fetched lookback window in the shape the model
// service expects.
type HistoricalData struct {
	RequestedHours int                   `json:"requested_hours"`
	TotalRecords   int                   `json:"total_records"`
	Data           []airnow.HourlyRecord `json:"data"`
}

// Request is one prediction call.
type Request struct {
	TaskID          string         `json:"task_id"`
	Lat             float64        `json:"lat"`
	Long            float64        `json:"long"`
	PredictionHours int            `json:"prediction_hours"`
	HistoricalData  HistoricalData `json:"historical_data"`
}

// PollutantSeries holds one predicted concentration sequence per pollutant.
// JSON keys match the model service's output names.
type PollutantSeries struct {
	CO   []float64 `json:"co"`
	NO2  []float64 `json:"no2"`
	O3   []float64 `json:"o3"`
	SO2  []float64 `json:"so2"`
	PM25 []float64 `json:"pm25frm"`
	PM10 []float64 `json:"pm10mass"`
}

// Prediction is the model service's response.
type Prediction struct {
	TaskID    string          `json:"task_id"`
	Forecasts PollutantSeries `json:"forecasts"`
}

// Gateway abstracts the forecasting model service.
type Gateway interface {
	// Predict runs one forecast. The request horizon is clamped to
	// MaxHorizon before the call; a short or malformed response is an error.
	Predict(ctx context.Context, req Request) (*Prediction, error)
}

// HTTPGateway is the HTTP implementation of Gateway.
type HTTPGateway struct {
	url     string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewHTTPGateway creates an HTTPGateway. maxRetries is the explicit retry
// budget for a failed call; zero means a single attempt.
func NewHTTPGateway(client *http.Client, url string, maxRetries int) *HTTPGateway {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "forecast-gateway",
		MaxRequests: 2,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &HTTPGateway{
		url: url,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      maxRetries,
				InitialInterval: 2 * time.Second,
				MaxInterval:     30 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (g *HTTPGateway) Predict(ctx context.Context, req Request) (*Prediction, error) {
	if req.PredictionHours > MaxHorizon {
		req.PredictionHours = MaxHorizon
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode forecast request: %w", err)
	}

	buildRequest := func() (*http.Request, error) {
		httpReq, err := http.NewRequest(http.MethodPost, g.url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	}

	resp, err := doRequestWithResilience(ctx, g.httpCfg, g.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("forecast gateway: %w", err)
	}
	defer resp.Body.Close()

	var pred Prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("forecast gateway: decode response: %w", err)
	}

	if err := validateSeries(pred.Forecasts, req.PredictionHours); err != nil {
		return nil, fmt.Errorf("forecast gateway: %w", err)
	}
	pred.Forecasts = truncateSeries(pred.Forecasts, req.PredictionHours)
	return &pred, nil
}

// validateSeries rejects responses missing timesteps for any pollutant.
func validateSeries(ps PollutantSeries, horizon int) error {
	series := map[string][]float64{
		"co":       ps.CO,
		"no2":      ps.NO2,
		"o3":       ps.O3,
		"so2":      ps.SO2,
		"pm25frm":  ps.PM25,
		"pm10mass": ps.PM10,
	}
	for name, s := range series {
		if len(s) < horizon {
			return fmt.Errorf("malformed response: %s has %d of %d timesteps", name, len(s), horizon)
		}
	}
	return nil
}

// truncateSeries cuts every pollutant series down to the requested horizon so
// callers never see more timesteps than they asked for.
func truncateSeries(ps PollutantSeries, horizon int) PollutantSeries {
	return PollutantSeries{
		CO:   ps.CO[:horizon],
		NO2:  ps.NO2[:horizon],
		O3:   ps.O3[:horizon],
		SO2:  ps.SO2[:horizon],
		PM25: ps.PM25[:horizon],
		PM10: ps.PM10[:horizon],
	}
}
