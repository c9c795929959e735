package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/aqi-forecast/internal/airnow"
	"github.com/i474232898/aqi-forecast/internal/forecast"
	"github.com/i474232898/aqi-forecast/internal/store"
	"github.com/i474232898/aqi-forecast/internal/task"
)

// stubFetcher serves a fixed lookback window without touching the network.
type stubFetcher struct {
	records []airnow.HourlyRecord
}

func (s *stubFetcher) FetchWindow(ctx context.Context, ref time.Time, hours int) ([]airnow.HourlyRecord, error) {
	return s.records, nil
}

// stubGateway fabricates a forecast of the requested horizon.
type stubGateway struct{}

func (g *stubGateway) Predict(ctx context.Context, req forecast.Request) (*forecast.Prediction, error) {
	n := req.PredictionHours
	flat := func(v float64) []float64 {
		s := make([]float64, n)
		for i := range s {
			s[i] = v
		}
		return s
	}
	return &forecast.Prediction{
		TaskID: req.TaskID,
		Forecasts: forecast.PollutantSeries{
			CO:   flat(0.4),
			NO2:  flat(0.01),
			O3:   flat(0.03),
			SO2:  flat(0.002),
			PM25: flat(8.2),
			PM10: flat(15),
		},
	}, nil
}

func newTestApp(t *testing.T) (*fiber.App, *task.Runner) {
	t.Helper()

	ledger, err := store.NewFileLedger(filepath.Join(t.TempDir(), "tasks.json"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}

	records := []airnow.HourlyRecord{
		{AQSID: "060010007", SiteName: "Oakland West", Latitude: 37.8044, Longitude: -122.2712, PM25: 8.2},
	}

	svc := task.NewService(ledger, &stubFetcher{records: records}, &stubGateway{}, task.Config{})
	runner := task.NewRunner(ledger, svc, 2, 10)
	svc.SetQueue(runner)
	if err := runner.Start(); err != nil {
		t.Fatalf("start runner: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": true, "message": err.Error()})
		},
	})
	RegisterRoutes(app, svc)
	return app, runner
}

func postSubmit(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submit", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

// TestSubmitValidation verifies that bad submissions are rejected
// synchronously and never create a task.
func TestSubmitValidation(t *testing.T) {
	app, runner := newTestApp(t)
	defer runner.Stop()

	cases := []string{
		`{"lat": 37.7749, "long": -122.4194, "predictionHours": 0}`,
		`{"lat": 37.7749, "long": -122.4194, "predictionHours": 13}`,
		`{"lat": 91, "long": 0, "predictionHours": 12}`,
		`{"lat": 0, "long": -181, "predictionHours": 12}`,
		`not json`,
	}
	for _, body := range cases {
		resp := postSubmit(t, app, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: expected status %d, got %d", body, http.StatusBadRequest, resp.StatusCode)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var tasks []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks after rejected submissions, got %d", len(tasks))
	}
}

// TestStatusUnknownID verifies the 404 path.
func TestStatusUnknownID(t *testing.T) {
	app, runner := newTestApp(t)
	defer runner.Stop()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/nope", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

// TestSubmitAndPollToCompletion drives a submission end to end: accepted
// immediately, then polled until done with 12 AQI values and 6 forecast
// series of length 12.
func TestSubmitAndPollToCompletion(t *testing.T) {
	app, runner := newTestApp(t)
	defer runner.Stop()

	resp := postSubmit(t, app, `{"lat": 37.7749, "long": -122.4194, "predictionHours": 12}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, resp.StatusCode)
	}

	var submitted struct {
		TaskID string `json:"taskId"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if submitted.TaskID == "" || submitted.Status != "queued" {
		t.Fatalf("unexpected submit response: %+v", submitted)
	}

	var status statusResponse
	deadline := time.Now().Add(5 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("task %s never completed; last status %q", submitted.TaskID, status.Status)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/status/"+submitted.TaskID, nil)
		pollResp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pollResp.StatusCode != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, pollResp.StatusCode)
		}
		if err := json.NewDecoder(pollResp.Body).Decode(&status); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if status.Done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if status.Status != task.StatusDone {
		t.Fatalf("expected DONE, got %s (error %q)", status.Status, status.Error)
	}
	if status.Result == nil {
		t.Fatal("expected a result on a DONE task")
	}
	if len(status.Result.AQI) != 12 {
		t.Fatalf("expected 12 AQI values, got %d", len(status.Result.AQI))
	}
	for name, s := range map[string][]float64{
		"co":       status.Result.Forecasts.CO,
		"no2":      status.Result.Forecasts.NO2,
		"o3":       status.Result.Forecasts.O3,
		"so2":      status.Result.Forecasts.SO2,
		"pm25frm":  status.Result.Forecasts.PM25,
		"pm10mass": status.Result.Forecasts.PM10,
	} {
		if len(s) != 12 {
			t.Fatalf("expected 12 %s values, got %d", name, len(s))
		}
	}
	if status.Result.MinAQI > status.Result.MaxAQI {
		t.Fatalf("min AQI %d exceeds max %d", status.Result.MinAQI, status.Result.MaxAQI)
	}
}
