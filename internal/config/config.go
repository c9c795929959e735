package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string

	// AirNow snapshot source.
	AirNowBaseURL string
	FetchWorkers  int           // concurrent hourly snapshot requests
	FetchTimeout  time.Duration // per-hour request timeout
	LookbackHours int           // historical window fed to the model

	// Forecast gateway.
	GatewayURL        string
	GatewayTimeout    time.Duration
	GatewayMaxRetries int // explicit retry budget; 0 = single attempt

	// Nearest-station search radius.
	MaxDistanceKm float64

	// Background task execution.
	TaskWorkers   int
	TaskQueueSize int

	// Ledger file location.
	LedgerPath string

	// Stranded-task sweep.
	SweepInterval time.Duration
	StuckAfter    time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.AirNowBaseURL = getenvDefault("AIRNOW_BASE_URL", "https://s3-us-west-1.amazonaws.com/files.airnowtech.org")
	cfg.FetchWorkers = getenvInt("FETCH_WORKERS", 56)
	cfg.LookbackHours = getenvInt("LOOKBACK_HOURS", 168)

	fetchTimeout, err := getenvDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cfg.FetchTimeout = fetchTimeout

	cfg.GatewayURL = getenvDefault("GATEWAY_URL", "http://127.0.0.1:8002/predict")
	cfg.GatewayMaxRetries = getenvInt("GATEWAY_MAX_RETRIES", 0)

	gatewayTimeout, err := getenvDuration("GATEWAY_TIMEOUT", "300s")
	if err != nil {
		return nil, err
	}
	cfg.GatewayTimeout = gatewayTimeout

	cfg.MaxDistanceKm = getenvFloat("MAX_DISTANCE_KM", 150)

	cfg.TaskWorkers = getenvInt("TASK_WORKERS", 2)
	cfg.TaskQueueSize = getenvInt("TASK_QUEUE_SIZE", 100)

	cfg.LedgerPath = getenvDefault("LEDGER_PATH", "data/tasks.json")

	sweepInterval, err := getenvDuration("SWEEP_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}
	cfg.SweepInterval = sweepInterval

	stuckAfter, err := getenvDuration("STUCK_AFTER", "10m")
	if err != nil {
		return nil, err
	}
	cfg.StuckAfter = stuckAfter

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
