package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/aqi-forecast/internal/airnow"
	httpapi "github.com/i474232898/aqi-forecast/internal/api/http"
	"github.com/i474232898/aqi-forecast/internal/config"
	"github.com/i474232898/aqi-forecast/internal/forecast"
	"github.com/i474232898/aqi-forecast/internal/scheduler"
	"github.com/i474232898/aqi-forecast/internal/store"
	"github.com/i474232898/aqi-forecast/internal/task"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Durable task ledger.
	ledger, err := store.NewFileLedger(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("failed to open ledger: %v", err)
	}

	// Outbound HTTP clients. Per-call deadlines live in the fetcher and
	// gateway; the client timeouts are a backstop.
	fetchClient := &http.Client{Timeout: cfg.FetchTimeout + 5*time.Second}
	gatewayClient := &http.Client{Timeout: cfg.GatewayTimeout}

	fetcher := airnow.NewFetcher(fetchClient, cfg.AirNowBaseURL, cfg.FetchWorkers, cfg.FetchTimeout)
	gateway := forecast.NewHTTPGateway(gatewayClient, cfg.GatewayURL, cfg.GatewayMaxRetries)

	// Orchestrator and its worker pool.
	service := task.NewService(ledger, fetcher, gateway, task.Config{
		LookbackHours: cfg.LookbackHours,
		MaxDistanceKm: cfg.MaxDistanceKm,
	})
	runner := task.NewRunner(ledger, service, cfg.TaskWorkers, cfg.TaskQueueSize)
	service.SetQueue(runner)

	if err := runner.Start(); err != nil {
		log.Fatalf("failed to start runner: %v", err)
	}
	defer runner.Stop()

	// Sweep for tasks stranded by crashes or a full queue.
	sweeper := scheduler.New(ledger, runner, cfg.SweepInterval, cfg.StuckAfter)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("failed to start sweeper: %v", err)
	}
	defer sweeper.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "aqi-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "aqi-forecast",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
