package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/aqi-forecast/internal/store"
	"github.com/i474232898/aqi-forecast/internal/task"
)

var validate = validator.New()

// submitRequest is the submission body. predictionHours is bounded by the
// forecast gateway's documented maximum horizon.
type submitRequest struct {
	Lat             float64 `json:"lat" validate:"gte=-90,lte=90"`
	Long            float64 `json:"long" validate:"gte=-180,lte=180"`
	PredictionHours int     `json:"predictionHours" validate:"required,gte=1,lte=12"`
}

// statusResponse is the task snapshot returned by the status endpoint.
type statusResponse struct {
	ID     string       `json:"id"`
	Done   bool         `json:"done"`
	Status task.Status  `json:"status"`
	Result *task.Result `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func toStatusResponse(t *task.Task) statusResponse {
	return statusResponse{
		ID:     t.ID,
		Done:   t.Done(),
		Status: t.Status,
		Result: t.Result,
		Error:  t.Error,
	}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *task.Service) {
	v1 := app.Group("/api/v1")

	v1.Post("/submit", func(c *fiber.Ctx) error {
		var req submitRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		t, err := service.Submit(req.Lat, req.Long, req.PredictionHours)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"taskId": t.ID,
			"status": "queued",
		})
	})

	v1.Get("/status/:taskId", func(c *fiber.Ctx) error {
		t, err := service.Get(c.Params("taskId"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "unknown task id")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read task")
		}
		return c.JSON(toStatusResponse(t))
	})

	v1.Get("/tasks", func(c *fiber.Ctx) error {
		tasks, err := service.List()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list tasks")
		}

		out := make([]statusResponse, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, toStatusResponse(t))
		}
		return c.JSON(out)
	})
}
