package archive

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"scene-archiver/feature/archive/models"
)

// Handler handles HTTP requests for the archive engine.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the archive routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/api")
	group.Get("/status", h.HandleStatus)
	group.Get("/jobs", h.HandleListJobs)
	group.Post("/jobs", h.HandleStartJob)
	group.Get("/jobs/:id", h.HandleGetJob)
	group.Delete("/jobs/:id", h.HandleCancelJob)
}

// HandleStatus returns pool and cache statistics.
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	status, err := h.service.GetStatus(c.Context())
	if err != nil {
		h.service.logger.Error("Status check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(status)
}

// HandleListJobs returns all known jobs, newest first.
func (h *Handler) HandleListJobs(c *fiber.Ctx) error {
	return c.JSON(h.service.ListJobs())
}

// HandleStartJob launches a reconciliation job from a JSON job spec.
func (h *Handler) HandleStartJob(c *fiber.Ctx) error {
	var spec models.JobSpec
	if err := c.BodyParser(&spec); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid job spec: " + err.Error(),
		})
	}

	status, err := h.service.StartJob(c.Context(), spec)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.service.logger.Info("Job started via API", zap.String("job_id", status.ID))
	return c.Status(fiber.StatusAccepted).JSON(status)
}

// HandleGetJob returns one job's snapshot, including the report when done.
func (h *Handler) HandleGetJob(c *fiber.Ctx) error {
	status, err := h.service.GetJob(c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(status)
}

// HandleCancelJob flags a job for cooperative cancellation.
func (h *Handler) HandleCancelJob(c *fiber.Ctx) error {
	status, err := h.service.CancelJob(c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	h.service.logger.Info("Job cancellation requested", zap.String("job_id", status.ID))
	return c.JSON(status)
}
