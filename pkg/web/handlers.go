package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Execution
	validator        *validator.Validate
	logger           *slog.Logger
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		validator:        validator,
		logger:           logger.With("module", "api"),
	}
}

// RegisterRoutes mounts every endpoint on router.
func RegisterRoutes(router fiber.Router, h *APIHandlers) {
	router.Get("/health", h.HealthCheck)

	router.Post("/executions", h.RunWorkflow)
	router.Get("/executions/:id", h.GetExecution)
	router.Get("/executions/:id/logs", h.GetExecutionLogs)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.SaveWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/validate", h.ValidateWorkflow)
	w.Post("/:id/execute", h.ExecuteWorkflow)
	w.Get("/:id/executions", h.GetWorkflowExecutions)
}

// RunWorkflow runs a workflow synchronously and answers with its result map.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	var req RunRequest

	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(RunResponse{Error: "invalid request body: " + err.Error()})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(RunResponse{Error: "flowId is required"})
	}

	return h.run(c, req.FlowID, req.TriggerData)
}

// ExecuteWorkflow is RunWorkflow with the flow id taken from the path.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(RunResponse{Error: "invalid request body: " + err.Error()})
		}
	}

	return h.run(c, c.Params("id"), req.TriggerData)
}

func (h *APIHandlers) run(c fiber.Ctx, flowID string, triggerData models.Payload) error {
	out, err := h.executionService.Run(c.Context(), flowID, triggerData)
	if err != nil {
		h.logger.WarnContext(c.Context(), "Run failed", "workflow_id", flowID, "error", err)

		return runFailure(c, err)
	}

	return c.JSON(RunResponse{
		Success:     true,
		ExecutionID: out.ExecutionID,
		Result:      out.Result,
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.FetchAll(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// SaveWorkflow creates or replaces the definition stored under the path id.
func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	var req SaveWorkflowRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflowService.Save(c.Context(), req.ToWorkflow(c.Params("id")))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflowService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateWorkflow checks a stored definition against the current action and condition registries.
func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	err = h.workflowService.Validate(c.Context(), workflow)
	if err == nil {
		return c.JSON(ValidationResponse{Valid: true})
	}

	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		return handleServiceError(c, err)
	}

	issues := make([]string, 0, len(validationErr.Issues))
	for _, issue := range validationErr.Issues {
		issues = append(issues, issue.Error())
	}

	return c.JSON(ValidationResponse{Valid: false, Issues: issues})
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	records, err := h.executionService.ListByWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  records,
		"total_count": len(records),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	record, err := h.executionService.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

func (h *APIHandlers) GetExecutionLogs(c fiber.Ctx) error {
	entries, err := h.executionService.Logs(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"execution_id": c.Params("id"),
		"logs":         entries,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Automation API is unhealthy"
	httpStatus := http.StatusServiceUnavailable

	if repOk {
		status = "healthy"
		message = "Automation API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"persistence": repositoryCheck,
		},
	})
}
