// Package http provides HTTP handlers for outcome ingestion and delivery status.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/conversions/internal/httputil"
	"github.com/allisson/conversions/internal/outcome/http/dto"
	"github.com/allisson/conversions/internal/outcome/usecase"
)

// OutcomeHandler handles HTTP requests for outcome ingestion.
type OutcomeHandler struct {
	outcomeUseCase usecase.UseCase
	logger         *slog.Logger
}

// NewOutcomeHandler creates a new outcome handler with required dependencies.
func NewOutcomeHandler(outcomeUseCase usecase.UseCase, logger *slog.Logger) *OutcomeHandler {
	return &OutcomeHandler{
		outcomeUseCase: outcomeUseCase,
		logger:         logger,
	}
}

// ComputeHandler ingests one customer outcome signal.
// POST /v1/outcomes.
// Returns 202 Accepted with the deterministic event id; delivery happens
// asynchronously through the outbox publisher.
func (h *OutcomeHandler) ComputeHandler(c *gin.Context) {
	var req dto.ComputeOutcomeRequest

	// Parse and bind JSON
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	input := req.ToInput(c.ClientIP(), c.Request.UserAgent())

	event, err := h.outcomeUseCase.ComputeCustomerOutcome(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusAccepted, dto.MapEventToComputeResponse(event))
}

// StatusHandler reports recent deliveries and per-(platform, status) aggregates.
// GET /v1/outcomes/status?limit=N.
func (h *OutcomeHandler) StatusHandler(c *gin.Context) {
	_, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	overview, err := h.outcomeUseCase.StatusOverview(c.Request.Context(), limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOverviewToResponse(overview))
}
