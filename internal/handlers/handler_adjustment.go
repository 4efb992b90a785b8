package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukabook/dukabook_backend/internal/apperrors"
	portssvc "github.com/dukabook/dukabook_backend/internal/core/ports/services"
	"github.com/dukabook/dukabook_backend/internal/core/services"
	"github.com/dukabook/dukabook_backend/internal/dto"
	"github.com/dukabook/dukabook_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// adjustmentHandler handles HTTP requests related to stock adjustments.
type adjustmentHandler struct {
	adjustmentService portssvc.AdjustmentSvcFacade
}

// newAdjustmentHandler creates a new adjustmentHandler.
func newAdjustmentHandler(as portssvc.AdjustmentSvcFacade) *adjustmentHandler {
	return &adjustmentHandler{
		adjustmentService: as,
	}
}

// registerAdjustmentRoutes registers routes related to stock adjustments.
func registerAdjustmentRoutes(rg *gin.RouterGroup, adjustmentService portssvc.AdjustmentSvcFacade) {
	h := newAdjustmentHandler(adjustmentService)

	adjustments := rg.Group("/stock-adjustments")
	{
		adjustments.POST("", h.createAdjustment)
		adjustments.GET("/:id", h.getAdjustment)
		adjustments.GET("", h.listAdjustments)
		adjustments.DELETE("/:id", h.deleteAdjustment)
	}
}

// createAdjustment godoc
// @Summary Apply a stock adjustment
// @Description Atomically records a manual stock correction, updates the product's stock and cost state and posts the financial effect to the general ledger
// @Tags stock-adjustments
// @Accept  json
// @Produce  json
// @Param   adjustment body dto.CreateStockAdjustmentRequest true "Adjustment details; quantityChange is signed"
// @Success 201 {object} dto.StockAdjustmentResponse
// @Failure 400 {object} map[string]string "Invalid input, service product, no cost basis or stock would go negative"
// @Failure 404 {object} map[string]string "Product or offset account not found"
// @Failure 409 {object} map[string]string "Inventory account is not configured for the company"
// @Failure 500 {object} map[string]string "Failed to apply adjustment"
// @Router /stock-adjustments [post]
func (h *adjustmentHandler) createAdjustment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateStockAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAdjustment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	companyID, userID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("product_id", req.ProductID), slog.String("acting_user_id", userID))
	logger.Info("Received request to apply stock adjustment", slog.String("quantity_change", req.QuantityChange.String()))

	adjustment, err := h.adjustmentService.ApplyStockAdjustment(c.Request.Context(), companyID, req, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrValidation),
			errors.Is(err, services.ErrServiceProductHasNoStock),
			errors.Is(err, services.ErrNoCostBasis),
			errors.Is(err, services.ErrNegativeStock),
			errors.Is(err, services.ErrAccountNotFound):
			logger.Warn("Adjustment rejected", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrMissingInventoryAccount):
			logger.Warn("Inventory account missing", slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Product not found for adjustment")
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		default:
			logger.Error("Failed to apply adjustment in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply adjustment"})
		}
		return
	}

	logger.Info("Stock adjustment applied successfully", slog.String("adjustment_id", adjustment.AdjustmentID))
	c.JSON(http.StatusCreated, dto.ToStockAdjustmentResponse(adjustment))
}

// getAdjustment godoc
// @Summary Get a stock adjustment
// @Description Retrieves a stock adjustment with its linked journal entry id
// @Tags stock-adjustments
// @Produce  json
// @Param   id path string true "Adjustment ID"
// @Success 200 {object} dto.StockAdjustmentResponse
// @Failure 404 {object} map[string]string "Adjustment not found"
// @Failure 500 {object} map[string]string "Failed to retrieve adjustment"
// @Router /stock-adjustments/{id} [get]
func (h *adjustmentHandler) getAdjustment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	adjustmentID := c.Param("id")

	companyID, _, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	adjustment, err := h.adjustmentService.GetStockAdjustmentByID(c.Request.Context(), companyID, adjustmentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Adjustment not found", slog.String("adjustment_id", adjustmentID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Adjustment not found"})
		} else {
			logger.Error("Failed to get adjustment from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve adjustment"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToStockAdjustmentResponse(adjustment))
}

// listAdjustments godoc
// @Summary List stock adjustments
// @Description Retrieves a paginated list of the company's stock adjustments, newest first
// @Tags stock-adjustments
// @Produce  json
// @Param   limit query int false "Limit number of results" default(20)
// @Param   offset query int false "Offset for pagination" default(0)
// @Success 200 {array} dto.StockAdjustmentResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list adjustments"
// @Router /stock-adjustments [get]
func (h *adjustmentHandler) listAdjustments(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	companyID, _, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListAdjustments", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	adjustments, err := h.adjustmentService.ListStockAdjustments(c.Request.Context(), companyID, params.Limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list adjustments from service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list adjustments"})
		return
	}

	c.JSON(http.StatusOK, dto.ToStockAdjustmentResponses(adjustments))
}

// deleteAdjustment godoc
// @Summary Delete a stock adjustment record
// @Description Soft-deletes the adjustment record. The posted journal entry is untouched; financial corrections go through entry reversal.
// @Tags stock-adjustments
// @Produce  json
// @Param   id path string true "Adjustment ID to delete"
// @Success 204 "Adjustment deleted"
// @Failure 404 {object} map[string]string "Adjustment not found"
// @Failure 500 {object} map[string]string "Failed to delete adjustment"
// @Router /stock-adjustments/{id} [delete]
func (h *adjustmentHandler) deleteAdjustment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	adjustmentID := c.Param("id")

	companyID, userID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	if err := h.adjustmentService.DeleteStockAdjustment(c.Request.Context(), companyID, adjustmentID, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Adjustment not found for deletion", slog.String("adjustment_id", adjustmentID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Adjustment not found"})
		} else {
			logger.Error("Failed to delete adjustment in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete adjustment"})
		}
		return
	}

	logger.Info("Stock adjustment deleted", slog.String("adjustment_id", adjustmentID))
	c.Status(http.StatusNoContent)
}
