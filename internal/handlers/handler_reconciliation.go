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

// maxStatementUploadBytes caps the size of an uploaded CSV statement.
const maxStatementUploadBytes = 5 << 20

// reconciliationHandler handles HTTP requests related to bank reconciliation.
type reconciliationHandler struct {
	reconciliationService portssvc.ReconciliationSvcFacade
}

// newReconciliationHandler creates a new reconciliationHandler.
func newReconciliationHandler(rs portssvc.ReconciliationSvcFacade) *reconciliationHandler {
	return &reconciliationHandler{
		reconciliationService: rs,
	}
}

// registerReconciliationRoutes registers routes related to bank reconciliation.
func registerReconciliationRoutes(rg *gin.RouterGroup, reconciliationService portssvc.ReconciliationSvcFacade) {
	h := newReconciliationHandler(reconciliationService)

	recon := rg.Group("/reconciliation")
	{
		recon.GET("/accounts/:id/candidates", h.proposeMatches)
		recon.POST("/matches", h.reconcile)
		recon.POST("/accounts/:id/statement", h.importStatement)
	}
}

// proposeMatches godoc
// @Summary List reconciliation candidates
// @Description Lists the unmatched bank statement lines and unmatched posted ledger lines for one bank account
// @Tags reconciliation
// @Produce  json
// @Param   id path string true "Bank account ID"
// @Success 200 {object} dto.ProposeMatchesResponse
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to list candidates"
// @Router /reconciliation/accounts/{id}/candidates [get]
func (h *reconciliationHandler) proposeMatches(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")

	companyID, _, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	proposal, err := h.reconciliationService.ProposeMatches(c.Request.Context(), companyID, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Account not found for reconciliation", slog.String("account_id", accountID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		} else {
			logger.Error("Failed to list reconciliation candidates", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list candidates"})
		}
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// reconcile godoc
// @Summary Reconcile bank lines against ledger lines
// @Description Nets the selected bank statement lines against the selected ledger lines and marks both sides matched when the totals agree within the configured tolerance
// @Tags reconciliation
// @Accept  json
// @Produce  json
// @Param   match body dto.ReconcileRequest true "Line selections for both sides"
// @Success 204 "Lines matched"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "One or more selected lines not found"
// @Failure 409 {object} map[string]string "A line is already matched or was modified concurrently"
// @Failure 422 {object} map[string]string "Totals do not agree within tolerance"
// @Failure 500 {object} map[string]string "Failed to reconcile"
// @Router /reconciliation/matches [post]
func (h *reconciliationHandler) reconcile(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Reconcile", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	companyID, userID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	logger = logger.With(
		slog.Int("bank_line_count", len(req.BankLineIDs)),
		slog.Int("ledger_line_count", len(req.LedgerLineIDs)),
	)
	logger.Info("Received reconciliation request")

	err := h.reconciliationService.Reconcile(c.Request.Context(), companyID, req, userID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("Selected lines not found", slog.String("error", err.Error()))
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrAmountMismatch):
			logger.Warn("Reconciliation totals do not agree", slog.String("error", err.Error()))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrLineAlreadyMatched),
			errors.Is(err, services.ErrConcurrentModification):
			logger.Warn("Reconciliation conflict", slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Validation error reconciling", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to reconcile in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile"})
		}
		return
	}

	logger.Info("Reconciliation completed successfully")
	c.Status(http.StatusNoContent)
}

// importStatement godoc
// @Summary Import a bank statement CSV
// @Description Parses a manually uploaded statement file and appends its rows as unmatched bank lines. Malformed rows are skipped and counted.
// @Tags reconciliation
// @Accept  mpfd
// @Produce  json
// @Param   id path string true "Bank account ID"
// @Param   statement formData file true "CSV statement file"
// @Success 200 {object} dto.ImportStatementResult
// @Failure 400 {object} map[string]string "Missing or unreadable file"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 500 {object} map[string]string "Failed to import statement"
// @Router /reconciliation/accounts/{id}/statement [post]
func (h *reconciliationHandler) importStatement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")

	companyID, userID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("statement")
	if err != nil {
		logger.Warn("Missing statement file in upload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "A 'statement' file is required"})
		return
	}
	if fileHeader.Size > maxStatementUploadBytes {
		logger.Warn("Statement file too large", slog.Int64("size", fileHeader.Size))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statement file exceeds the 5MB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded statement", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
		return
	}
	defer file.Close()

	logger = logger.With(slog.String("account_id", accountID), slog.String("filename", fileHeader.Filename))
	logger.Info("Received statement import", slog.Int64("size", fileHeader.Size))

	result, err := h.reconciliationService.ImportStatementCSV(c.Request.Context(), companyID, accountID, file, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Account not found for statement import")
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		} else {
			logger.Error("Failed to import statement", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import statement"})
		}
		return
	}

	logger.Info("Statement imported", slog.Int("imported", result.Imported), slog.Int("skipped", result.Skipped))
	c.JSON(http.StatusOK, result)
}
