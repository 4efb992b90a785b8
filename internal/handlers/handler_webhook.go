package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukabook/dukabook_backend/internal/apperrors"
	portssvc "github.com/dukabook/dukabook_backend/internal/core/ports/services"
	"github.com/dukabook/dukabook_backend/internal/dto"
	"github.com/dukabook/dukabook_backend/internal/middleware"
	"github.com/dukabook/dukabook_backend/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// webhookHandler handles payment-provider transaction confirmations.
type webhookHandler struct {
	reconciliationService portssvc.ReconciliationSvcFacade
}

// newWebhookHandler creates a new webhookHandler.
func newWebhookHandler(rs portssvc.ReconciliationSvcFacade) *webhookHandler {
	return &webhookHandler{
		reconciliationService: rs,
	}
}

// registerWebhookRoutes registers the provider callback route with its own
// rate limiter. The provider authenticates out of band and carries the tenant
// in the path.
func registerWebhookRoutes(r *gin.Engine, cfg *config.Config, reconciliationService portssvc.ReconciliationSvcFacade) {
	h := newWebhookHandler(reconciliationService)

	rate, err := limiter.NewRateFromFormatted(cfg.WebhookRateLimit)
	if err != nil {
		rate, _ = limiter.NewRateFromFormatted("60-M")
	}
	store := memory.NewStore()
	ipLimiter := limiter.New(store, rate)

	r.POST("/webhooks/bank/:companyID", middleware.RateLimit(ipLimiter), h.ingestBankLine)
}

// ingestBankLine godoc
// @Summary Ingest a provider transaction confirmation
// @Description Appends a bank statement line from a payment-provider callback. Idempotent on the provider's transaction reference; redeliveries return 200 without inserting.
// @Tags webhooks
// @Accept  json
// @Produce  json
// @Param   companyID path string true "Company ID"
// @Param   confirmation body dto.WebhookBankLineRequest true "Provider transaction payload"
// @Success 201 {object} map[string]bool "Line ingested"
// @Success 200 {object} map[string]bool "Duplicate delivery or unknown account, acknowledged without insert"
// @Failure 400 {object} map[string]string "Invalid payload"
// @Failure 429 {object} map[string]string "Rate limit exceeded"
// @Failure 500 {object} map[string]string "Failed to ingest confirmation"
// @Router /webhooks/bank/{companyID} [post]
func (h *webhookHandler) ingestBankLine(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	companyID := c.Param("companyID")

	var req dto.WebhookBankLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind webhook payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(
		slog.String("company_id", companyID),
		slog.String("transaction_ref", req.TransactionRef),
	)

	inserted, err := h.reconciliationService.IngestWebhookLine(c.Request.Context(), companyID, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Invalid webhook payload", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to ingest webhook line", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest confirmation"})
		}
		return
	}

	if !inserted {
		// Duplicate delivery or unrecognized account code. Acknowledge so the
		// provider stops retrying.
		logger.Info("Webhook line acknowledged without insert")
		c.JSON(http.StatusOK, gin.H{"ingested": false})
		return
	}

	logger.Info("Webhook line ingested")
	c.JSON(http.StatusCreated, gin.H{"ingested": true})
}
