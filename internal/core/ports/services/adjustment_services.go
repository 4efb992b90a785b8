package services

import (
	"context"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
	"github.com/dukabook/dukabook_backend/internal/dto"
)

// AdjustmentSvcFacade defines the stock adjustment transaction and its
// read-side. ApplyStockAdjustment is the orchestration spine of the core:
// product lock, costing, persistence and GL posting in one transaction.
type AdjustmentSvcFacade interface {
	// ApplyStockAdjustment atomically records a manual stock correction,
	// mutates the product's stock/cost state and posts the financial effect
	// to the general ledger.
	ApplyStockAdjustment(ctx context.Context, companyID string, req dto.CreateStockAdjustmentRequest, actingUserID string) (*domain.StockAdjustment, error)

	// GetStockAdjustmentByID retrieves an adjustment, scoped to the company.
	GetStockAdjustmentByID(ctx context.Context, companyID string, adjustmentID string) (*domain.StockAdjustment, error)

	// ListStockAdjustments retrieves a paginated list of adjustments.
	ListStockAdjustments(ctx context.Context, companyID string, limit int, offset int) ([]domain.StockAdjustment, error)

	// DeleteStockAdjustment soft-deletes an adjustment record. The posted
	// journal entry is untouched; financial corrections go through reversal.
	DeleteStockAdjustment(ctx context.Context, companyID string, adjustmentID string, userID string) error
}
