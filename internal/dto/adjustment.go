package dto

import (
	"time"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateStockAdjustmentRequest defines a manual stock correction.
// QuantityChange is signed: negative for loss/shrinkage, positive for
// gain/overage. It must be non-zero.
type CreateStockAdjustmentRequest struct {
	ProductID       string          `json:"productID" binding:"required"`
	QuantityChange  decimal.Decimal `json:"quantityChange" binding:"required"`
	Reason          string          `json:"reason" binding:"required"`
	OffsetAccountID string          `json:"offsetAccountID" binding:"required"`
	Date            time.Time       `json:"date" binding:"required"`
}

// StockAdjustmentResponse defines the data returned for a stock adjustment.
type StockAdjustmentResponse struct {
	AdjustmentID    string          `json:"adjustmentID"`
	ProductID       string          `json:"productID"`
	AdjustmentDate  time.Time       `json:"adjustmentDate"`
	QuantityChange  decimal.Decimal `json:"quantityChange"`
	UnitCost        decimal.Decimal `json:"unitCost"`
	AdjustmentValue decimal.Decimal `json:"adjustmentValue"`
	Reason          string          `json:"reason"`
	OffsetAccountID string          `json:"offsetAccountID"`
	EntryID         *string         `json:"entryID,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	CreatedBy       string          `json:"createdBy"`
}

// ToStockAdjustmentResponse converts a domain.StockAdjustment to its DTO.
func ToStockAdjustmentResponse(a *domain.StockAdjustment) StockAdjustmentResponse {
	return StockAdjustmentResponse{
		AdjustmentID:    a.AdjustmentID,
		ProductID:       a.ProductID,
		AdjustmentDate:  a.AdjustmentDate,
		QuantityChange:  a.QuantityChange,
		UnitCost:        a.UnitCost,
		AdjustmentValue: a.AdjustmentValue,
		Reason:          a.Reason,
		OffsetAccountID: a.OffsetAccountID,
		EntryID:         a.EntryID,
		CreatedAt:       a.CreatedAt,
		CreatedBy:       a.CreatedBy,
	}
}

// ToStockAdjustmentResponses converts a slice of adjustments to DTOs.
func ToStockAdjustmentResponses(adjustments []domain.StockAdjustment) []StockAdjustmentResponse {
	responses := make([]StockAdjustmentResponse, len(adjustments))
	for i := range adjustments {
		responses[i] = ToStockAdjustmentResponse(&adjustments[i])
	}
	return responses
}
