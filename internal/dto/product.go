package dto

import (
	"time"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateProductRequest defines the data needed to create a product.
type CreateProductRequest struct {
	SKU           string               `json:"sku" binding:"required"`
	Name          string               `json:"name" binding:"required"`
	UnitPrice     decimal.Decimal      `json:"unitPrice"`
	CostingMethod domain.CostingMethod `json:"costingMethod" binding:"required,oneof=FIFO WAC"`
	IsService     bool                 `json:"isService"`
}

// UpdateProductRequest defines the data allowed for updating a product.
// Stock and cost fields are owned by the costing service and cannot be set
// through plain updates.
type UpdateProductRequest struct {
	Name      *string          `json:"name"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

// RecordInboundRequest registers an inbound stock movement (purchase receipt).
type RecordInboundRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost decimal.Decimal `json:"unitCost" binding:"required"`
	Date     time.Time       `json:"date" binding:"required"`
}

// ValueOutboundRequest values and applies an outbound stock movement.
type ValueOutboundRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// ValueOutboundResponse returns the unit cost assigned to the movement.
type ValueOutboundResponse struct {
	UnitCost  decimal.Decimal `json:"unitCost"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

// ValuationResponse returns a product's current inventory valuation.
type ValuationResponse struct {
	ProductID  string          `json:"productID"`
	Stock      decimal.Decimal `json:"stock"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

// ProductResponse defines the data returned for a product.
type ProductResponse struct {
	ProductID      string               `json:"productID"`
	SKU            string               `json:"sku"`
	Name           string               `json:"name"`
	UnitPrice      decimal.Decimal      `json:"unitPrice"`
	CostingMethod  domain.CostingMethod `json:"costingMethod"`
	IsService      bool                 `json:"isService"`
	CurrentStock   decimal.Decimal      `json:"currentStock"`
	CurrentAvgCost decimal.Decimal      `json:"currentAvgCost"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// ToProductResponse converts a domain.Product to ProductResponse DTO.
func ToProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ProductID:      p.ProductID,
		SKU:            p.SKU,
		Name:           p.Name,
		UnitPrice:      p.UnitPrice,
		CostingMethod:  p.CostingMethod,
		IsService:      p.IsService,
		CurrentStock:   p.CurrentStock,
		CurrentAvgCost: p.CurrentAvgCost,
		CreatedAt:      p.CreatedAt,
	}
}

// ToProductResponses converts a slice of domain.Product to DTOs.
func ToProductResponses(products []domain.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	return responses
}
