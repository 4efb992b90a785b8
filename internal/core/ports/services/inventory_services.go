package services

import (
	"context"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
	"github.com/dukabook/dukabook_backend/internal/dto"
	"github.com/shopspring/decimal"
)

// ProductSvcFacade defines product catalogue operations. Stock and cost
// fields are owned by the costing service, never mutated here.
type ProductSvcFacade interface {
	// CreateProduct registers a new product.
	CreateProduct(ctx context.Context, companyID string, req dto.CreateProductRequest, creatorUserID string) (*domain.Product, error)

	// GetProductByID retrieves a product, scoped to the company.
	GetProductByID(ctx context.Context, companyID string, productID string) (*domain.Product, error)

	// ListProducts retrieves a paginated list of products.
	ListProducts(ctx context.Context, companyID string, limit int, offset int) ([]domain.Product, error)

	// UpdateProduct updates a product's descriptive fields.
	UpdateProduct(ctx context.Context, companyID string, productID string, req dto.UpdateProductRequest, userID string) (*domain.Product, error)

	// DeleteProduct soft-deletes a product.
	DeleteProduct(ctx context.Context, companyID string, productID string, userID string) error
}

// CostingSvcFacade defines the inventory costing operations. Callers are the
// purchasing/sales modules (inbound/outbound goods movement) and the stock
// adjustment transaction.
type CostingSvcFacade interface {
	// RecordInbound registers purchased stock: FIFO appends a cost layer, WAC
	// recomputes the rolling average. Returns the updated product.
	RecordInbound(ctx context.Context, companyID string, productID string, req dto.RecordInboundRequest, userID string) (*domain.Product, error)

	// ValueOutbound values and applies an outbound movement, returning the
	// unit cost assigned to it.
	ValueOutbound(ctx context.Context, companyID string, productID string, quantity decimal.Decimal, userID string) (decimal.Decimal, error)

	// CurrentValuation returns the product's on-hand stock and total
	// inventory value.
	CurrentValuation(ctx context.Context, companyID string, productID string) (*dto.ValuationResponse, error)
}
