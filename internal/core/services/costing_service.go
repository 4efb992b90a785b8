package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dukabook/dukabook_backend/internal/apperrors"
	"github.com/dukabook/dukabook_backend/internal/core/domain"
	portsrepo "github.com/dukabook/dukabook_backend/internal/core/ports/repositories"
	portssvc "github.com/dukabook/dukabook_backend/internal/core/ports/services"
	"github.com/dukabook/dukabook_backend/internal/dto"
	"github.com/dukabook/dukabook_backend/internal/middleware"
)

var (
	// ErrServiceProductHasNoStock is returned when a stock operation targets
	// a service product. Services never carry stock.
	ErrServiceProductHasNoStock = errors.New("service products do not carry stock")
	// ErrNoCostBasis is returned when an outbound or adjustment is valued
	// against a product with no recorded cost. A cost must come from a
	// purchase before stock can be valued out.
	ErrNoCostBasis = errors.New("product has no cost basis recorded")
	// ErrInsufficientStock is returned when FIFO layers cannot satisfy the
	// requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNegativeStock is returned when an outbound movement would drive the
	// product's stock below zero.
	ErrNegativeStock = errors.New("operation would drive stock negative")
)

// costingService maintains per-product stock and cost basis under FIFO or
// weighted-average costing.
type costingService struct {
	productRepo portsrepo.ProductRepositoryWithTx
}

// NewCostingService creates a new CostingService.
func NewCostingService(productRepo portsrepo.ProductRepositoryWithTx) portssvc.CostingSvcFacade {
	return &costingService{productRepo: productRepo}
}

var _ portssvc.CostingSvcFacade = (*costingService)(nil)

// RecordInbound registers purchased stock. FIFO products gain a new cost
// layer; WAC products get their rolling average recomputed.
func (s *costingService) RecordInbound(ctx context.Context, companyID string, productID string, req dto.RecordInboundRequest, userID string) (*domain.Product, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	quantity := domain.RoundQuantity(req.Quantity)
	unitCost := domain.RoundQuantity(req.UnitCost)
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: inbound quantity must be positive", apperrors.ErrValidation)
	}
	if unitCost.IsNegative() {
		return nil, fmt.Errorf("%w: inbound unit cost cannot be negative", apperrors.ErrValidation)
	}

	tx, err := s.productRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin inbound transaction: %w", err)
	}
	defer s.productRepo.Rollback(ctx, tx)

	product, err := s.productRepo.FindProductForUpdate(ctx, tx, companyID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock product %s: %w", productID, err)
	}
	if product.IsService {
		return nil, fmt.Errorf("%w: product %s", ErrServiceProductHasNoStock, productID)
	}

	now := time.Now().UTC()
	newStock := product.CurrentStock.Add(quantity)
	newAvgCost := product.CurrentAvgCost

	switch product.CostingMethod {
	case domain.FIFO:
		layer := domain.CostLayer{
			LayerID:           uuid.NewString(),
			ProductID:         productID,
			QuantityIn:        quantity,
			RemainingQuantity: quantity,
			UnitCost:          unitCost,
			PurchaseDate:      req.Date,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		}
		if err := s.productRepo.InsertCostLayerInTx(ctx, tx, layer); err != nil {
			return nil, fmt.Errorf("failed to insert cost layer: %w", err)
		}
	case domain.WAC:
		newAvgCost = domain.NextAverageCost(product.CurrentStock, product.CurrentAvgCost, quantity, unitCost)
	default:
		return nil, fmt.Errorf("unknown costing method %q for product %s", product.CostingMethod, productID)
	}

	if err := s.productRepo.UpdateStockInTx(ctx, tx, productID, newStock, newAvgCost, userID, now); err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}
	if err := s.productRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit inbound: %w", err)
	}

	product.CurrentStock = newStock
	product.CurrentAvgCost = newAvgCost
	logger.Info("Inbound stock recorded",
		slog.String("product_id", productID),
		slog.String("quantity", quantity.String()),
		slog.String("unit_cost", unitCost.String()))
	return product, nil
}

// ValueOutbound values an outbound movement, mutates stock and returns the
// unit cost assigned to it. For FIFO the cost is the weighted average of the
// layers consumed; for WAC it is the current rolling average.
func (s *costingService) ValueOutbound(ctx context.Context, companyID string, productID string, quantity decimal.Decimal, userID string) (decimal.Decimal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	quantity = domain.RoundQuantity(quantity)
	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: outbound quantity must be positive", apperrors.ErrValidation)
	}

	tx, err := s.productRepo.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin outbound transaction: %w", err)
	}
	defer s.productRepo.Rollback(ctx, tx)

	product, err := s.productRepo.FindProductForUpdate(ctx, tx, companyID, productID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to lock product %s: %w", productID, err)
	}

	unitCost, consumptions, err := valueOutboundLocked(ctx, tx, s.productRepo, product, quantity)
	if err != nil {
		return decimal.Zero, err
	}

	now := time.Now().UTC()
	if len(consumptions) > 0 {
		if err := s.productRepo.ApplyLayerConsumptionsInTx(ctx, tx, consumptions, userID, now); err != nil {
			return decimal.Zero, fmt.Errorf("failed to apply layer consumptions: %w", err)
		}
	}
	newStock := product.CurrentStock.Sub(quantity)
	if err := s.productRepo.UpdateStockInTx(ctx, tx, productID, newStock, product.CurrentAvgCost, userID, now); err != nil {
		return decimal.Zero, fmt.Errorf("failed to update stock: %w", err)
	}
	if err := s.productRepo.Commit(ctx, tx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit outbound: %w", err)
	}

	logger.Info("Outbound stock valued",
		slog.String("product_id", productID),
		slog.String("quantity", quantity.String()),
		slog.String("unit_cost", unitCost.String()))
	return unitCost, nil
}

// valueOutboundLocked computes the unit cost for an outbound quantity against
// an already locked product row. Shared between ValueOutbound and the stock
// adjustment transaction; performs no writes.
func valueOutboundLocked(ctx context.Context, tx pgx.Tx, productRepo portsrepo.ProductRepositoryFacade, product *domain.Product, quantity decimal.Decimal) (decimal.Decimal, []domain.LayerConsumption, error) {
	if product.IsService {
		return decimal.Zero, nil, fmt.Errorf("%w: product %s", ErrServiceProductHasNoStock, product.ProductID)
	}
	if product.CurrentStock.Sub(quantity).IsNegative() {
		return decimal.Zero, nil, fmt.Errorf("%w: product %s has %s on hand, requested %s",
			ErrNegativeStock, product.ProductID, product.CurrentStock.String(), quantity.String())
	}

	switch product.CostingMethod {
	case domain.WAC:
		if product.CurrentAvgCost.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, nil, fmt.Errorf("%w: product %s", ErrNoCostBasis, product.ProductID)
		}
		return product.CurrentAvgCost, nil, nil

	case domain.FIFO:
		layers, err := productRepo.FindCostLayersForUpdate(ctx, tx, product.ProductID)
		if err != nil {
			return decimal.Zero, nil, fmt.Errorf("failed to lock cost layers: %w", err)
		}
		available := domain.AvailableQuantity(layers)
		if available.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, nil, fmt.Errorf("%w: product %s", ErrNoCostBasis, product.ProductID)
		}
		consumptions, unitCost, err := domain.DepleteLayers(layers, quantity)
		if err != nil {
			if errors.Is(err, domain.ErrLayersExhausted) {
				return decimal.Zero, nil, fmt.Errorf("%w: product %s has %s across layers, requested %s",
					ErrInsufficientStock, product.ProductID, available.String(), quantity.String())
			}
			return decimal.Zero, nil, err
		}
		return unitCost, consumptions, nil

	default:
		return decimal.Zero, nil, fmt.Errorf("unknown costing method %q for product %s", product.CostingMethod, product.ProductID)
	}
}

// currentUnitCostLocked returns the cost basis for pricing a stock gain
// against an already locked product: the rolling average for WAC, the
// weighted average of remaining layers for FIFO. Gains are priced at what the
// company currently carries, without consuming anything.
func currentUnitCostLocked(ctx context.Context, tx pgx.Tx, productRepo portsrepo.ProductRepositoryFacade, product *domain.Product) (decimal.Decimal, error) {
	switch product.CostingMethod {
	case domain.WAC:
		if product.CurrentAvgCost.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, fmt.Errorf("%w: product %s", ErrNoCostBasis, product.ProductID)
		}
		return product.CurrentAvgCost, nil

	case domain.FIFO:
		layers, err := productRepo.FindCostLayersForUpdate(ctx, tx, product.ProductID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to lock cost layers: %w", err)
		}
		available := domain.AvailableQuantity(layers)
		if available.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, fmt.Errorf("%w: product %s", ErrNoCostBasis, product.ProductID)
		}
		return domain.RoundQuantity(domain.LayersValue(layers).Div(available)), nil

	default:
		return decimal.Zero, fmt.Errorf("unknown costing method %q for product %s", product.CostingMethod, product.ProductID)
	}
}

// CurrentValuation returns the product's on-hand stock and total inventory
// value: stock × average for WAC, the sum over remaining layers for FIFO.
func (s *costingService) CurrentValuation(ctx context.Context, companyID string, productID string) (*dto.ValuationResponse, error) {
	product, err := s.productRepo.FindProductByID(ctx, companyID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product %s: %w", productID, err)
	}
	if product.IsService {
		return &dto.ValuationResponse{ProductID: productID, Stock: decimal.Zero, TotalValue: decimal.Zero}, nil
	}

	var totalValue decimal.Decimal
	switch product.CostingMethod {
	case domain.WAC:
		totalValue = product.CurrentStock.Mul(product.CurrentAvgCost)
	case domain.FIFO:
		layers, err := s.productRepo.FindCostLayersByProduct(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("failed to load cost layers: %w", err)
		}
		totalValue = domain.LayersValue(layers)
	default:
		return nil, fmt.Errorf("unknown costing method %q for product %s", product.CostingMethod, productID)
	}

	return &dto.ValuationResponse{
		ProductID:  productID,
		Stock:      product.CurrentStock,
		TotalValue: domain.RoundMoney(totalValue),
	}, nil
}
