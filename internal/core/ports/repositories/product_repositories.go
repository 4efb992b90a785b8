package repositories

import (
	"context"
	"time"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProductReader defines read operations for product data. All reads exclude
// soft-deleted rows.
type ProductReader interface {
	// FindProductByID retrieves a product by id, scoped to a company.
	FindProductByID(ctx context.Context, companyID string, productID string) (*domain.Product, error)

	// FindProductBySKU retrieves a product by SKU within a company.
	FindProductBySKU(ctx context.Context, companyID string, sku string) (*domain.Product, error)

	// ListProducts retrieves a paginated list of products for a company.
	ListProducts(ctx context.Context, companyID string, limit int, offset int) ([]domain.Product, error)

	// FindCostLayersByProduct retrieves a FIFO product's cost layers ordered
	// by purchase date ascending.
	FindCostLayersByProduct(ctx context.Context, productID string) ([]domain.CostLayer, error)
}

// ProductWriter defines write operations for product data.
type ProductWriter interface {
	// SaveProduct persists a new product.
	SaveProduct(ctx context.Context, product domain.Product) error

	// UpdateProduct updates a product's descriptive fields.
	UpdateProduct(ctx context.Context, product domain.Product) error

	// SoftDeleteProduct stamps deleted_at on a product.
	SoftDeleteProduct(ctx context.Context, companyID string, productID string, userID string, now time.Time) error
}

// ProductStockSupport defines the in-transaction operations the costing and
// adjustment paths rely on. The product row lock is the single most important
// concurrency guard in the system: every stock/cost read in a mutation path
// must go through FindProductForUpdate first.
type ProductStockSupport interface {
	// FindProductForUpdate loads a product row with a row-level exclusive
	// lock held for the duration of tx.
	FindProductForUpdate(ctx context.Context, tx pgx.Tx, companyID string, productID string) (*domain.Product, error)

	// FindCostLayersForUpdate loads and locks a product's cost layers within
	// tx, ordered by purchase date ascending.
	FindCostLayersForUpdate(ctx context.Context, tx pgx.Tx, productID string) ([]domain.CostLayer, error)

	// InsertCostLayerInTx appends a new cost layer within tx.
	InsertCostLayerInTx(ctx context.Context, tx pgx.Tx, layer domain.CostLayer) error

	// ApplyLayerConsumptionsInTx reduces remaining_quantity on the consumed
	// layers within tx.
	ApplyLayerConsumptionsInTx(ctx context.Context, tx pgx.Tx, consumptions []domain.LayerConsumption, userID string, now time.Time) error

	// UpdateStockInTx writes the product's denormalized stock and average
	// cost within tx.
	UpdateStockInTx(ctx context.Context, tx pgx.Tx, productID string, newStock decimal.Decimal, newAvgCost decimal.Decimal, userID string, now time.Time) error
}

// ProductRepositoryFacade combines all product-related repository interfaces.
type ProductRepositoryFacade interface {
	ProductReader
	ProductWriter
	ProductStockSupport
}

// ProductRepositoryWithTx extends ProductRepositoryFacade with transaction capabilities.
type ProductRepositoryWithTx interface {
	ProductRepositoryFacade
	TransactionManager
}
