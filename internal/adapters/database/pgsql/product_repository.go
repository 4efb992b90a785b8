package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dukabook/dukabook_backend/internal/apperrors"
	"github.com/dukabook/dukabook_backend/internal/core/domain"
	portsrepo "github.com/dukabook/dukabook_backend/internal/core/ports/repositories"
)

const productColumns = `product_id, company_id, sku, name, unit_price, costing_method, is_service, current_stock, current_avg_cost, deleted_at, created_at, created_by, last_updated_at, last_updated_by`

const layerColumns = `layer_id, product_id, quantity_in, remaining_quantity, unit_cost, purchase_date, created_at, created_by, last_updated_at, last_updated_by`

type PgxProductRepository struct {
	BaseRepository
}

func newPgxProductRepository(pool *pgxpool.Pool) portsrepo.ProductRepositoryWithTx {
	return &PgxProductRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.ProductRepositoryWithTx = (*PgxProductRepository)(nil)

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ProductID,
		&p.CompanyID,
		&p.SKU,
		&p.Name,
		&p.UnitPrice,
		&p.CostingMethod,
		&p.IsService,
		&p.CurrentStock,
		&p.CurrentAvgCost,
		&p.DeletedAt,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanCostLayer(row pgx.Row) (*domain.CostLayer, error) {
	var l domain.CostLayer
	err := row.Scan(
		&l.LayerID,
		&l.ProductID,
		&l.QuantityIn,
		&l.RemainingQuantity,
		&l.UnitCost,
		&l.PurchaseDate,
		&l.CreatedAt,
		&l.CreatedBy,
		&l.LastUpdatedAt,
		&l.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SaveProduct inserts a new product.
func (r *PgxProductRepository) SaveProduct(ctx context.Context, product domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := r.Pool.Exec(ctx, query,
		product.ProductID,
		product.CompanyID,
		product.SKU,
		product.Name,
		product.UnitPrice,
		product.CostingMethod,
		product.IsService,
		product.CurrentStock,
		product.CurrentAvgCost,
		product.DeletedAt,
		product.CreatedAt,
		product.CreatedBy,
		product.LastUpdatedAt,
		product.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: SKU %s already exists in company", apperrors.ErrDuplicate, product.SKU)
		}
		return fmt.Errorf("failed to save product %s: %w", product.ProductID, err)
	}
	return nil
}

// FindProductByID retrieves a product by id, scoped to a company. Deleted
// products are not returned.
func (r *PgxProductRepository) FindProductByID(ctx context.Context, companyID string, productID string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE company_id = $1 AND product_id = $2 AND deleted_at IS NULL;`

	p, err := scanProduct(r.Pool.QueryRow(ctx, query, companyID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product %s: %w", productID, err)
	}
	return p, nil
}

// FindProductBySKU retrieves a product by SKU within a company.
func (r *PgxProductRepository) FindProductBySKU(ctx context.Context, companyID string, sku string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE company_id = $1 AND sku = $2 AND deleted_at IS NULL;`

	p, err := scanProduct(r.Pool.QueryRow(ctx, query, companyID, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product by SKU %s: %w", sku, err)
	}
	return p, nil
}

// ListProducts retrieves a paginated list of products for a company.
func (r *PgxProductRepository) ListProducts(ctx context.Context, companyID string, limit int, offset int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE company_id = $1 AND deleted_at IS NULL
		ORDER BY sku
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query products for company %s: %w", companyID, err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row for company %s: %w", companyID, err)
		}
		products = append(products, *p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating product rows for company %s: %w", companyID, rows.Err())
	}
	return products, nil
}

// FindCostLayersByProduct retrieves a FIFO product's cost layers ordered by
// purchase date ascending.
func (r *PgxProductRepository) FindCostLayersByProduct(ctx context.Context, productID string) ([]domain.CostLayer, error) {
	query := `
		SELECT ` + layerColumns + `
		FROM product_cost_layers
		WHERE product_id = $1
		ORDER BY purchase_date, created_at;
	`
	rows, err := r.Pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost layers for product %s: %w", productID, err)
	}
	defer rows.Close()

	return collectLayers(rows)
}

// UpdateProduct updates a product's descriptive fields.
func (r *PgxProductRepository) UpdateProduct(ctx context.Context, product domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, unit_price = $3, last_updated_at = $4, last_updated_by = $5
		WHERE product_id = $1 AND deleted_at IS NULL;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		product.ProductID,
		product.Name,
		product.UnitPrice,
		product.LastUpdatedAt,
		product.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to execute update product %s: %w", product.ProductID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SoftDeleteProduct stamps deleted_at on a product.
func (r *PgxProductRepository) SoftDeleteProduct(ctx context.Context, companyID string, productID string, userID string, now time.Time) error {
	query := `
		UPDATE products
		SET deleted_at = $3, last_updated_at = $3, last_updated_by = $4
		WHERE company_id = $1 AND product_id = $2 AND deleted_at IS NULL;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, companyID, productID, now, userID)
	if err != nil {
		return fmt.Errorf("failed to soft delete product %s: %w", productID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindProductForUpdate loads a product row with a row-level exclusive lock
// held for the duration of tx.
func (r *PgxProductRepository) FindProductForUpdate(ctx context.Context, tx pgx.Tx, companyID string, productID string) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE company_id = $1 AND product_id = $2 AND deleted_at IS NULL
		FOR UPDATE;
	`
	p, err := scanProduct(tx.QueryRow(ctx, query, companyID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock product %s: %w", productID, err)
	}
	return p, nil
}

// FindCostLayersForUpdate loads and locks a product's cost layers within tx,
// ordered by purchase date ascending.
func (r *PgxProductRepository) FindCostLayersForUpdate(ctx context.Context, tx pgx.Tx, productID string) ([]domain.CostLayer, error) {
	query := `
		SELECT ` + layerColumns + `
		FROM product_cost_layers
		WHERE product_id = $1
		ORDER BY purchase_date, created_at
		FOR UPDATE;
	`
	rows, err := tx.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock cost layers for product %s: %w", productID, err)
	}
	defer rows.Close()

	return collectLayers(rows)
}

// InsertCostLayerInTx appends a new cost layer within tx.
func (r *PgxProductRepository) InsertCostLayerInTx(ctx context.Context, tx pgx.Tx, layer domain.CostLayer) error {
	query := `
		INSERT INTO product_cost_layers (` + layerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := tx.Exec(ctx, query,
		layer.LayerID,
		layer.ProductID,
		layer.QuantityIn,
		layer.RemainingQuantity,
		layer.UnitCost,
		layer.PurchaseDate,
		layer.CreatedAt,
		layer.CreatedBy,
		layer.LastUpdatedAt,
		layer.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cost layer %s: %w", layer.LayerID, err)
	}
	return nil
}

// ApplyLayerConsumptionsInTx reduces remaining_quantity on the consumed
// layers within tx. The guard on remaining_quantity catches any drift between
// the locked read and this write.
func (r *PgxProductRepository) ApplyLayerConsumptionsInTx(ctx context.Context, tx pgx.Tx, consumptions []domain.LayerConsumption, userID string, now time.Time) error {
	if len(consumptions) == 0 {
		return nil
	}

	query := `
		UPDATE product_cost_layers
		SET remaining_quantity = remaining_quantity - $2, last_updated_at = $3, last_updated_by = $4
		WHERE layer_id = $1 AND remaining_quantity >= $2;
	`
	batch := &pgx.Batch{}
	for _, c := range consumptions {
		batch.Queue(query, c.LayerID, c.Quantity, now, userID)
	}

	br := tx.SendBatch(ctx, batch)
	var batchErr error
	for i := 0; i < batch.Len(); i++ {
		ct, err := br.Exec()
		if err != nil {
			if batchErr == nil {
				batchErr = fmt.Errorf("failed to consume layer %s: %w", consumptions[i].LayerID, err)
			}
		} else if ct.RowsAffected() == 0 && batchErr == nil {
			batchErr = fmt.Errorf("%w: layer %s no longer holds %s units", apperrors.ErrConflict, consumptions[i].LayerID, consumptions[i].Quantity.String())
		}
	}
	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = fmt.Errorf("failed to close layer consumption batch: %w", err)
	}
	return batchErr
}

// UpdateStockInTx writes the product's denormalized stock and average cost
// within tx.
func (r *PgxProductRepository) UpdateStockInTx(ctx context.Context, tx pgx.Tx, productID string, newStock decimal.Decimal, newAvgCost decimal.Decimal, userID string, now time.Time) error {
	query := `
		UPDATE products
		SET current_stock = $2, current_avg_cost = $3, last_updated_at = $4, last_updated_by = $5
		WHERE product_id = $1 AND deleted_at IS NULL;
	`
	cmdTag, err := tx.Exec(ctx, query, productID, newStock, newAvgCost, now, userID)
	if err != nil {
		return fmt.Errorf("failed to update stock for product %s: %w", productID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func collectLayers(rows pgx.Rows) ([]domain.CostLayer, error) {
	layers := []domain.CostLayer{}
	for rows.Next() {
		l, err := scanCostLayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cost layer row: %w", err)
		}
		layers = append(layers, *l)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating cost layer rows: %w", rows.Err())
	}
	return layers, nil
}
