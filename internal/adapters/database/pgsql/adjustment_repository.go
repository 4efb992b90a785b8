package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukabook/dukabook_backend/internal/apperrors"
	"github.com/dukabook/dukabook_backend/internal/core/domain"
	portsrepo "github.com/dukabook/dukabook_backend/internal/core/ports/repositories"
)

const adjustmentColumns = `adjustment_id, company_id, product_id, adjustment_date, quantity_change, unit_cost, adjustment_value, reason, offset_account_id, entry_id, deleted_at, created_at, created_by, last_updated_at, last_updated_by`

type PgxAdjustmentRepository struct {
	pool *pgxpool.Pool
}

func newPgxAdjustmentRepository(pool *pgxpool.Pool) portsrepo.AdjustmentRepositoryFacade {
	return &PgxAdjustmentRepository{pool: pool}
}

var _ portsrepo.AdjustmentRepositoryFacade = (*PgxAdjustmentRepository)(nil)

func scanAdjustment(row pgx.Row) (*domain.StockAdjustment, error) {
	var a domain.StockAdjustment
	err := row.Scan(
		&a.AdjustmentID,
		&a.CompanyID,
		&a.ProductID,
		&a.AdjustmentDate,
		&a.QuantityChange,
		&a.UnitCost,
		&a.AdjustmentValue,
		&a.Reason,
		&a.OffsetAccountID,
		&a.EntryID,
		&a.DeletedAt,
		&a.CreatedAt,
		&a.CreatedBy,
		&a.LastUpdatedAt,
		&a.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAdjustmentInTx persists a new adjustment within the caller's transaction.
func (r *PgxAdjustmentRepository) SaveAdjustmentInTx(ctx context.Context, tx pgx.Tx, adjustment domain.StockAdjustment) error {
	query := `
		INSERT INTO stock_adjustments (` + adjustmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := tx.Exec(ctx, query,
		adjustment.AdjustmentID,
		adjustment.CompanyID,
		adjustment.ProductID,
		adjustment.AdjustmentDate,
		adjustment.QuantityChange,
		adjustment.UnitCost,
		adjustment.AdjustmentValue,
		adjustment.Reason,
		adjustment.OffsetAccountID,
		adjustment.EntryID,
		adjustment.DeletedAt,
		adjustment.CreatedAt,
		adjustment.CreatedBy,
		adjustment.LastUpdatedAt,
		adjustment.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save adjustment %s: %w", adjustment.AdjustmentID, err)
	}
	return nil
}

// SetEntryIDInTx links the posted journal entry back onto the adjustment.
func (r *PgxAdjustmentRepository) SetEntryIDInTx(ctx context.Context, tx pgx.Tx, adjustmentID string, entryID string) error {
	query := `UPDATE stock_adjustments SET entry_id = $2 WHERE adjustment_id = $1;`

	cmdTag, err := tx.Exec(ctx, query, adjustmentID, entryID)
	if err != nil {
		return fmt.Errorf("failed to link entry for adjustment %s: %w", adjustmentID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindAdjustmentByID retrieves an adjustment by id, scoped to a company.
func (r *PgxAdjustmentRepository) FindAdjustmentByID(ctx context.Context, companyID string, adjustmentID string) (*domain.StockAdjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM stock_adjustments WHERE company_id = $1 AND adjustment_id = $2 AND deleted_at IS NULL;`

	a, err := scanAdjustment(r.pool.QueryRow(ctx, query, companyID, adjustmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find adjustment %s: %w", adjustmentID, err)
	}
	return a, nil
}

// ListAdjustments retrieves a paginated list of adjustments, newest first.
func (r *PgxAdjustmentRepository) ListAdjustments(ctx context.Context, companyID string, limit int, offset int) ([]domain.StockAdjustment, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + adjustmentColumns + `
		FROM stock_adjustments
		WHERE company_id = $1 AND deleted_at IS NULL
		ORDER BY adjustment_date DESC, created_at DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.pool.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments for company %s: %w", companyID, err)
	}
	defer rows.Close()

	adjustments := []domain.StockAdjustment{}
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan adjustment row for company %s: %w", companyID, err)
		}
		adjustments = append(adjustments, *a)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating adjustment rows for company %s: %w", companyID, rows.Err())
	}
	return adjustments, nil
}

// SoftDeleteAdjustment stamps deleted_at on an adjustment.
func (r *PgxAdjustmentRepository) SoftDeleteAdjustment(ctx context.Context, companyID string, adjustmentID string, userID string, now time.Time) error {
	query := `
		UPDATE stock_adjustments
		SET deleted_at = $3, last_updated_at = $3, last_updated_by = $4
		WHERE company_id = $1 AND adjustment_id = $2 AND deleted_at IS NULL;
	`
	cmdTag, err := r.pool.Exec(ctx, query, companyID, adjustmentID, now, userID)
	if err != nil {
		return fmt.Errorf("failed to soft delete adjustment %s: %w", adjustmentID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
