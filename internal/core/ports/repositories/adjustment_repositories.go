package repositories

import (
	"context"
	"time"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// AdjustmentReader defines read operations for stock adjustment data. All
// reads exclude soft-deleted rows.
type AdjustmentReader interface {
	// FindAdjustmentByID retrieves an adjustment by id, scoped to a company.
	FindAdjustmentByID(ctx context.Context, companyID string, adjustmentID string) (*domain.StockAdjustment, error)

	// ListAdjustments retrieves a paginated list of adjustments for a company.
	ListAdjustments(ctx context.Context, companyID string, limit int, offset int) ([]domain.StockAdjustment, error)
}

// AdjustmentWriter defines write operations for stock adjustment data.
type AdjustmentWriter interface {
	// SaveAdjustmentInTx persists a new adjustment within the caller's
	// transaction. Adjustments are never written outside the adjustment
	// transaction.
	SaveAdjustmentInTx(ctx context.Context, tx pgx.Tx, adjustment domain.StockAdjustment) error

	// SetEntryIDInTx links the posted journal entry back onto the adjustment
	// within the same transaction.
	SetEntryIDInTx(ctx context.Context, tx pgx.Tx, adjustmentID string, entryID string) error

	// SoftDeleteAdjustment stamps deleted_at on an adjustment.
	SoftDeleteAdjustment(ctx context.Context, companyID string, adjustmentID string, userID string, now time.Time) error
}

// AdjustmentRepositoryFacade combines all adjustment-related repository interfaces.
type AdjustmentRepositoryFacade interface {
	AdjustmentReader
	AdjustmentWriter
}
