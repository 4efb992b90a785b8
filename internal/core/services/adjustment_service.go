package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukabook/dukabook_backend/internal/apperrors"
	"github.com/dukabook/dukabook_backend/internal/core/domain"
	portsrepo "github.com/dukabook/dukabook_backend/internal/core/ports/repositories"
	portssvc "github.com/dukabook/dukabook_backend/internal/core/ports/services"
	"github.com/dukabook/dukabook_backend/internal/dto"
	"github.com/dukabook/dukabook_backend/internal/middleware"
)

// ErrMissingInventoryAccount is returned when the company has no account
// under the configured inventory asset code. A missing required account is
// fatal for the whole adjustment, never silently skipped.
var ErrMissingInventoryAccount = errors.New("inventory asset account not found for company")

// AdjustmentConfig carries the tunables of the stock adjustment transaction.
type AdjustmentConfig struct {
	// InventoryAccountCode resolves the Inventory Asset account per company.
	InventoryAccountCode string
	// PostingThreshold is the minimum adjustment value that triggers a GL
	// posting. Below it the adjustment and stock change still persist.
	PostingThreshold decimal.Decimal
}

// adjustmentService orchestrates the stock adjustment transaction: product
// lock, business validation, costing, persistence and GL posting, all within
// one database transaction.
type adjustmentService struct {
	productRepo    portsrepo.ProductRepositoryWithTx
	adjustmentRepo portsrepo.AdjustmentRepositoryFacade
	accountSvc     portssvc.AccountSvcFacade
	ledgerSvc      portssvc.LedgerSvcFacade
	cfg            AdjustmentConfig
}

// NewAdjustmentService creates a new AdjustmentService.
func NewAdjustmentService(
	productRepo portsrepo.ProductRepositoryWithTx,
	adjustmentRepo portsrepo.AdjustmentRepositoryFacade,
	accountSvc portssvc.AccountSvcFacade,
	ledgerSvc portssvc.LedgerSvcFacade,
	cfg AdjustmentConfig,
) portssvc.AdjustmentSvcFacade {
	return &adjustmentService{
		productRepo:    productRepo,
		adjustmentRepo: adjustmentRepo,
		accountSvc:     accountSvc,
		ledgerSvc:      ledgerSvc,
		cfg:            cfg,
	}
}

var _ portssvc.AdjustmentSvcFacade = (*adjustmentService)(nil)

// ApplyStockAdjustment atomically records a manual stock correction. A
// negative quantity change (shrinkage) consumes cost basis; a positive change
// (overage) is priced at the current basis without consuming anything —
// losses are priced against what was paid, gains at what is currently
// carried. Any failure rolls back every write.
func (s *adjustmentService) ApplyStockAdjustment(ctx context.Context, companyID string, req dto.CreateStockAdjustmentRequest, actingUserID string) (*domain.StockAdjustment, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	quantityChange := domain.RoundQuantity(req.QuantityChange)
	if quantityChange.IsZero() {
		return nil, fmt.Errorf("%w: quantity change must be non-zero", apperrors.ErrValidation)
	}
	if req.Reason == "" {
		return nil, fmt.Errorf("%w: adjustment reason is required", apperrors.ErrValidation)
	}

	// Validate the offset account before opening the transaction; it is
	// read-only reference data here.
	offsetAccount, err := s.accountSvc.GetAccountByID(ctx, companyID, req.OffsetAccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: offset account %s", ErrAccountNotFound, req.OffsetAccountID)
		}
		return nil, fmt.Errorf("failed to fetch offset account: %w", err)
	}
	if !offsetAccount.IsPostable() {
		return nil, fmt.Errorf("%w: offset account %s is inactive", ErrAccountNotFound, req.OffsetAccountID)
	}

	// Resolve the Inventory Asset account by its well-known code. Missing is
	// fatal: an adjustment with financial effect cannot post without it.
	inventoryAccount, err := s.accountSvc.GetAccountByCode(ctx, companyID, s.cfg.InventoryAccountCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: code %s", ErrMissingInventoryAccount, s.cfg.InventoryAccountCode)
		}
		return nil, fmt.Errorf("failed to resolve inventory account: %w", err)
	}

	tx, err := s.productRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin adjustment transaction: %w", err)
	}
	defer s.productRepo.Rollback(ctx, tx)

	// 1. Lock the product row for the duration of the transaction. Every
	// stock/cost read below sees state no concurrent writer can move.
	product, err := s.productRepo.FindProductForUpdate(ctx, tx, companyID, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock product %s: %w", req.ProductID, err)
	}
	if product.IsService {
		return nil, fmt.Errorf("%w: product %s", ErrServiceProductHasNoStock, req.ProductID)
	}

	// 2-4. Value the change against the locked cost state.
	isShrinkage := quantityChange.IsNegative()
	absQuantity := quantityChange.Abs()

	var unitCost decimal.Decimal
	var consumptions []domain.LayerConsumption
	if isShrinkage {
		unitCost, consumptions, err = valueOutboundLocked(ctx, tx, s.productRepo, product, absQuantity)
	} else {
		unitCost, err = currentUnitCostLocked(ctx, tx, s.productRepo, product)
	}
	if err != nil {
		return nil, err
	}

	// 5. Value of the correction, at currency precision.
	adjustmentValue := domain.RoundMoney(absQuantity.Mul(unitCost))

	now := time.Now().UTC()
	adjustment := domain.StockAdjustment{
		AdjustmentID:    uuid.NewString(),
		CompanyID:       companyID,
		ProductID:       req.ProductID,
		AdjustmentDate:  req.Date,
		QuantityChange:  quantityChange,
		UnitCost:        unitCost,
		AdjustmentValue: adjustmentValue,
		Reason:          req.Reason,
		OffsetAccountID: req.OffsetAccountID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actingUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: actingUserID,
		},
	}

	// 6. Persist the adjustment record, pre-GL.
	if err := s.adjustmentRepo.SaveAdjustmentInTx(ctx, tx, adjustment); err != nil {
		return nil, fmt.Errorf("failed to save adjustment: %w", err)
	}

	// 7. Mutate stock. Shrinkage reduces the consumed FIFO layers; overage
	// raises the stock counter only — no new layer is created and the WAC
	// average is untouched, so gains never shift the cost basis.
	if len(consumptions) > 0 {
		if err := s.productRepo.ApplyLayerConsumptionsInTx(ctx, tx, consumptions, actingUserID, now); err != nil {
			return nil, fmt.Errorf("failed to apply layer consumptions: %w", err)
		}
	}
	newStock := product.CurrentStock.Add(quantityChange)
	if err := s.productRepo.UpdateStockInTx(ctx, tx, req.ProductID, newStock, product.CurrentAvgCost, actingUserID, now); err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}

	// 8-9. Post the financial effect unless the value is negligible.
	if adjustmentValue.GreaterThanOrEqual(s.cfg.PostingThreshold) {
		entryReq := s.buildEntryRequest(req, adjustment, product, inventoryAccount.AccountID, isShrinkage)
		entry, err := s.ledgerSvc.PostEntryInTx(ctx, tx, companyID, entryReq, actingUserID)
		if err != nil {
			return nil, fmt.Errorf("failed to post adjustment entry: %w", err)
		}
		if err := s.adjustmentRepo.SetEntryIDInTx(ctx, tx, adjustment.AdjustmentID, entry.EntryID); err != nil {
			return nil, fmt.Errorf("failed to link journal entry: %w", err)
		}
		adjustment.EntryID = &entry.EntryID
	} else {
		logger.Info("Adjustment value below posting threshold, skipping GL posting",
			slog.String("adjustment_id", adjustment.AdjustmentID),
			slog.String("value", adjustmentValue.String()))
	}

	// 10. Commit everything or nothing.
	if err := s.productRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit adjustment: %w", err)
	}

	logger.Info("Stock adjustment applied",
		slog.String("adjustment_id", adjustment.AdjustmentID),
		slog.String("product_id", req.ProductID),
		slog.String("quantity_change", quantityChange.String()),
		slog.String("value", adjustmentValue.String()))
	return &adjustment, nil
}

// buildEntryRequest assembles the two-line journal entry for an adjustment.
// Shrinkage: debit the offset (loss/expense) account, credit Inventory Asset.
// Overage: debit Inventory Asset, credit the offset (gain/revenue) account.
func (s *adjustmentService) buildEntryRequest(req dto.CreateStockAdjustmentRequest, adjustment domain.StockAdjustment, product *domain.Product, inventoryAccountID string, isShrinkage bool) dto.CreateEntryRequest {
	debitAccount := inventoryAccountID
	creditAccount := req.OffsetAccountID
	if isShrinkage {
		debitAccount = req.OffsetAccountID
		creditAccount = inventoryAccountID
	}

	lineDescription := fmt.Sprintf("Stock adjustment %s: %s", product.SKU, req.Reason)
	return dto.CreateEntryRequest{
		Date:        req.Date,
		Description: fmt.Sprintf("Stock adjustment for %s (%s)", product.Name, req.Reason),
		SourceLabel: "Stock Adjustment",
		SourceRef:   &dto.SourceRefRequest{Type: domain.SourceStockAdjustment, ID: adjustment.AdjustmentID},
		Lines: []dto.EntryLineRequest{
			{AccountID: debitAccount, Amount: adjustment.AdjustmentValue, LineType: domain.Debit, Description: lineDescription},
			{AccountID: creditAccount, Amount: adjustment.AdjustmentValue, LineType: domain.Credit, Description: lineDescription},
		},
	}
}

// GetStockAdjustmentByID retrieves an adjustment scoped to the company.
func (s *adjustmentService) GetStockAdjustmentByID(ctx context.Context, companyID string, adjustmentID string) (*domain.StockAdjustment, error) {
	return s.adjustmentRepo.FindAdjustmentByID(ctx, companyID, adjustmentID)
}

// ListStockAdjustments retrieves a paginated list of adjustments.
func (s *adjustmentService) ListStockAdjustments(ctx context.Context, companyID string, limit int, offset int) ([]domain.StockAdjustment, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.adjustmentRepo.ListAdjustments(ctx, companyID, limit, offset)
}

// DeleteStockAdjustment soft-deletes an adjustment record. The posted journal
// entry stays untouched; the financial correction is a reversing entry.
func (s *adjustmentService) DeleteStockAdjustment(ctx context.Context, companyID string, adjustmentID string, userID string) error {
	if _, err := s.adjustmentRepo.FindAdjustmentByID(ctx, companyID, adjustmentID); err != nil {
		return err
	}
	return s.adjustmentRepo.SoftDeleteAdjustment(ctx, companyID, adjustmentID, userID, time.Now().UTC())
}
