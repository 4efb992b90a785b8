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
	// ErrUnbalancedEntry is returned when the debit and credit legs of an
	// entry do not sum to the same amount.
	ErrUnbalancedEntry = errors.New("journal entry debits and credits do not balance")
	// ErrAccountNotFound is returned when a line references an account that
	// does not exist, is inactive, or belongs to another company.
	ErrAccountNotFound = errors.New("account not found")
	// ErrEntryMinLines is returned for entries with fewer than two lines.
	ErrEntryMinLines = errors.New("journal entry must have at least two lines")
	// ErrEntryMinAccounts is returned when an entry touches fewer than two accounts.
	ErrEntryMinAccounts = errors.New("journal entry must affect at least two different accounts")
	// ErrDescriptionMissing is returned when the entry description is empty.
	ErrDescriptionMissing = errors.New("journal entry description is required")
	// ErrEntryNotPosted is returned when an operation requires a posted entry.
	ErrEntryNotPosted = errors.New("journal entry must be posted")
)

// ledgerService is the ledger engine: the single place where balanced journal
// entries are validated and posted.
type ledgerService struct {
	journalRepo portsrepo.JournalRepositoryWithTx
	accountSvc  portssvc.AccountSvcFacade
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(journalRepo portsrepo.JournalRepositoryWithTx, accountSvc portssvc.AccountSvcFacade) portssvc.LedgerSvcFacade {
	return &ledgerService{journalRepo: journalRepo, accountSvc: accountSvc}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// validateEntryBalance checks the double-entry invariant over the built
// lines: every amount strictly positive and debit sum equal to credit sum,
// exactly, on fixed-point decimals. Amounts are rounded at line construction
// so no epsilon is needed here.
func (s *ledgerService) validateEntryBalance(lines []domain.EntryLine) error {
	if len(lines) < 2 {
		return ErrEntryMinLines
	}

	debitsSum := decimal.Zero
	creditsSum := decimal.Zero
	for _, line := range lines {
		if line.Amount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: line amount must be positive for account %s", apperrors.ErrValidation, line.AccountID)
		}
		if line.LineType == domain.Debit {
			debitsSum = debitsSum.Add(line.Amount)
		} else {
			creditsSum = creditsSum.Add(line.Amount)
		}
	}

	if !debitsSum.Equal(creditsSum) {
		return fmt.Errorf("%w: debits sum is %s and credits sum is %s",
			ErrUnbalancedEntry, debitsSum.String(), creditsSum.String())
	}
	return nil
}

// buildEntry converts the request into domain objects and runs every
// validation shared by the standalone and in-transaction posting paths.
func (s *ledgerService) buildEntry(ctx context.Context, companyID string, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, []domain.EntryLine, error) {
	if req.Description == "" {
		return nil, nil, ErrDescriptionMissing
	}
	if len(req.Lines) < 2 {
		return nil, nil, ErrEntryMinLines
	}

	accountSet := make(map[string]bool, len(req.Lines))
	for _, line := range req.Lines {
		accountSet[line.AccountID] = true
	}
	if len(accountSet) < 2 {
		return nil, nil, ErrEntryMinAccounts
	}

	now := time.Now().UTC()
	entryID := uuid.NewString()

	lines := make([]domain.EntryLine, len(req.Lines))
	accountIDs := make([]string, 0, len(accountSet))
	for id := range accountSet {
		accountIDs = append(accountIDs, id)
	}
	for i, lineReq := range req.Lines {
		lines[i] = domain.EntryLine{
			LineID:      uuid.NewString(),
			EntryID:     entryID,
			AccountID:   lineReq.AccountID,
			Amount:      domain.RoundMoney(lineReq.Amount),
			LineType:    lineReq.LineType,
			Description: lineReq.Description,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     creatorUserID,
				LastUpdatedAt: now,
				LastUpdatedBy: creatorUserID,
			},
		}
	}

	if err := s.validateEntryBalance(lines); err != nil {
		return nil, nil, err
	}

	accountsMap, err := s.accountSvc.GetAccountsByIDs(ctx, companyID, accountIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	for _, id := range accountIDs {
		acc, found := accountsMap[id]
		if !found {
			return nil, nil, fmt.Errorf("%w: ID %s", ErrAccountNotFound, id)
		}
		if !acc.IsPostable() {
			return nil, nil, fmt.Errorf("%w: account %s (%s) is inactive", ErrAccountNotFound, id, acc.Code)
		}
	}

	status := domain.Posted
	if req.Draft {
		status = domain.Draft
	}

	debitsSum := decimal.Zero
	for _, line := range lines {
		if line.LineType == domain.Debit {
			debitsSum = debitsSum.Add(line.Amount)
		}
	}

	entry := &domain.JournalEntry{
		EntryID:     entryID,
		CompanyID:   companyID,
		EntryDate:   req.Date,
		Description: req.Description,
		SourceLabel: req.SourceLabel,
		Status:      status,
		Amount:      debitsSum,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}
	if req.SourceRef != nil {
		entry.SourceRef = &domain.SourceRef{Type: req.SourceRef.Type, ID: req.SourceRef.ID}
	}
	return entry, lines, nil
}

// CreateJournalEntry validates and posts a balanced entry in its own
// database transaction. Any validation failure aborts with no partial writes.
func (s *ledgerService) CreateJournalEntry(ctx context.Context, companyID string, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry, lines, err := s.buildEntry(ctx, companyID, req, creatorUserID)
	if err != nil {
		return nil, err
	}

	if err := s.journalRepo.SaveEntry(ctx, *entry, lines); err != nil {
		logger.Error("Failed to save journal entry", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to save journal entry: %w", err)
	}

	logger.Info("Journal entry posted", slog.String("entry_id", entry.EntryID), slog.String("company_id", companyID), slog.String("amount", entry.Amount.String()))
	return entry, nil
}

// PostEntryInTx validates and posts an entry within the caller's open
// transaction. Used by the stock adjustment transaction so the GL posting
// commits or rolls back together with the stock mutation.
func (s *ledgerService) PostEntryInTx(ctx context.Context, tx pgx.Tx, companyID string, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, error) {
	entry, lines, err := s.buildEntry(ctx, companyID, req, creatorUserID)
	if err != nil {
		return nil, err
	}
	if err := s.journalRepo.SaveEntryInTx(ctx, tx, *entry, lines); err != nil {
		return nil, fmt.Errorf("failed to save journal entry in transaction: %w", err)
	}
	return entry, nil
}

// GetJournalEntryByID retrieves an entry with its lines.
func (s *ledgerService) GetJournalEntryByID(ctx context.Context, companyID string, entryID string) (*domain.JournalEntry, error) {
	entry, err := s.journalRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to find journal entry %s: %w", entryID, err)
	}
	if entry.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}

	lines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve lines for entry %s: %w", entryID, err)
	}
	entry.Lines = lines
	return entry, nil
}

// ListJournalEntries retrieves a paginated list of entries.
func (s *ledgerService) ListJournalEntries(ctx context.Context, companyID string, limit int, offset int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.journalRepo.ListEntriesByCompany(ctx, companyID, limit, offset)
}

// ListLinesByAccount retrieves a paginated list of lines for one account.
func (s *ledgerService) ListLinesByAccount(ctx context.Context, companyID string, accountID string, limit int, offset int) ([]domain.EntryLine, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.journalRepo.ListLinesByAccount(ctx, companyID, accountID, limit, offset)
}

// ReverseJournalEntry creates a new entry with flipped line types that undoes
// a posted entry. The original is marked REVERSED and linked both ways.
func (s *ledgerService) ReverseJournalEntry(ctx context.Context, companyID string, entryID string, userID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	original, err := s.journalRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve entry for reversal: %w", err)
	}
	if original.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}
	if original.Status != domain.Posted {
		return nil, fmt.Errorf("%w: entry status is %s", ErrEntryNotPosted, original.Status)
	}
	if original.IsReversal() {
		return nil, fmt.Errorf("%w: cannot reverse a reversal entry", apperrors.ErrConflict)
	}

	originalLines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve lines for reversal: %w", err)
	}

	now := time.Now().UTC()
	reversingID := uuid.NewString()

	reversing := domain.JournalEntry{
		EntryID:         reversingID,
		CompanyID:       companyID,
		EntryDate:       original.EntryDate,
		Description:     fmt.Sprintf("Reversal of: %s", original.Description),
		SourceLabel:     original.SourceLabel,
		Status:          domain.Posted,
		Amount:          original.Amount,
		OriginalEntryID: &original.EntryID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}

	reversingLines := make([]domain.EntryLine, len(originalLines))
	for i, origLine := range originalLines {
		newType := domain.Credit
		if origLine.LineType == domain.Credit {
			newType = domain.Debit
		}
		reversingLines[i] = domain.EntryLine{
			LineID:      uuid.NewString(),
			EntryID:     reversingID,
			AccountID:   origLine.AccountID,
			Amount:      origLine.Amount,
			LineType:    newType,
			Description: origLine.Description,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     userID,
				LastUpdatedAt: now,
				LastUpdatedBy: userID,
			},
		}
	}

	tx, err := s.journalRepo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin reversal transaction: %w", err)
	}
	defer s.journalRepo.Rollback(ctx, tx)

	if err := s.journalRepo.SaveEntryInTx(ctx, tx, reversing, reversingLines); err != nil {
		logger.Error("Failed to save reversing entry", slog.String("error", err.Error()), slog.String("entry_id", entryID))
		return nil, fmt.Errorf("failed to save reversing entry: %w", err)
	}
	if err := s.journalRepo.UpdateEntryStatusAndLinksInTx(ctx, tx, original.EntryID, domain.Reversed, &reversingID, userID, now); err != nil {
		return nil, fmt.Errorf("failed to mark original entry reversed: %w", err)
	}
	if err := s.journalRepo.Commit(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit reversal: %w", err)
	}

	logger.Info("Journal entry reversed", slog.String("original_entry_id", entryID), slog.String("reversing_entry_id", reversingID))
	return &reversing, nil
}
