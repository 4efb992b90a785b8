package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
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

var (
	// ErrAmountMismatch is returned when the selected bank lines and ledger
	// lines do not net to the same total within the configured tolerance.
	ErrAmountMismatch = errors.New("bank and ledger totals do not match within tolerance")
	// ErrLineAlreadyMatched is returned when a selected line was already
	// reconciled by a previous match.
	ErrLineAlreadyMatched = errors.New("line is already matched")
	// ErrConcurrentModification is returned when another session matched one
	// of the selected lines between selection and commit.
	ErrConcurrentModification = errors.New("lines were modified concurrently")
)

// statementDateLayout is the date format of manually uploaded CSV statements.
const statementDateLayout = "2006-01-02"

// ReconciliationConfig carries the matcher tunables.
type ReconciliationConfig struct {
	// Tolerance is the maximum absolute difference allowed between the bank
	// total and the ledger total of a match. Covers bank fees and rounding.
	Tolerance decimal.Decimal
}

// reconciliationService ingests bank statement lines and matches them against
// posted ledger lines.
type reconciliationService struct {
	bankRepo    portsrepo.BankLineRepositoryWithTx
	journalRepo portsrepo.JournalRepositoryFacade
	accountSvc  portssvc.AccountSvcFacade
	cfg         ReconciliationConfig
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(
	bankRepo portsrepo.BankLineRepositoryWithTx,
	journalRepo portsrepo.JournalRepositoryFacade,
	accountSvc portssvc.AccountSvcFacade,
	cfg ReconciliationConfig,
) portssvc.ReconciliationSvcFacade {
	return &reconciliationService{
		bankRepo:    bankRepo,
		journalRepo: journalRepo,
		accountSvc:  accountSvc,
		cfg:         cfg,
	}
}

var _ portssvc.ReconciliationSvcFacade = (*reconciliationService)(nil)

// ProposeMatches lists both sides' unmatched candidates for one bank account.
func (s *reconciliationService) ProposeMatches(ctx context.Context, companyID string, accountID string) (*dto.ProposeMatchesResponse, error) {
	account, err := s.accountSvc.GetAccountByID(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}

	bankLines, err := s.bankRepo.FindUnmatchedByAccount(ctx, companyID, account.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unmatched bank lines: %w", err)
	}
	ledgerLines, err := s.journalRepo.FindUnmatchedLinesByAccount(ctx, companyID, account.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unmatched ledger lines: %w", err)
	}

	return &dto.ProposeMatchesResponse{
		BankLines:   dto.ToBankLineResponses(bankLines),
		LedgerLines: dto.ToEntryLineResponses(ledgerLines),
	}, nil
}

// Reconcile nets the selected bank lines against the selected ledger lines.
// Both sides are locked for the duration; the match commits only if every
// selected line is still unmatched and the totals agree within tolerance.
func (s *reconciliationService) Reconcile(ctx context.Context, companyID string, req dto.ReconcileRequest, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	tx, err := s.bankRepo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reconcile transaction: %w", err)
	}
	defer s.bankRepo.Rollback(ctx, tx)

	bankLines, err := s.bankRepo.FindBankLinesByIDsForUpdate(ctx, tx, req.BankLineIDs)
	if err != nil {
		return fmt.Errorf("failed to lock bank lines: %w", err)
	}
	if len(bankLines) != len(req.BankLineIDs) {
		return fmt.Errorf("%w: %d of %d bank lines found", apperrors.ErrNotFound, len(bankLines), len(req.BankLineIDs))
	}

	ledgerLines, err := s.journalRepo.FindLinesByIDsForUpdate(ctx, tx, companyID, req.LedgerLineIDs)
	if err != nil {
		return fmt.Errorf("failed to lock ledger lines: %w", err)
	}
	if len(ledgerLines) != len(req.LedgerLineIDs) {
		return fmt.Errorf("%w: %d of %d ledger lines found", apperrors.ErrNotFound, len(ledgerLines), len(req.LedgerLineIDs))
	}

	bankTotal := decimal.Zero
	for i := range bankLines {
		if bankLines[i].CompanyID != companyID {
			return fmt.Errorf("%w: bank line %s", apperrors.ErrNotFound, bankLines[i].BankLineID)
		}
		if bankLines[i].IsMatched {
			return fmt.Errorf("%w: bank line %s", ErrLineAlreadyMatched, bankLines[i].BankLineID)
		}
		bankTotal = bankTotal.Add(bankLines[i].Signed())
	}

	ledgerTotal := decimal.Zero
	for i := range ledgerLines {
		if ledgerLines[i].IsMatched {
			return fmt.Errorf("%w: ledger line %s", ErrLineAlreadyMatched, ledgerLines[i].LineID)
		}
		ledgerTotal = ledgerTotal.Add(ledgerLines[i].Signed())
	}

	difference := bankTotal.Sub(ledgerTotal).Abs()
	if difference.GreaterThan(s.cfg.Tolerance) {
		return fmt.Errorf("%w: bank total %s, ledger total %s, difference %s exceeds tolerance %s",
			ErrAmountMismatch, bankTotal.String(), ledgerTotal.String(), difference.String(), s.cfg.Tolerance.String())
	}

	now := time.Now().UTC()
	bankUpdated, err := s.bankRepo.MarkBankLinesMatchedInTx(ctx, tx, req.BankLineIDs, userID, now)
	if err != nil {
		return fmt.Errorf("failed to mark bank lines matched: %w", err)
	}
	if bankUpdated != int64(len(req.BankLineIDs)) {
		return fmt.Errorf("%w: expected %d bank lines, matched %d", ErrConcurrentModification, len(req.BankLineIDs), bankUpdated)
	}

	ledgerUpdated, err := s.journalRepo.MarkLinesMatchedInTx(ctx, tx, req.LedgerLineIDs, userID, now)
	if err != nil {
		return fmt.Errorf("failed to mark ledger lines matched: %w", err)
	}
	if ledgerUpdated != int64(len(req.LedgerLineIDs)) {
		return fmt.Errorf("%w: expected %d ledger lines, matched %d", ErrConcurrentModification, len(req.LedgerLineIDs), ledgerUpdated)
	}

	if err := s.bankRepo.Commit(ctx, tx); err != nil {
		return fmt.Errorf("failed to commit reconcile: %w", err)
	}

	logger.Info("Lines reconciled",
		slog.Int("bank_lines", len(req.BankLineIDs)),
		slog.Int("ledger_lines", len(req.LedgerLineIDs)),
		slog.String("bank_total", bankTotal.String()),
		slog.String("difference", difference.String()))
	return nil
}

// IngestWebhookLine appends a statement line from a payment-provider
// callback. Idempotent on the provider's transaction reference: retries and
// duplicate deliveries return false without writing. An unknown account code
// is logged and skipped so the provider does not keep retrying a payload we
// can never place.
func (s *reconciliationService) IngestWebhookLine(ctx context.Context, companyID string, req dto.WebhookBankLineRequest) (bool, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Debit.IsNegative() || req.Credit.IsNegative() {
		return false, fmt.Errorf("%w: debit and credit must be non-negative", apperrors.ErrValidation)
	}
	if req.Debit.IsZero() == req.Credit.IsZero() {
		return false, fmt.Errorf("%w: exactly one of debit or credit must be set", apperrors.ErrValidation)
	}

	account, err := s.accountSvc.GetAccountByCode(ctx, companyID, req.AccountCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Webhook references unknown account code, skipping line",
				slog.String("account_code", req.AccountCode),
				slog.String("transaction_ref", req.TransactionRef))
			return false, nil
		}
		return false, fmt.Errorf("failed to resolve webhook account: %w", err)
	}

	now := time.Now().UTC()
	line := domain.BankStatementLine{
		BankLineID:  uuid.NewString(),
		CompanyID:   companyID,
		AccountID:   account.AccountID,
		LineDate:    req.Date,
		Description: req.Description,
		Debit:       domain.RoundMoney(req.Debit),
		Credit:      domain.RoundMoney(req.Credit),
		ProviderRef: req.TransactionRef,
		Source:      domain.BankLineWebhook,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     "webhook",
			LastUpdatedAt: now,
			LastUpdatedBy: "webhook",
		},
	}

	inserted, err := s.bankRepo.UpsertWebhookLine(ctx, line)
	if err != nil {
		return false, fmt.Errorf("failed to upsert webhook line: %w", err)
	}
	if !inserted {
		logger.Info("Webhook line already ingested",
			slog.String("transaction_ref", req.TransactionRef))
		return false, nil
	}

	logger.Info("Webhook line ingested",
		slog.String("bank_line_id", line.BankLineID),
		slog.String("transaction_ref", req.TransactionRef))
	return true, nil
}

// ImportStatementCSV parses a manually uploaded bank statement and appends
// its rows as unmatched lines. Expected columns: date, description, debit,
// credit and an optional running balance. Malformed rows are logged and
// skipped; the import never fails on a single bad row.
func (s *reconciliationService) ImportStatementCSV(ctx context.Context, companyID string, accountID string, r io.Reader, userID string) (*dto.ImportStatementResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.accountSvc.GetAccountByID(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	now := time.Now().UTC()
	result := &dto.ImportStatementResult{}
	var lines []domain.BankStatementLine
	rowNum := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowNum++
			result.Skipped++
			logger.Warn("Skipping unreadable statement row", slog.Int("row", rowNum), slog.String("error", err.Error()))
			continue
		}
		rowNum++
		if rowNum == 1 && isHeaderRow(record) {
			continue
		}

		line, err := parseStatementRow(record, companyID, account.AccountID, userID, now)
		if err != nil {
			result.Skipped++
			logger.Warn("Skipping malformed statement row", slog.Int("row", rowNum), slog.String("error", err.Error()))
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) > 0 {
		if err := s.bankRepo.InsertLines(ctx, lines); err != nil {
			return nil, fmt.Errorf("failed to insert statement lines: %w", err)
		}
	}
	result.Imported = len(lines)

	logger.Info("Statement imported",
		slog.String("account_id", accountID),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

// isHeaderRow detects a column-name header on the first CSV row.
func isHeaderRow(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "date")
}

// parseStatementRow converts one CSV record into a statement line.
func parseStatementRow(record []string, companyID, accountID, userID string, now time.Time) (domain.BankStatementLine, error) {
	if len(record) < 4 {
		return domain.BankStatementLine{}, fmt.Errorf("expected at least 4 columns, got %d", len(record))
	}

	date, err := time.Parse(statementDateLayout, strings.TrimSpace(record[0]))
	if err != nil {
		return domain.BankStatementLine{}, fmt.Errorf("invalid date %q: %w", record[0], err)
	}
	debit, err := parseStatementAmount(record[2])
	if err != nil {
		return domain.BankStatementLine{}, fmt.Errorf("invalid debit %q: %w", record[2], err)
	}
	credit, err := parseStatementAmount(record[3])
	if err != nil {
		return domain.BankStatementLine{}, fmt.Errorf("invalid credit %q: %w", record[3], err)
	}
	if debit.IsNegative() || credit.IsNegative() {
		return domain.BankStatementLine{}, errors.New("debit and credit must be non-negative")
	}
	if debit.IsZero() && credit.IsZero() {
		return domain.BankStatementLine{}, errors.New("row has neither debit nor credit")
	}

	var balance *decimal.Decimal
	if len(record) > 4 && strings.TrimSpace(record[4]) != "" {
		b, err := decimal.NewFromString(strings.TrimSpace(record[4]))
		if err != nil {
			return domain.BankStatementLine{}, fmt.Errorf("invalid balance %q: %w", record[4], err)
		}
		balance = &b
	}

	return domain.BankStatementLine{
		BankLineID:  uuid.NewString(),
		CompanyID:   companyID,
		AccountID:   accountID,
		LineDate:    date,
		Description: strings.TrimSpace(record[1]),
		Debit:       domain.RoundMoney(debit),
		Credit:      domain.RoundMoney(credit),
		Balance:     balance,
		Source:      domain.BankLineManual,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}, nil
}

// parseStatementAmount reads a money cell; empty means zero.
func parseStatementAmount(cell string) (decimal.Decimal, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(cell)
}
