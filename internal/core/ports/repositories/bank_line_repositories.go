package repositories

import (
	"context"
	"time"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// BankLineReader defines read operations for bank statement lines.
type BankLineReader interface {
	// FindBankLineByID retrieves a statement line by id, scoped to a company.
	FindBankLineByID(ctx context.Context, companyID string, bankLineID string) (*domain.BankStatementLine, error)

	// FindUnmatchedByAccount retrieves unmatched statement lines for one bank
	// account, oldest first. Reconciliation candidates.
	FindUnmatchedByAccount(ctx context.Context, companyID string, accountID string) ([]domain.BankStatementLine, error)
}

// BankLineWriter defines write operations for bank statement lines.
type BankLineWriter interface {
	// UpsertWebhookLine inserts a statement line keyed on its provider
	// reference. Returns false when the reference was already ingested, so
	// webhook retries are absorbed without duplicates.
	UpsertWebhookLine(ctx context.Context, line domain.BankStatementLine) (bool, error)

	// InsertLines appends a batch of statement lines (CSV import).
	InsertLines(ctx context.Context, lines []domain.BankStatementLine) error
}

// BankLineMatcher defines the reconciliation writes on bank lines.
type BankLineMatcher interface {
	// FindBankLinesByIDsForUpdate selects statement lines by id and locks
	// them within the caller's transaction.
	FindBankLinesByIDsForUpdate(ctx context.Context, tx pgx.Tx, bankLineIDs []string) ([]domain.BankStatementLine, error)

	// MarkBankLinesMatchedInTx sets is_matched on the given lines, guarded by
	// a compare-and-set on is_matched = FALSE. Returns the number of rows
	// actually updated so the caller can detect concurrent matching.
	MarkBankLinesMatchedInTx(ctx context.Context, tx pgx.Tx, bankLineIDs []string, userID string, now time.Time) (int64, error)
}

// BankLineRepositoryFacade combines all bank-line repository interfaces.
type BankLineRepositoryFacade interface {
	BankLineReader
	BankLineWriter
	BankLineMatcher
}

// BankLineRepositoryWithTx extends BankLineRepositoryFacade with transaction capabilities.
type BankLineRepositoryWithTx interface {
	BankLineRepositoryFacade
	TransactionManager
}
