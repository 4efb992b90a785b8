package services

import (
	"context"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
	"github.com/dukabook/dukabook_backend/internal/dto"
	"github.com/jackc/pgx/v5"
)

// LedgerSvcFacade defines the ledger engine operations. All posting paths
// funnel through this facade so the balance invariant is enforced in exactly
// one place.
type LedgerSvcFacade interface {
	// CreateJournalEntry validates and posts a balanced journal entry in its
	// own database transaction.
	CreateJournalEntry(ctx context.Context, companyID string, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, error)

	// PostEntryInTx validates and posts an entry using the caller's open
	// transaction, for flows that must share atomicity with other writes
	// (stock adjustments).
	PostEntryInTx(ctx context.Context, tx pgx.Tx, companyID string, req dto.CreateEntryRequest, creatorUserID string) (*domain.JournalEntry, error)

	// GetJournalEntryByID retrieves an entry with its lines.
	GetJournalEntryByID(ctx context.Context, companyID string, entryID string) (*domain.JournalEntry, error)

	// ListJournalEntries retrieves a paginated list of entries.
	ListJournalEntries(ctx context.Context, companyID string, limit int, offset int) ([]domain.JournalEntry, error)

	// ListLinesByAccount retrieves a paginated list of lines for one account.
	ListLinesByAccount(ctx context.Context, companyID string, accountID string, limit int, offset int) ([]domain.EntryLine, error)

	// ReverseJournalEntry creates a new entry that reverses a posted one.
	// Posted entries are immutable; this is the only correction mechanism.
	ReverseJournalEntry(ctx context.Context, companyID string, entryID string, userID string) (*domain.JournalEntry, error)
}
