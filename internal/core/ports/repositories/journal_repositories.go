package repositories

import (
	"context"
	"time"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// JournalReader defines read operations for journal entry data.
type JournalReader interface {
	// FindEntryByID retrieves a specific journal entry by its unique identifier.
	FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// ListEntriesByCompany retrieves a paginated list of entries for a company.
	ListEntriesByCompany(ctx context.Context, companyID string, limit int, offset int) ([]domain.JournalEntry, error)
}

// JournalWriter defines write operations for journal entry data.
type JournalWriter interface {
	// SaveEntry persists an entry header and its lines atomically in its own
	// database transaction.
	SaveEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.EntryLine) error

	// SaveEntryInTx persists an entry header and its lines using the caller's
	// open transaction. Used when posting must share atomicity with other
	// writes, e.g. the stock adjustment transaction.
	SaveEntryInTx(ctx context.Context, tx pgx.Tx, entry domain.JournalEntry, lines []domain.EntryLine) error

	// UpdateEntryStatusAndLinksInTx updates the status and reversal linkage of
	// an entry within the caller's transaction.
	UpdateEntryStatusAndLinksInTx(ctx context.Context, tx pgx.Tx, entryID string, status domain.EntryStatus, reversingEntryID *string, updatedByUserID string, updatedAt time.Time) error
}

// EntryLineReader defines read operations for journal entry lines.
type EntryLineReader interface {
	// FindLinesByEntryID retrieves all lines of a single journal entry.
	FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.EntryLine, error)

	// ListLinesByAccount retrieves a paginated list of lines for one account.
	ListLinesByAccount(ctx context.Context, companyID string, accountID string, limit int, offset int) ([]domain.EntryLine, error)

	// FindUnmatchedLinesByAccount retrieves posted, unreconciled lines for one
	// account, oldest first. Reconciliation candidates.
	FindUnmatchedLinesByAccount(ctx context.Context, companyID string, accountID string) ([]domain.EntryLine, error)
}

// EntryLineMatcher defines the reconciliation writes on entry lines.
type EntryLineMatcher interface {
	// FindLinesByIDsForUpdate selects lines by id and locks them within the
	// caller's transaction. Scoped to the company via the owning entry.
	FindLinesByIDsForUpdate(ctx context.Context, tx pgx.Tx, companyID string, lineIDs []string) ([]domain.EntryLine, error)

	// MarkLinesMatchedInTx sets is_matched on the given lines, guarded by a
	// compare-and-set on is_matched = FALSE. Returns the number of rows
	// actually updated so the caller can detect concurrent matching.
	MarkLinesMatchedInTx(ctx context.Context, tx pgx.Tx, lineIDs []string, userID string, now time.Time) (int64, error)
}

// JournalRepositoryFacade combines all journal-related repository interfaces.
type JournalRepositoryFacade interface {
	JournalReader
	JournalWriter
	EntryLineReader
	EntryLineMatcher
}

// JournalRepositoryWithTx extends JournalRepositoryFacade with transaction capabilities.
type JournalRepositoryWithTx interface {
	JournalRepositoryFacade
	TransactionManager
}
