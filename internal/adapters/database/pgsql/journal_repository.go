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

const entryColumns = `entry_id, company_id, entry_date, description, source_label, source_type, source_id, status, amount, original_entry_id, reversing_entry_id, created_at, created_by, last_updated_at, last_updated_by`

const lineColumns = `line_id, entry_id, account_id, amount, line_type, description, is_matched, matched_by, matched_at, created_at, created_by, last_updated_at, last_updated_by`

type PgxJournalRepository struct {
	BaseRepository
}

func newPgxJournalRepository(pool *pgxpool.Pool) portsrepo.JournalRepositoryWithTx {
	return &PgxJournalRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.JournalRepositoryWithTx = (*PgxJournalRepository)(nil)

func scanEntry(row pgx.Row) (*domain.JournalEntry, error) {
	var entry domain.JournalEntry
	var sourceType, sourceID *string
	err := row.Scan(
		&entry.EntryID,
		&entry.CompanyID,
		&entry.EntryDate,
		&entry.Description,
		&entry.SourceLabel,
		&sourceType,
		&sourceID,
		&entry.Status,
		&entry.Amount,
		&entry.OriginalEntryID,
		&entry.ReversingEntryID,
		&entry.CreatedAt,
		&entry.CreatedBy,
		&entry.LastUpdatedAt,
		&entry.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if sourceType != nil && sourceID != nil {
		entry.SourceRef = &domain.SourceRef{Type: domain.SourceType(*sourceType), ID: *sourceID}
	}
	return &entry, nil
}

func scanEntryLine(row pgx.Row) (*domain.EntryLine, error) {
	var line domain.EntryLine
	err := row.Scan(
		&line.LineID,
		&line.EntryID,
		&line.AccountID,
		&line.Amount,
		&line.LineType,
		&line.Description,
		&line.IsMatched,
		&line.MatchedBy,
		&line.MatchedAt,
		&line.CreatedAt,
		&line.CreatedBy,
		&line.LastUpdatedAt,
		&line.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// SaveEntry persists an entry header and its lines atomically in its own
// transaction.
func (r *PgxJournalRepository) SaveEntry(ctx context.Context, entry domain.JournalEntry, lines []domain.EntryLine) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := r.SaveEntryInTx(ctx, tx, entry, lines); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// SaveEntryInTx persists an entry header and its lines using the caller's
// open transaction.
func (r *PgxJournalRepository) SaveEntryInTx(ctx context.Context, tx pgx.Tx, entry domain.JournalEntry, lines []domain.EntryLine) error {
	entryQuery := `
		INSERT INTO journal_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	var sourceType, sourceID *string
	if entry.SourceRef != nil {
		st := string(entry.SourceRef.Type)
		sourceType = &st
		sourceID = &entry.SourceRef.ID
	}

	_, err := tx.Exec(ctx, entryQuery,
		entry.EntryID,
		entry.CompanyID,
		entry.EntryDate,
		entry.Description,
		entry.SourceLabel,
		sourceType,
		sourceID,
		entry.Status,
		entry.Amount,
		entry.OriginalEntryID,
		entry.ReversingEntryID,
		entry.CreatedAt,
		entry.CreatedBy,
		entry.LastUpdatedAt,
		entry.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert journal entry %s: %w", entry.EntryID, err)
	}

	lineQuery := `
		INSERT INTO journal_entry_lines (` + lineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(lineQuery,
			line.LineID,
			line.EntryID,
			line.AccountID,
			line.Amount,
			line.LineType,
			line.Description,
			line.IsMatched,
			line.MatchedBy,
			line.MatchedAt,
			line.CreatedAt,
			line.CreatedBy,
			line.LastUpdatedAt,
			line.LastUpdatedBy,
		)
	}

	br := tx.SendBatch(ctx, batch)
	var batchErr error
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil && batchErr == nil {
			batchErr = fmt.Errorf("failed to insert line %s for entry %s: %w", lines[i].LineID, entry.EntryID, err)
		}
	}
	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = fmt.Errorf("failed to close line insert batch for entry %s: %w", entry.EntryID, err)
	}
	return batchErr
}

// UpdateEntryStatusAndLinksInTx updates the status and reversal linkage of an
// entry within the caller's transaction.
func (r *PgxJournalRepository) UpdateEntryStatusAndLinksInTx(ctx context.Context, tx pgx.Tx, entryID string, status domain.EntryStatus, reversingEntryID *string, updatedByUserID string, updatedAt time.Time) error {
	query := `
		UPDATE journal_entries
		SET status = $2, reversing_entry_id = $3, last_updated_at = $4, last_updated_by = $5
		WHERE entry_id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query, entryID, status, reversingEntryID, updatedAt, updatedByUserID)
	if err != nil {
		return fmt.Errorf("failed to update status for entry %s: %w", entryID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindEntryByID retrieves a journal entry header.
func (r *PgxJournalRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE entry_id = $1;`

	entry, err := scanEntry(r.Pool.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find journal entry %s: %w", entryID, err)
	}
	return entry, nil
}

// ListEntriesByCompany retrieves a paginated list of entries, newest first.
func (r *PgxJournalRepository) ListEntriesByCompany(ctx context.Context, companyID string, limit int, offset int) ([]domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE company_id = $1
		ORDER BY entry_date DESC, created_at DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for company %s: %w", companyID, err)
	}
	defer rows.Close()

	entries := []domain.JournalEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row for company %s: %w", companyID, err)
		}
		entries = append(entries, *entry)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating entry rows for company %s: %w", companyID, rows.Err())
	}
	return entries, nil
}

// FindLinesByEntryID retrieves all lines of one journal entry.
func (r *PgxJournalRepository) FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.EntryLine, error) {
	query := `SELECT ` + lineColumns + ` FROM journal_entry_lines WHERE entry_id = $1 ORDER BY line_type, account_id;`

	rows, err := r.Pool.Query(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines for entry %s: %w", entryID, err)
	}
	defer rows.Close()

	return collectLines(rows)
}

// ListLinesByAccount retrieves a paginated list of lines for one account.
func (r *PgxJournalRepository) ListLinesByAccount(ctx context.Context, companyID string, accountID string, limit int, offset int) ([]domain.EntryLine, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT l.line_id, l.entry_id, l.account_id, l.amount, l.line_type, l.description, l.is_matched, l.matched_by, l.matched_at, l.created_at, l.created_by, l.last_updated_at, l.last_updated_by
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.entry_id = l.entry_id
		WHERE e.company_id = $1 AND l.account_id = $2
		ORDER BY e.entry_date DESC, l.created_at DESC
		LIMIT $3 OFFSET $4;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines for account %s: %w", accountID, err)
	}
	defer rows.Close()

	return collectLines(rows)
}

// FindUnmatchedLinesByAccount retrieves posted, unreconciled lines for one
// account, oldest first.
func (r *PgxJournalRepository) FindUnmatchedLinesByAccount(ctx context.Context, companyID string, accountID string) ([]domain.EntryLine, error) {
	query := `
		SELECT l.line_id, l.entry_id, l.account_id, l.amount, l.line_type, l.description, l.is_matched, l.matched_by, l.matched_at, l.created_at, l.created_by, l.last_updated_at, l.last_updated_by
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.entry_id = l.entry_id
		WHERE e.company_id = $1 AND l.account_id = $2 AND l.is_matched = FALSE AND e.status = 'POSTED'
		ORDER BY e.entry_date, l.created_at;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched lines for account %s: %w", accountID, err)
	}
	defer rows.Close()

	return collectLines(rows)
}

// FindLinesByIDsForUpdate selects lines by id and locks them within the
// caller's transaction, scoped to the company via the owning entry.
func (r *PgxJournalRepository) FindLinesByIDsForUpdate(ctx context.Context, tx pgx.Tx, companyID string, lineIDs []string) ([]domain.EntryLine, error) {
	if len(lineIDs) == 0 {
		return []domain.EntryLine{}, nil
	}

	query := `
		SELECT l.line_id, l.entry_id, l.account_id, l.amount, l.line_type, l.description, l.is_matched, l.matched_by, l.matched_at, l.created_at, l.created_by, l.last_updated_at, l.last_updated_by
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.entry_id = l.entry_id
		WHERE e.company_id = $1 AND l.line_id = ANY($2)
		FOR UPDATE OF l;
	`
	rows, err := tx.Query(ctx, query, companyID, lineIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock lines by IDs: %w", err)
	}
	defer rows.Close()

	return collectLines(rows)
}

// MarkLinesMatchedInTx sets is_matched on the given lines, guarded by a
// compare-and-set on is_matched = FALSE.
func (r *PgxJournalRepository) MarkLinesMatchedInTx(ctx context.Context, tx pgx.Tx, lineIDs []string, userID string, now time.Time) (int64, error) {
	query := `
		UPDATE journal_entry_lines
		SET is_matched = TRUE, matched_by = $2, matched_at = $3, last_updated_at = $3, last_updated_by = $2
		WHERE line_id = ANY($1) AND is_matched = FALSE;
	`
	cmdTag, err := tx.Exec(ctx, query, lineIDs, userID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to mark lines matched: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

func collectLines(rows pgx.Rows) ([]domain.EntryLine, error) {
	lines := []domain.EntryLine{}
	for rows.Next() {
		line, err := scanEntryLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry line row: %w", err)
		}
		lines = append(lines, *line)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating entry line rows: %w", rows.Err())
	}
	return lines, nil
}
