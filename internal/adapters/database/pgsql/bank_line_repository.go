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

const bankLineColumns = `bank_line_id, company_id, account_id, line_date, description, debit, credit, balance, provider_ref, source, is_matched, matched_line_id, matched_by, matched_at, created_at, created_by, last_updated_at, last_updated_by`

type PgxBankLineRepository struct {
	BaseRepository
}

func newPgxBankLineRepository(pool *pgxpool.Pool) portsrepo.BankLineRepositoryWithTx {
	return &PgxBankLineRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.BankLineRepositoryWithTx = (*PgxBankLineRepository)(nil)

func scanBankLine(row pgx.Row) (*domain.BankStatementLine, error) {
	var b domain.BankStatementLine
	var providerRef *string
	err := row.Scan(
		&b.BankLineID,
		&b.CompanyID,
		&b.AccountID,
		&b.LineDate,
		&b.Description,
		&b.Debit,
		&b.Credit,
		&b.Balance,
		&providerRef,
		&b.Source,
		&b.IsMatched,
		&b.MatchedLineID,
		&b.MatchedBy,
		&b.MatchedAt,
		&b.CreatedAt,
		&b.CreatedBy,
		&b.LastUpdatedAt,
		&b.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if providerRef != nil {
		b.ProviderRef = *providerRef
	}
	return &b, nil
}

func bankLineInsertArgs(line domain.BankStatementLine) []any {
	// provider_ref is NULL for manual imports so the partial unique index
	// only guards webhook-sourced lines.
	var providerRef *string
	if line.ProviderRef != "" {
		providerRef = &line.ProviderRef
	}
	return []any{
		line.BankLineID,
		line.CompanyID,
		line.AccountID,
		line.LineDate,
		line.Description,
		line.Debit,
		line.Credit,
		line.Balance,
		providerRef,
		line.Source,
		line.IsMatched,
		line.MatchedLineID,
		line.MatchedBy,
		line.MatchedAt,
		line.CreatedAt,
		line.CreatedBy,
		line.LastUpdatedAt,
		line.LastUpdatedBy,
	}
}

// UpsertWebhookLine inserts a statement line keyed on its provider reference.
// Returns false when the reference was already ingested.
func (r *PgxBankLineRepository) UpsertWebhookLine(ctx context.Context, line domain.BankStatementLine) (bool, error) {
	query := `
		INSERT INTO bank_statement_lines (` + bankLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (provider_ref) WHERE provider_ref IS NOT NULL DO NOTHING;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, bankLineInsertArgs(line)...)
	if err != nil {
		return false, fmt.Errorf("failed to upsert bank line %s: %w", line.BankLineID, err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// InsertLines appends a batch of statement lines (CSV import).
func (r *PgxBankLineRepository) InsertLines(ctx context.Context, lines []domain.BankStatementLine) error {
	if len(lines) == 0 {
		return nil
	}

	query := `
		INSERT INTO bank_statement_lines (` + bankLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(query, bankLineInsertArgs(line)...)
	}

	br := r.Pool.SendBatch(ctx, batch)
	var batchErr error
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil && batchErr == nil {
			batchErr = fmt.Errorf("failed to insert bank line %s: %w", lines[i].BankLineID, err)
		}
	}
	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = fmt.Errorf("failed to close bank line insert batch: %w", err)
	}
	return batchErr
}

// FindBankLineByID retrieves a statement line by id, scoped to a company.
func (r *PgxBankLineRepository) FindBankLineByID(ctx context.Context, companyID string, bankLineID string) (*domain.BankStatementLine, error) {
	query := `SELECT ` + bankLineColumns + ` FROM bank_statement_lines WHERE company_id = $1 AND bank_line_id = $2;`

	b, err := scanBankLine(r.Pool.QueryRow(ctx, query, companyID, bankLineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find bank line %s: %w", bankLineID, err)
	}
	return b, nil
}

// FindUnmatchedByAccount retrieves unmatched statement lines for one bank
// account, oldest first.
func (r *PgxBankLineRepository) FindUnmatchedByAccount(ctx context.Context, companyID string, accountID string) ([]domain.BankStatementLine, error) {
	query := `
		SELECT ` + bankLineColumns + `
		FROM bank_statement_lines
		WHERE company_id = $1 AND account_id = $2 AND is_matched = FALSE
		ORDER BY line_date, created_at;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unmatched bank lines for account %s: %w", accountID, err)
	}
	defer rows.Close()

	return collectBankLines(rows)
}

// FindBankLinesByIDsForUpdate selects statement lines by id and locks them
// within the caller's transaction.
func (r *PgxBankLineRepository) FindBankLinesByIDsForUpdate(ctx context.Context, tx pgx.Tx, bankLineIDs []string) ([]domain.BankStatementLine, error) {
	if len(bankLineIDs) == 0 {
		return []domain.BankStatementLine{}, nil
	}

	query := `
		SELECT ` + bankLineColumns + `
		FROM bank_statement_lines
		WHERE bank_line_id = ANY($1)
		FOR UPDATE;
	`
	rows, err := tx.Query(ctx, query, bankLineIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock bank lines by IDs: %w", err)
	}
	defer rows.Close()

	return collectBankLines(rows)
}

// MarkBankLinesMatchedInTx sets is_matched on the given lines, guarded by a
// compare-and-set on is_matched = FALSE.
func (r *PgxBankLineRepository) MarkBankLinesMatchedInTx(ctx context.Context, tx pgx.Tx, bankLineIDs []string, userID string, now time.Time) (int64, error) {
	query := `
		UPDATE bank_statement_lines
		SET is_matched = TRUE, matched_by = $2, matched_at = $3, last_updated_at = $3, last_updated_by = $2
		WHERE bank_line_id = ANY($1) AND is_matched = FALSE;
	`
	cmdTag, err := tx.Exec(ctx, query, bankLineIDs, userID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to mark bank lines matched: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

func collectBankLines(rows pgx.Rows) ([]domain.BankStatementLine, error) {
	lines := []domain.BankStatementLine{}
	for rows.Next() {
		b, err := scanBankLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank line row: %w", err)
		}
		lines = append(lines, *b)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating bank line rows: %w", rows.Err())
	}
	return lines, nil
}
