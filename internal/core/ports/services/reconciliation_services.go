package services

import (
	"context"
	"io"

	"github.com/dukabook/dukabook_backend/internal/dto"
)

// ReconciliationSvcFacade defines bank statement ingestion and the
// tolerance-based matcher.
type ReconciliationSvcFacade interface {
	// ProposeMatches lists both sides' unmatched candidates for one bank
	// account: statement lines and ledger lines.
	ProposeMatches(ctx context.Context, companyID string, accountID string) (*dto.ProposeMatchesResponse, error)

	// Reconcile nets the selected bank lines against the selected ledger
	// lines and marks both sides matched when the totals agree within the
	// configured tolerance.
	Reconcile(ctx context.Context, companyID string, req dto.ReconcileRequest, userID string) error

	// IngestWebhookLine appends a statement line from a payment-provider
	// callback, idempotent on the provider's transaction reference. Returns
	// false when the reference was already ingested.
	IngestWebhookLine(ctx context.Context, companyID string, req dto.WebhookBankLineRequest) (bool, error)

	// ImportStatementCSV parses a manually uploaded statement and appends its
	// rows as unmatched lines. Malformed rows are logged and skipped.
	ImportStatementCSV(ctx context.Context, companyID string, accountID string, r io.Reader, userID string) (*dto.ImportStatementResult, error)
}
