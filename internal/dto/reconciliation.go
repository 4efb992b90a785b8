package dto

import (
	"time"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ReconcileRequest selects the bank lines and ledger lines to net against
// each other. The match is many-to-many; only the totals must agree within
// the configured tolerance.
type ReconcileRequest struct {
	BankLineIDs   []string `json:"bankLineIDs" binding:"required,min=1"`
	LedgerLineIDs []string `json:"ledgerLineIDs" binding:"required,min=1"`
}

// BankLineResponse defines the data returned for a bank statement line.
type BankLineResponse struct {
	BankLineID  string           `json:"bankLineID"`
	AccountID   string           `json:"accountID"`
	Date        time.Time        `json:"date"`
	Description string           `json:"description"`
	Debit       decimal.Decimal  `json:"debit"`
	Credit      decimal.Decimal  `json:"credit"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
	ProviderRef string           `json:"providerRef,omitempty"`
	IsMatched   bool             `json:"isMatched"`
}

// ProposeMatchesResponse lists both sides' reconciliation candidates.
type ProposeMatchesResponse struct {
	BankLines   []BankLineResponse  `json:"bankLines"`
	LedgerLines []EntryLineResponse `json:"ledgerLines"`
}

// WebhookBankLineRequest is the payment-provider confirmation payload.
// TransactionRef is the provider's transaction id; ingestion is idempotent
// on it.
type WebhookBankLineRequest struct {
	TransactionRef string          `json:"transactionRef" binding:"required"`
	AccountCode    string          `json:"accountCode" binding:"required"`
	Date           time.Time       `json:"date" binding:"required"`
	Description    string          `json:"description"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
}

// ImportStatementResult summarizes a CSV statement import.
type ImportStatementResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ToBankLineResponse converts a domain.BankStatementLine to its DTO.
func ToBankLineResponse(b *domain.BankStatementLine) BankLineResponse {
	return BankLineResponse{
		BankLineID:  b.BankLineID,
		AccountID:   b.AccountID,
		Date:        b.LineDate,
		Description: b.Description,
		Debit:       b.Debit,
		Credit:      b.Credit,
		Balance:     b.Balance,
		ProviderRef: b.ProviderRef,
		IsMatched:   b.IsMatched,
	}
}

// ToBankLineResponses converts a slice of bank lines to DTOs.
func ToBankLineResponses(lines []domain.BankStatementLine) []BankLineResponse {
	responses := make([]BankLineResponse, len(lines))
	for i := range lines {
		responses[i] = ToBankLineResponse(&lines[i])
	}
	return responses
}
