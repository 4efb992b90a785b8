package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankLineSource indicates how a statement line entered the system.
type BankLineSource string

const (
	BankLineManual  BankLineSource = "MANUAL"  // CSV import
	BankLineWebhook BankLineSource = "WEBHOOK" // Payment-provider sync
)

// BankStatementLine is one externally-sourced bank transaction awaiting
// reconciliation against the company's ledger. Lines are created unmatched
// and mutated exactly once, when the matcher marks them matched.
type BankStatementLine struct {
	BankLineID  string          `json:"bankLineID"` // Primary Key (UUID)
	CompanyID   string          `json:"companyID"`  // Owning tenant (NON-NULL)
	AccountID   string          `json:"accountID"`  // FK -> Account (the bank GL account)
	LineDate    time.Time       `json:"lineDate"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`  // Money leaving the bank account
	Credit      decimal.Decimal `json:"credit"` // Money entering the bank account
	// Balance is an informational statement snapshot; it is never used by the
	// matcher.
	Balance *decimal.Decimal `json:"balance,omitempty"`
	// ProviderRef is the external transaction reference; ingestion is
	// idempotent on it under at-least-once webhook delivery.
	ProviderRef string         `json:"providerRef,omitempty"`
	Source      BankLineSource `json:"source"`
	IsMatched   bool           `json:"isMatched"`
	// MatchedLineID links the ledger line this bank line was netted against
	// when the match was 1:1; group matches leave it nil.
	MatchedLineID *string    `json:"matchedLineID,omitempty"`
	MatchedBy     *string    `json:"matchedBy,omitempty"`
	MatchedAt     *time.Time `json:"matchedAt,omitempty"`
	AuditFields
}

// Signed returns the line amount under bank-statement sign convention:
// credits (inflows) positive, debits negative.
func (b BankStatementLine) Signed() decimal.Decimal {
	return b.Credit.Sub(b.Debit)
}
