package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineType indicates whether an entry line is a Debit or a Credit.
type LineType string

const (
	Debit  LineType = "DEBIT"
	Credit LineType = "CREDIT"
)

// QuantityPrecision is the fixed-point scale used for amounts and quantities.
const QuantityPrecision = 4

// MoneyPrecision is the scale GL amounts are rounded to at line construction.
const MoneyPrecision = 2

// EntryLine is a single line item within a JournalEntry, affecting one
// account. Amount is always positive; the LineType carries the side, which
// structurally guarantees exactly one of debit/credit is non-zero.
type EntryLine struct {
	LineID      string          `json:"lineID"`    // Primary Key (UUID)
	EntryID     string          `json:"entryID"`   // FK -> JournalEntry (NON-NULL)
	AccountID   string          `json:"accountID"` // FK -> Account (NON-NULL)
	Amount      decimal.Decimal `json:"amount"`    // Positive, 4-decimal fixed point
	LineType    LineType        `json:"lineType"`
	Description string          `json:"description"` // Nullable
	// Reconciliation state. Set exactly once when the line is matched against
	// a bank statement line.
	IsMatched bool       `json:"isMatched"`
	MatchedBy *string    `json:"matchedBy,omitempty"`
	MatchedAt *time.Time `json:"matchedAt,omitempty"`
	AuditFields
}

// Signed returns the line amount with ledger sign convention applied:
// debits positive, credits negative. Used by the reconciliation matcher,
// where a cash inflow is a debit in the company's books.
func (l EntryLine) Signed() decimal.Decimal {
	if l.LineType == Debit {
		return l.Amount
	}
	return l.Amount.Neg()
}
