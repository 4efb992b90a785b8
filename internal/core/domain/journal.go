package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus indicates the state of a journal entry.
type EntryStatus string

const (
	Draft    EntryStatus = "DRAFT"
	Posted   EntryStatus = "POSTED"
	Reversed EntryStatus = "REVERSED"
)

// SourceType tags the business record a journal entry originated from.
type SourceType string

const (
	SourceStockAdjustment SourceType = "STOCK_ADJUSTMENT"
	SourceBill            SourceType = "BILL"
	SourceInvoice         SourceType = "INVOICE"
	SourcePayment         SourceType = "PAYMENT"
)

// SourceRef links a journal entry back to the business record that produced
// it. It replaces the polymorphic foreign key of classic ORM designs with an
// explicit tagged pair.
type SourceRef struct {
	Type SourceType `json:"type"`
	ID   string     `json:"id"`
}

// JournalEntry represents a single, balanced financial event composed of
// multiple entry lines. Once posted, the entry and its lines are immutable;
// corrections happen through reversing entries only.
type JournalEntry struct {
	EntryID     string      `json:"entryID"`     // Primary Key (UUID)
	CompanyID   string      `json:"companyID"`   // Owning tenant (NON-NULL)
	EntryDate   time.Time   `json:"entryDate"`   // Date the event occurred
	Description string      `json:"description"` // User description (required)
	SourceLabel string      `json:"sourceLabel"` // Human-readable origin, e.g. "Stock Adjustment"
	SourceRef   *SourceRef  `json:"sourceRef,omitempty"`
	Status      EntryStatus `json:"status"`
	// Amount is the sum of the debit legs (equivalently the credit legs).
	// Redundant with the lines but kept for fast reporting queries.
	Amount decimal.Decimal `json:"amount"`
	// Reversal linkage.
	OriginalEntryID  *string `json:"originalEntryID,omitempty"`
	ReversingEntryID *string `json:"reversingEntryID,omitempty"`
	AuditFields
	Lines []EntryLine `json:"lines,omitempty"` // Loaded on demand
}

// IsReversal reports whether this entry reverses another entry.
func (j JournalEntry) IsReversal() bool {
	return j.OriginalEntryID != nil
}
