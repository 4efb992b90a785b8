package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockAdjustment records a manual stock correction: a loss (shrinkage,
// negative quantity change) or a gain (overage, positive change). It is
// created atomically with the product mutation and, unless the value is
// negligible, the journal entry posting its financial effect.
type StockAdjustment struct {
	AdjustmentID   string          `json:"adjustmentID"` // Primary Key (UUID)
	CompanyID      string          `json:"companyID"`    // Owning tenant (NON-NULL)
	ProductID      string          `json:"productID"`    // FK -> Product (NON-NULL)
	AdjustmentDate time.Time       `json:"adjustmentDate"`
	QuantityChange decimal.Decimal `json:"quantityChange"` // Signed; negative = loss, positive = gain
	UnitCost       decimal.Decimal `json:"unitCost"`       // Cost basis used to value the change
	// AdjustmentValue = round(|QuantityChange| * UnitCost, 2).
	AdjustmentValue decimal.Decimal `json:"adjustmentValue"`
	Reason          string          `json:"reason"`
	OffsetAccountID string          `json:"offsetAccountID"` // GL account the value is offset against
	// EntryID links the journal entry this adjustment produced. Nil only when
	// the adjustment value rounded below the posting threshold.
	EntryID   *string    `json:"entryID,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	AuditFields
}

// IsShrinkage reports whether the adjustment removes stock.
func (a StockAdjustment) IsShrinkage() bool {
	return a.QuantityChange.IsNegative()
}
