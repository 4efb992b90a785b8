package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostingMethod selects how outbound stock movements are valued.
type CostingMethod string

const (
	// FIFO tracks discrete inbound cost layers and depletes the oldest first.
	FIFO CostingMethod = "FIFO"
	// WAC keeps a single rolling weighted-average unit cost per product.
	WAC CostingMethod = "WAC"
)

// Product is a sellable or stockable item. Service products never carry
// stock; their stock and cost fields stay zero and the costing service
// rejects them outright.
type Product struct {
	ProductID     string          `json:"productID"` // Primary Key (UUID)
	CompanyID     string          `json:"companyID"` // Owning tenant (NON-NULL)
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unitPrice"` // Selling price
	CostingMethod CostingMethod   `json:"costingMethod"`
	IsService     bool            `json:"isService"`
	// CurrentStock is denormalized for both methods; for FIFO it must equal
	// the sum of remaining quantities across cost layers.
	CurrentStock decimal.Decimal `json:"currentStock"`
	// CurrentAvgCost is the rolling average unit cost; only maintained for WAC.
	CurrentAvgCost decimal.Decimal `json:"currentAvgCost"`
	DeletedAt      *time.Time      `json:"deletedAt,omitempty"`
	AuditFields
}

// CostLayer is one inbound stock event for a FIFO product. Layers are
// depleted oldest-first; RemainingQuantity is monotonically non-increasing.
type CostLayer struct {
	LayerID           string          `json:"layerID"`   // Primary Key (UUID)
	ProductID         string          `json:"productID"` // FK -> Product (NON-NULL)
	QuantityIn        decimal.Decimal `json:"quantityIn"`
	RemainingQuantity decimal.Decimal `json:"remainingQuantity"` // 0 <= remaining <= quantityIn
	UnitCost          decimal.Decimal `json:"unitCost"`
	PurchaseDate      time.Time       `json:"purchaseDate"`
	AuditFields
}

// Depleted reports whether this layer has no stock left to consume.
func (l CostLayer) Depleted() bool {
	return l.RemainingQuantity.LessThanOrEqual(decimal.Zero)
}

// RemainingValue is the inventory value still held in this layer.
func (l CostLayer) RemainingValue() decimal.Decimal {
	return l.RemainingQuantity.Mul(l.UnitCost)
}
