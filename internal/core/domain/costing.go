package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrLayersExhausted is returned by DepleteLayers when the requested quantity
// exceeds what the layers hold. The costing service maps it onto its own
// insufficient-stock error with request context attached.
var ErrLayersExhausted = errors.New("cost layers exhausted before requested quantity was satisfied")

// LayerConsumption records how much was taken from a single cost layer during
// a FIFO depletion.
type LayerConsumption struct {
	LayerID  string
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// RoundMoney rounds a GL amount to the currency scale.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPrecision)
}

// RoundQuantity rounds a stock quantity or unit cost to fixed-point scale.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityPrecision)
}

// NextAverageCost computes the rolling weighted-average unit cost after an
// inbound of inQty units at inCost. Returns inCost verbatim when there was no
// prior stock.
func NextAverageCost(oldQty, oldAvg, inQty, inCost decimal.Decimal) decimal.Decimal {
	newQty := oldQty.Add(inQty)
	if newQty.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	total := oldQty.Mul(oldAvg).Add(inQty.Mul(inCost))
	return RoundQuantity(total.Div(newQty))
}

// AvailableQuantity sums the remaining quantity across cost layers.
func AvailableQuantity(layers []CostLayer) decimal.Decimal {
	total := decimal.Zero
	for _, l := range layers {
		total = total.Add(l.RemainingQuantity)
	}
	return total
}

// LayersValue sums the remaining inventory value across cost layers.
func LayersValue(layers []CostLayer) decimal.Decimal {
	total := decimal.Zero
	for _, l := range layers {
		total = total.Add(l.RemainingValue())
	}
	return total
}

// DepleteLayers consumes qty units from the given layers oldest-first and
// returns the per-layer consumptions plus the weighted-average unit cost of
// everything consumed. The caller must pass layers ordered by purchase date
// ascending. The input slice is not mutated.
func DepleteLayers(layers []CostLayer, qty decimal.Decimal) ([]LayerConsumption, decimal.Decimal, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, decimal.Zero, errors.New("depletion quantity must be positive")
	}

	remaining := qty
	totalCost := decimal.Zero
	var consumed []LayerConsumption

	for _, layer := range layers {
		if layer.Depleted() {
			continue
		}
		take := decimal.Min(layer.RemainingQuantity, remaining)
		consumed = append(consumed, LayerConsumption{
			LayerID:  layer.LayerID,
			Quantity: take,
			UnitCost: layer.UnitCost,
		})
		totalCost = totalCost.Add(take.Mul(layer.UnitCost))
		remaining = remaining.Sub(take)
		if remaining.IsZero() {
			break
		}
	}

	if remaining.GreaterThan(decimal.Zero) {
		return nil, decimal.Zero, ErrLayersExhausted
	}

	unitCost := RoundQuantity(totalCost.Div(qty))
	return consumed, unitCost, nil
}
