package entities

import "github.com/shopspring/decimal"

// Quantity represents a quantity of a part or of staging capacity. Quantities
// are decimal because BOM quantity-per values can be fractional (cut lengths,
// adhesives, bulk material).
type Quantity = decimal.Decimal

// Qty builds a Quantity from an integer count.
func Qty(v int64) Quantity {
	return decimal.NewFromInt(v)
}

// QtyFromString parses a decimal quantity string.
func QtyFromString(s string) (Quantity, error) {
	return decimal.NewFromString(s)
}
