package entities

// StockLevels is the raw per-part answer from the inventory collaborator.
type StockLevels struct {
	Part      PartNumber
	OnHand    Quantity
	Reserved  Quantity // sum of all active reservations, this engine's included
	InTransit Quantity
}

// InventorySnapshot is a read-only, point-in-time view of availability for
// one part. It is always read fresh at shortage evaluation and never cached
// across kit lifecycle stages.
type InventorySnapshot struct {
	Part         PartNumber
	OnHand       Quantity
	Reserved     Quantity // reservations held by other kits
	InTransit    Quantity
	NetAvailable Quantity

	// Unknown is set when the inventory source could not be read. Callers
	// treat unknown availability as a provisional shortage, not a hard stop.
	Unknown bool
}
