package entities

import "fmt"

// BOMLine represents a single line in a Bill of Materials. Lines form a
// directed acyclic graph over parts; a cycle is an error condition detected
// during explosion, never a valid state.
type BOMLine struct {
	ParentPN      PartNumber
	ChildPN       PartNumber
	QtyPer        Quantity
	UnitOfMeasure string

	// EffectiveStage is the routing sequence at which this line becomes part
	// of the kit. Lines with EffectiveStage above the requested stage are
	// excluded from a partial kit.
	EffectiveStage int

	// Phantom lines are structural placeholders: the child is expanded
	// through and never appears as a required line itself.
	Phantom bool

	// Alternates lists approved substitute parts for this line, in
	// preference order.
	Alternates []PartNumber
}

// NewBOMLine creates a validated BOMLine
func NewBOMLine(parentPN, childPN PartNumber, qtyPer Quantity, uom string, effectiveStage int) (*BOMLine, error) {
	if string(parentPN) == "" {
		return nil, fmt.Errorf("parent part number cannot be empty")
	}
	if string(childPN) == "" {
		return nil, fmt.Errorf("child part number cannot be empty")
	}
	if parentPN == childPN {
		return nil, fmt.Errorf("parent and child part numbers cannot be the same: %s", parentPN)
	}
	if !qtyPer.IsPositive() {
		return nil, fmt.Errorf("quantity per must be positive, got %s", qtyPer)
	}
	if effectiveStage < 0 {
		return nil, fmt.Errorf("effective stage must not be negative, got %d", effectiveStage)
	}

	return &BOMLine{
		ParentPN:       parentPN,
		ChildPN:        childPN,
		QtyPer:         qtyPer,
		UnitOfMeasure:  uom,
		EffectiveStage: effectiveStage,
	}, nil
}

// RequiredLine is the flattened output of BOM explosion for one work order
// and stage: one line per distinct leaf part with the total quantity summed
// across all expansion paths.
type RequiredLine struct {
	Part          PartNumber
	Quantity      Quantity
	UnitOfMeasure string
	LeadTimeDays  int
	Substitutes   []PartNumber

	// Paths lists the root-to-leaf expansion paths that contributed to the
	// total quantity, for traceability.
	Paths []string
}
