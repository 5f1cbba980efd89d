package entities

// PartNumber represents a unique part identifier
type PartNumber string

// Part represents purchasable/manufacturable reference data owned by the
// part-master collaborator. The engine treats it as immutable.
type Part struct {
	PartNumber        PartNumber
	Description       string
	UnitOfMeasure     string
	LeadTimeDays      int
	SubstitutionGroup string // empty = no approved substitutes

	// StockedSubassembly marks an intermediate assembly that is pulled from
	// stock as a unit and kitted directly instead of being exploded into its
	// components.
	StockedSubassembly bool
}
