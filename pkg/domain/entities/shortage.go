package entities

import "time"

// ShortageSeverity classifies the impact of a shortage
type ShortageSeverity int

const (
	SeverityInformational ShortageSeverity = iota
	SeverityMajor
	SeverityBlocking
)

func (s ShortageSeverity) String() string {
	switch s {
	case SeverityInformational:
		return "Informational"
	case SeverityMajor:
		return "Major"
	case SeverityBlocking:
		return "Blocking"
	default:
		return "Unknown"
	}
}

// ShortageRecord is a derived report line, recomputed whenever availability
// changes materially. It is not an authoritative ledger.
type ShortageRecord struct {
	Part      PartNumber
	Required  Quantity
	Available Quantity
	Shortfall Quantity
	Severity  ShortageSeverity

	// Substitute names the approved alternate that can cover the shortfall,
	// when one exists with sufficient availability.
	Substitute PartNumber

	// Provisional marks shortages derived from unknown availability; they
	// are re-checked on the next refresh rather than treated as hard facts.
	Provisional bool

	Kits       []string
	DetectedAt time.Time
}
