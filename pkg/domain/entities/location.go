package entities

// LocationAttribute is a capability a staging location offers. A kit's
// required attribute set must be a subset of the location's.
type LocationAttribute string

const (
	AttrSecurityClearance LocationAttribute = "security-clearance"
	AttrCleanRoom         LocationAttribute = "clean-room"
	AttrCrane             LocationAttribute = "crane"
	AttrESDControl        LocationAttribute = "esd-control"
)

// LocationStatus represents the operational status of a staging location
type LocationStatus int

const (
	LocationAvailable LocationStatus = iota
	LocationAtCapacity
	LocationMaintenance
)

func (s LocationStatus) String() string {
	switch s {
	case LocationAvailable:
		return "Available"
	case LocationAtCapacity:
		return "AtCapacity"
	case LocationMaintenance:
		return "Maintenance"
	default:
		return "Unknown"
	}
}

// StagingLocation is a physical staging area with finite capacity.
// Invariant: Occupancy ≤ Capacity at every committed state; a location in
// Maintenance accepts no new allocations.
type StagingLocation struct {
	ID         string
	Capacity   Quantity
	Occupancy  Quantity
	Attributes []LocationAttribute
	Status     LocationStatus

	// Proximity is a site-provided distance score used as a ranking
	// tie-break; lower is closer.
	Proximity int
}

// HasAttributes reports whether the location offers every required attribute.
func (l *StagingLocation) HasAttributes(required []LocationAttribute) bool {
	for _, want := range required {
		found := false
		for _, have := range l.Attributes {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// OccupancyRatio returns occupancy / capacity, 1.0 for zero-capacity
// locations.
func (l *StagingLocation) OccupancyRatio() float64 {
	if !l.Capacity.IsPositive() {
		return 1.0
	}
	ratio, _ := l.Occupancy.Div(l.Capacity).Float64()
	return ratio
}
