package entities

import "time"

// KitStatus represents the lifecycle state of a kit
type KitStatus int

const (
	KitPlanned KitStatus = iota
	KitStaging
	KitStaged
	KitIssued
	KitConsumed
	KitOnHold
	KitCancelled
)

func (s KitStatus) String() string {
	switch s {
	case KitPlanned:
		return "Planned"
	case KitStaging:
		return "Staging"
	case KitStaged:
		return "Staged"
	case KitIssued:
		return "Issued"
	case KitConsumed:
		return "Consumed"
	case KitOnHold:
		return "OnHold"
	case KitCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transitions are allowed from s.
func (s KitStatus) Terminal() bool {
	return s == KitConsumed || s == KitCancelled
}

// kitTransitions is the authoritative allowed-transition table. Status
// columns on boards are projections over this table, never a second source
// of truth.
var kitTransitions = map[KitStatus][]KitStatus{
	KitPlanned: {KitStaging, KitCancelled},
	KitStaging: {KitStaged, KitOnHold, KitCancelled},
	KitStaged:  {KitIssued, KitOnHold, KitCancelled},
	KitIssued:  {KitConsumed, KitCancelled},
	KitOnHold:  {KitStaging, KitStaged, KitCancelled},
}

// CanTransition reports whether from → to is in the transition table.
func CanTransition(from, to KitStatus) bool {
	for _, next := range kitTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ConditionCode represents the scanned condition of a kit item
type ConditionCode int

const (
	ConditionUnscanned ConditionCode = iota
	ConditionGood
	ConditionDamaged
	ConditionQuestionable
)

func (c ConditionCode) String() string {
	switch c {
	case ConditionUnscanned:
		return "Unscanned"
	case ConditionGood:
		return "Good"
	case ConditionDamaged:
		return "Damaged"
	case ConditionQuestionable:
		return "Questionable"
	default:
		return "Unknown"
	}
}

// KitItem is one required line bound to a kit.
type KitItem struct {
	Part          PartNumber
	Required      Quantity
	Confirmed     Quantity
	UnitOfMeasure string
	Condition     ConditionCode
	Substitutes   []PartNumber

	// Exception is set when a scan reported Damaged or Questionable material;
	// it must be resolved by a coordinator before the kit can reach Staged.
	Exception bool
}

// Short returns max(0, required − confirmed).
func (i *KitItem) Short() Quantity {
	short := i.Required.Sub(i.Confirmed)
	if short.IsNegative() {
		return Qty(0)
	}
	return short
}

// Complete reports whether the item is fully confirmed in Good condition.
func (i *KitItem) Complete() bool {
	return !i.Exception && i.Condition == ConditionGood && i.Confirmed.Cmp(i.Required) >= 0
}

// ShortageSummary is the denormalized shortage state carried on a kit.
type ShortageSummary struct {
	Open     int
	Major    int
	Blocking int
}

// Kit is the staged collection of parts for one work order and stage,
// tracked through the lifecycle owned by the kit state machine.
type Kit struct {
	ID         string
	WorkOrder  string
	Stage      string
	Priority   Priority
	DueDate    time.Time
	Status     KitStatus
	Items      []KitItem
	LocationID string // empty until a staging location is allocated
	AssignedTo string // staging personnel, empty until assigned
	Shortages  ShortageSummary

	// ResumeTo remembers the pre-hold status so an OnHold kit resumes
	// without losing its place.
	ResumeTo KitStatus

	CreatedAt time.Time
	StagedAt  time.Time
	IssuedAt  time.Time
}

// Transition moves the kit to the requested status after checking the
// transition table. An illegal request is rejected with
// InvalidTransitionError and leaves the status unchanged.
func (k *Kit) Transition(to KitStatus) error {
	if !CanTransition(k.Status, to) {
		return &InvalidTransitionError{KitID: k.ID, From: k.Status, To: to}
	}
	if to == KitOnHold {
		k.ResumeTo = k.Status
	}
	k.Status = to
	return nil
}

// Item returns the kit item for a part, or nil when the part is not on the
// kit.
func (k *Kit) Item(part PartNumber) *KitItem {
	for i := range k.Items {
		if k.Items[i].Part == part {
			return &k.Items[i]
		}
	}
	return nil
}

// ReadyToStage reports whether every item is fully confirmed with all scans
// Good and no open exceptions.
func (k *Kit) ReadyToStage() bool {
	for i := range k.Items {
		if !k.Items[i].Complete() {
			return false
		}
	}
	return true
}
