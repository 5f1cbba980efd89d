package entities

import "time"

// Priority represents the staging priority of a work order or kit
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityNormal:
		return "Normal"
	case PriorityHigh:
		return "High"
	case PriorityUrgent:
		return "Urgent"
	default:
		return "Unknown"
	}
}

// AssemblyStage is one ordered operation on a work order's routing.
type AssemblyStage struct {
	Name     string
	Sequence int
}

// WorkOrder represents the work-order header as read from the work-order
// collaborator. The engine never mutates it.
type WorkOrder struct {
	ID           string
	TopLevelPart PartNumber
	Quantity     Quantity
	Routing      []AssemblyStage
	DueDate      time.Time
	Priority     Priority
	Cancelled    bool
}

// StageSequence resolves a routing stage name to its sequence number. Stage
// comparison is always by sequence, never by name ordering.
func (w *WorkOrder) StageSequence(name string) (int, bool) {
	for _, s := range w.Routing {
		if s.Name == name {
			return s.Sequence, true
		}
	}
	return 0, false
}

// RemainingSlackDays returns the whole days between now and the due date.
// Negative values mean the work order is already late.
func (w *WorkOrder) RemainingSlackDays(now time.Time) int {
	return int(w.DueDate.Sub(now).Hours() / 24)
}
