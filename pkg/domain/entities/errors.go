package entities

import (
	"errors"
	"fmt"
	"strings"
)

// BOMCycleError reports a cycle in the BOM graph. Fatal; the upstream BOM
// data must be corrected.
type BOMCycleError struct {
	Part PartNumber
	Path []PartNumber
}

func (e *BOMCycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, p := range e.Path {
		parts[i] = string(p)
	}
	return fmt.Sprintf("BOM cycle detected at part %s (path %s)", e.Part, strings.Join(parts, " -> "))
}

// UnknownWorkOrderError reports a work order that does not exist or is
// cancelled.
type UnknownWorkOrderError struct {
	WorkOrderID string
	Cancelled   bool
}

func (e *UnknownWorkOrderError) Error() string {
	if e.Cancelled {
		return fmt.Sprintf("work order %s is cancelled", e.WorkOrderID)
	}
	return fmt.Sprintf("unknown work order %s", e.WorkOrderID)
}

// UnknownStageError reports an assembly stage not defined on the work
// order's routing.
type UnknownStageError struct {
	WorkOrderID string
	Stage       string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("stage %q is not on the routing of work order %s", e.Stage, e.WorkOrderID)
}

// UnknownKitError reports a kit identifier with no stored kit.
type UnknownKitError struct {
	KitID string
}

func (e *UnknownKitError) Error() string {
	return fmt.Sprintf("unknown kit %s", e.KitID)
}

// AvailabilityUnknownError reports that the inventory source could not be
// read for a part. Availability is unknown, not zero; callers degrade to a
// provisional shortage and re-check later.
type AvailabilityUnknownError struct {
	Part  PartNumber
	Cause error
}

func (e *AvailabilityUnknownError) Error() string {
	return fmt.Sprintf("availability unknown for part %s: %v", e.Part, e.Cause)
}

func (e *AvailabilityUnknownError) Unwrap() error {
	return e.Cause
}

// NoCapacityAvailableError reports that no staging location could take the
// kit: a shortage of staging capacity, distinct from a material shortage.
type NoCapacityAvailableError struct {
	Required   Quantity
	Attributes []LocationAttribute
	Attempts   int
}

func (e *NoCapacityAvailableError) Error() string {
	return fmt.Sprintf("no staging location with capacity %s for attributes %v after %d attempts",
		e.Required, e.Attributes, e.Attempts)
}

// InvalidTransitionError reports an illegal kit state transition. It is a
// usage error at the call site and is never coerced into a valid transition.
type InvalidTransitionError struct {
	KitID string
	From  KitStatus
	To    KitStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("kit %s: invalid transition %s -> %s", e.KitID, e.From, e.To)
}

// BlockingShortageError reports a transition guard failure: the kit cannot
// leave Planned while a blocking shortage is open.
type BlockingShortageError struct {
	KitID string
	Parts []PartNumber
}

func (e *BlockingShortageError) Error() string {
	return fmt.Sprintf("kit %s has blocking shortages for parts %v", e.KitID, e.Parts)
}

// IncompleteKitError reports a Staging → Staged guard failure naming the
// items still short, unscanned, or in exception.
type IncompleteKitError struct {
	KitID string
	Parts []PartNumber
}

func (e *IncompleteKitError) Error() string {
	return fmt.Sprintf("kit %s is not fully staged; open items %v", e.KitID, e.Parts)
}

// ConflictError signals a lost race on a kit or location. It is retryable:
// the caller re-fetches state and retries once, unlike hard failures.
type ConflictError struct {
	Resource string
	ID       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent update conflict on %s %s", e.Resource, e.ID)
}

// IsRetryableConflict reports whether err is a lost-race conflict rather
// than a hard failure.
func IsRetryableConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}
