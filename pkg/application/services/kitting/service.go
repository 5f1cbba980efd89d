// Package kitting owns the kit lifecycle: it creates kits from work orders,
// drives them through Planned → Staging → Staged → Issued → Consumed with
// the OnHold detour and Cancelled exit, and emits the events the status
// board and alerting collaborators subscribe to.
package kitting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/machshop/kitting/pkg/application/services/allocation"
	"github.com/machshop/kitting/pkg/application/services/availability"
	"github.com/machshop/kitting/pkg/application/services/explosion"
	"github.com/machshop/kitting/pkg/application/services/ledger"
	"github.com/machshop/kitting/pkg/application/services/shortage"
	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
	"github.com/machshop/kitting/pkg/infrastructure/events"
)

// Deps wires the service's collaborators.
type Deps struct {
	Kits       repositories.KitRepository
	WorkOrders repositories.WorkOrderRepository
	Parts      repositories.PartRepository
	Locations  repositories.LocationRepository
	Shortages  repositories.ShortageRepository
	Resolver   *explosion.Resolver
	Checker    *availability.Checker
	Detector   *shortage.Detector
	Allocator  *allocation.Allocator
	Ledger     *ledger.Ledger
	Events     events.EventStore
	Log        *slog.Logger
}

// Service is the kit state machine and lifecycle orchestrator.
//
// Long-running reads (BOM explosion, availability checks) run without any
// lock; only the final commit of a transition holds the kit's mutex. When a
// transition also touches a staging location, the location's occupancy is
// committed first (inside the allocator's atomic increment) and the kit
// second, consistently, so two kits racing for one location cannot deadlock.
type Service struct {
	kits       repositories.KitRepository
	workOrders repositories.WorkOrderRepository
	parts      repositories.PartRepository
	locations  repositories.LocationRepository
	shortages  repositories.ShortageRepository
	resolver   *explosion.Resolver
	checker    *availability.Checker
	detector   *shortage.Detector
	allocator  *allocation.Allocator
	ledger     *ledger.Ledger
	store      events.EventStore
	locks      *kitLocks
	log        *slog.Logger
}

// NewService creates the kit lifecycle service.
func NewService(deps Deps) *Service {
	return &Service{
		kits:       deps.Kits,
		workOrders: deps.WorkOrders,
		parts:      deps.Parts,
		locations:  deps.Locations,
		shortages:  deps.Shortages,
		resolver:   deps.Resolver,
		checker:    deps.Checker,
		detector:   deps.Detector,
		allocator:  deps.Allocator,
		ledger:     deps.Ledger,
		store:      deps.Events,
		locks:      newKitLocks(),
		log:        deps.Log,
	}
}

// CreateKit explodes the work order's BOM for the stage, evaluates
// availability and shortages, and creates the kit in Planned. Open Major
// shortages do not prevent creation; they are carried on the kit for the
// coordinator to act on.
func (s *Service) CreateKit(ctx context.Context, workOrderID, stage, actor string) (*entities.Kit, []entities.ShortageRecord, error) {
	wo, err := s.workOrders.GetWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, nil, err
	}

	lines, err := s.resolver.Explode(ctx, workOrderID, stage)
	if err != nil {
		return nil, nil, err
	}

	avail, err := s.checker.Check(ctx, lines, "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check availability for work order %s: %w", workOrderID, err)
	}

	records := s.detector.Detect(lines, avail, wo)

	id, err := s.kits.NextKitID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to allocate kit id: %w", err)
	}

	items := make([]entities.KitItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, entities.KitItem{
			Part:          line.Part,
			Required:      line.Quantity,
			Confirmed:     entities.Qty(0),
			UnitOfMeasure: line.UnitOfMeasure,
			Substitutes:   line.Substitutes,
		})
	}

	kit := &entities.Kit{
		ID:        id,
		WorkOrder: workOrderID,
		Stage:     stage,
		Priority:  wo.Priority,
		DueDate:   wo.DueDate,
		Status:    entities.KitPlanned,
		Items:     items,
		Shortages: shortage.Summarize(records),
		CreatedAt: time.Now().UTC(),
	}

	for i := range records {
		records[i].Kits = []string{id}
	}

	if err := s.kits.SaveKit(ctx, kit); err != nil {
		return nil, nil, fmt.Errorf("failed to save kit %s: %w", id, err)
	}
	if err := s.shortages.ReplaceForKit(ctx, id, workOrderID, records); err != nil {
		return nil, nil, fmt.Errorf("failed to save shortage records for kit %s: %w", id, err)
	}

	_ = s.store.Append(id, events.NewKitCreatedEvent(*kit, records))

	s.log.Info("kit created",
		slog.String("kit", id),
		slog.String("work_order", workOrderID),
		slog.String("stage", stage),
		slog.Int("items", len(items)),
		slog.Int("shortages", len(records)),
		slog.String("actor", actor),
	)

	return kit, records, nil
}

// StartStaging allocates a staging location, books reservations, and moves
// the kit from Planned to Staging. Open Major shortages are allowed; a
// Blocking shortage at transition time rejects the call. On any failure
// after the location was occupied, everything already committed is released
// again so an interrupted attempt leaves no orphaned capacity.
func (s *Service) StartStaging(
	ctx context.Context,
	kitID string,
	required []entities.LocationAttribute,
	capacity entities.Quantity,
	actor string,
) (*entities.Kit, error) {
	// Read-only phase: no locks held.
	kit, err := s.kits.GetKit(ctx, kitID)
	if err != nil {
		return nil, err
	}
	if !entities.CanTransition(kit.Status, entities.KitStaging) || kit.Status == entities.KitOnHold {
		return nil, &entities.InvalidTransitionError{KitID: kitID, From: kit.Status, To: entities.KitStaging}
	}

	wo, err := s.workOrders.GetWorkOrder(ctx, kit.WorkOrder)
	if err != nil {
		return nil, err
	}
	lines, err := s.resolver.Explode(ctx, kit.WorkOrder, kit.Stage)
	if err != nil {
		return nil, err
	}
	avail, err := s.checker.Check(ctx, lines, kitID)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability for kit %s: %w", kitID, err)
	}
	records := s.detector.Detect(lines, avail, wo)
	if blocked := blockingParts(records); len(blocked) > 0 {
		return nil, &entities.BlockingShortageError{KitID: kitID, Parts: blocked}
	}

	// Commit phase: location first, then the kit section.
	loc, err := s.allocator.Allocate(ctx, kit, required, capacity)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(kitID)
	defer unlock()

	// Re-read under the lock; a concurrent transition loses here, not at
	// the repository.
	kit, err = s.kits.GetKit(ctx, kitID)
	if err != nil {
		s.releaseLocation(ctx, kitID, loc.ID, capacity)
		return nil, err
	}
	if kit.Status != entities.KitPlanned {
		s.releaseLocation(ctx, kitID, loc.ID, capacity)
		return nil, &entities.ConflictError{Resource: "kit", ID: kitID}
	}

	if _, err := s.ledger.BookLocation(ctx, kit, loc.ID, capacity); err != nil {
		s.releaseLocation(ctx, kitID, loc.ID, capacity)
		return nil, err
	}
	if _, err := s.ledger.BookInventory(ctx, kit, avail); err != nil {
		// Releases the location hold booked above as well.
		if relErr := s.ledger.ReleaseKit(ctx, kitID); relErr != nil {
			s.log.Error("failed to release reservations after aborted staging",
				slog.String("kit", kitID), slog.String("error", relErr.Error()))
		}
		return nil, err
	}

	from := kit.Status
	if err := kit.Transition(entities.KitStaging); err != nil {
		return nil, err
	}
	kit.LocationID = loc.ID

	for i := range records {
		records[i].Kits = []string{kitID}
	}
	kit.Shortages = shortage.Summarize(records)

	if err := s.kits.UpdateKit(ctx, kit); err != nil {
		return nil, fmt.Errorf("failed to update kit %s: %w", kitID, err)
	}
	if err := s.shortages.ReplaceForKit(ctx, kitID, kit.WorkOrder, records); err != nil {
		return nil, fmt.Errorf("failed to save shortage records for kit %s: %w", kitID, err)
	}

	_ = s.store.Append(loc.ID, events.NewLocationAllocatedEvent(kitID, loc.ID, capacity))
	_ = s.store.Append(kitID, events.NewKitStatusChangedEvent(kitID, from, kit.Status, actor))

	s.log.Info("kit staging started",
		slog.String("kit", kitID),
		slog.String("location", loc.ID),
		slog.String("actor", actor),
	)

	return kit, nil
}

// RecordScan applies an operator scan to a kit item. A Damaged or
// Questionable condition puts the item into exception; it must be resolved
// by a coordinator before the kit can reach Staged.
func (s *Service) RecordScan(
	ctx context.Context,
	kitID string,
	part entities.PartNumber,
	qty entities.Quantity,
	condition entities.ConditionCode,
	actor string,
) (*entities.Kit, error) {
	unlock := s.locks.Lock(kitID)
	defer unlock()

	kit, err := s.kits.GetKit(ctx, kitID)
	if err != nil {
		return nil, err
	}
	if kit.Status != entities.KitStaging {
		return nil, fmt.Errorf("kit %s accepts scans only while Staging, status is %s", kitID, kit.Status)
	}

	item := kit.Item(part)
	if item == nil {
		return nil, fmt.Errorf("part %s is not on kit %s", part, kitID)
	}

	switch condition {
	case entities.ConditionGood:
		confirmed := item.Confirmed.Add(qty)
		if confirmed.Cmp(item.Required) > 0 {
			return nil, fmt.Errorf("kit %s part %s: confirming %s would exceed required %s",
				kitID, part, confirmed, item.Required)
		}
		item.Confirmed = confirmed
		item.Condition = entities.ConditionGood

	case entities.ConditionDamaged, entities.ConditionQuestionable:
		item.Condition = condition
		item.Exception = true

	default:
		return nil, fmt.Errorf("kit %s part %s: invalid scan condition %s", kitID, part, condition)
	}

	if err := s.kits.UpdateKit(ctx, kit); err != nil {
		return nil, fmt.Errorf("failed to update kit %s: %w", kitID, err)
	}

	_ = s.store.Append(kitID, events.NewKitItemScannedEvent(kitID, part, qty, condition, actor))

	return kit, nil
}

// ResolveException clears an open Damaged/Questionable exception after
// coordinator resolution. The condition resets to Good when quantity was
// already confirmed, otherwise to Unscanned for a re-scan.
func (s *Service) ResolveException(ctx context.Context, kitID string, part entities.PartNumber, actor string) (*entities.Kit, error) {
	unlock := s.locks.Lock(kitID)
	defer unlock()

	kit, err := s.kits.GetKit(ctx, kitID)
	if err != nil {
		return nil, err
	}
	item := kit.Item(part)
	if item == nil {
		return nil, fmt.Errorf("part %s is not on kit %s", part, kitID)
	}
	if !item.Exception {
		return nil, fmt.Errorf("kit %s part %s has no open exception", kitID, part)
	}

	item.Exception = false
	if item.Confirmed.IsPositive() {
		item.Condition = entities.ConditionGood
	} else {
		item.Condition = entities.ConditionUnscanned
	}

	if err := s.kits.UpdateKit(ctx, kit); err != nil {
		return nil, fmt.Errorf("failed to update kit %s: %w", kitID, err)
	}

	s.log.Info("kit item exception resolved",
		slog.String("kit", kitID),
		slog.String("part", string(part)),
		slog.String("actor", actor),
	)

	return kit, nil
}

// CompleteStaging moves the kit from Staging to Staged once every item is
// fully confirmed in Good condition with no open exceptions.
func (s *Service) CompleteStaging(ctx context.Context, kitID, actor string) (*entities.Kit, error) {
	unlock := s.locks.Lock(kitID)
	defer unlock()

	kit, err := s.kits.GetKit(ctx, kitID)
	if err != nil {
		return nil, err
	}

	if !kit.ReadyToStage() {
		var open []entities.PartNumber
		for i := range kit.Items {
			if !kit.Items[i].Complete() {
				open = append(open, kit.Items[i].Part)
			}
		}
		if kit.Status != entities.KitStaging {
			return nil, &entities.InvalidTransitionError{KitID: kitID, From: kit.Status, To: entities.KitStaged}
		}
		return nil, &entities.IncompleteKitError{KitID: kitID, Parts: open}
	}

	from := kit.Status
	if err := kit.Transition(entities.KitStaged); err != nil {
		return nil, err
	}
	kit.StagedAt = time.Now().UTC()

	if err := s.kits.UpdateKit(ctx, kit); err != nil {
		return nil, fmt.Errorf("failed to update kit %s: %w", kitID, err)
	}

	_ = s.store.Append(kitID, events.NewKitStatusChangedEvent(kitID, from, kit.Status, actor))

	s.log.Info("kit staged", slog.String("kit", kitID), slog.String("actor", actor))

	return kit, nil
}

// Issue releases the kit to the shop floor on the production workflow's
// explicit trigger: reservations become committed consumption and the
// staging capacity is freed.
func (s *Service) Issue(ctx context.Context, kitID, actor string) (*entities.Kit, error) {
	unlock := s.locks.Lock(kitID)
	defer unlock()

	kit, err := s.kits.GetKit(ctx, kitID)
	if err != nil {
		return nil, err
	}

	from := kit.Status
	if err := kit.Transition(entities.KitIssued); err != nil {
		return nil, err
	}

	if err := s.ledger.ConsumeKit(ctx, kitID); err != nil {
		return nil, err
	}
	kit.IssuedAt = time.Now().UTC()

	if err := s.kits.UpdateKit(ctx, kit); err != nil {
		return nil, fmt.Errorf("failed to update kit %s: %w", kitID, err)
	}

	_ = s.store.Append(kitID, events.NewKitStatusChangedEvent(kitID, from, kit.Status, actor))

	s.log.Info("kit issued", slog.String("kit", kitID), slog.String("actor", actor))

	return kit, nil
}

// MarkConsumed records the shop floor's confirmation that the kit's
// material was consumed. Terminal.
func (s *Service) MarkConsumed(ctx context.Context, kitID, actor string) (*entities.Kit, error) {
	return s.simpleTransition(ctx, kitID, entities.KitConsumed, actor)
}

// Hold parks a Staging or Staged kit. Location and inventory reservations
// are preserved so the kit resumes without losing its place.
func (s *Service) Hold(ctx context.Context, kitID, reason, actor string) (*entities.Kit, error) {
	kit, err := s.simpleTransition(ctx, kitID, entities.KitOnHold, actor)
	if err != nil {
		return nil, err
	}
	s.log.Info("kit held",
		slog.String("kit", kitID),
		slog.String("reason", reason),
		slog.String("actor", actor),
	)
	return kit, nil
}

// Resume returns an OnHold kit to the status it was holding from.
func (s *Service) Resume(ctx context.Context, kitID, actor string) (*entities.Kit, error) {
	unlock := s.locks.Lock(kitID)
	defer unlock()

	kit, err := s.kits.GetKit(ctx, kitID)
	if err != nil {
		return nil, err
	}
	if kit.Status != entities.KitOnHold {
		return nil, &entities.InvalidTransitionError{KitID: kitID, From: kit.Status, To: kit.ResumeTo}
	}

	from := kit.Status
	if err := kit.Transition(kit.ResumeTo); err != nil {
		return nil, err
	}

	if err := s.kits.UpdateKit(ctx, kit); err != nil {
		return nil, fmt.Errorf("failed to update kit %s: %w", kitID, err)
	}

	_ = s.store.Append(kitID, events.NewKitStatusChangedEvent(kitID, from, kit.Status, actor))

	return kit, nil
}

// Cancel terminates the kit from any non-terminal state and returns its
// inventory holds and staging capacity to their pools.
func (s *Service) Cancel(ctx context.Context, kitID, actor string) (*entities.Kit, error) {
	unlock := s.locks.Lock(kitID)
	defer unlock()

	kit, err := s.kits.GetKit(ctx, kitID)
	if err != nil {
		return nil, err
	}

	from := kit.Status
	if err := kit.Transition(entities.KitCancelled); err != nil {
		return nil, err
	}

	if err := s.ledger.ReleaseKit(ctx, kitID); err != nil {
		return nil, err
	}
	kit.LocationID = ""

	if err := s.kits.UpdateKit(ctx, kit); err != nil {
		return nil, fmt.Errorf("failed to update kit %s: %w", kitID, err)
	}

	_ = s.store.Append(kitID, events.NewKitStatusChangedEvent(kitID, from, kit.Status, actor))

	s.log.Info("kit cancelled", slog.String("kit", kitID), slog.String("actor", actor))

	return kit, nil
}

// RefreshShortages recomputes the shortage report for an open kit from a
// fresh availability read. A newly detected blocking shortage puts a
// Staging kit on hold; reservations are preserved.
func (s *Service) RefreshShortages(ctx context.Context, kitID string) ([]entities.ShortageRecord, error) {
	// The availability read runs lock-free; only the commit below holds
	// the kit lock.
	kit, err := s.kits.GetKit(ctx, kitID)
	if err != nil {
		return nil, err
	}
	if kit.Status.Terminal() {
		return nil, nil
	}

	wo, err := s.workOrders.GetWorkOrder(ctx, kit.WorkOrder)
	if err != nil {
		return nil, err
	}

	lines, err := s.openLines(ctx, kit)
	if err != nil {
		return nil, err
	}
	avail, err := s.checker.Check(ctx, lines, kitID)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability for kit %s: %w", kitID, err)
	}
	records := s.detector.Detect(lines, avail, wo)
	for i := range records {
		records[i].Kits = []string{kitID}
	}

	unlock := s.locks.Lock(kitID)
	defer unlock()

	kit, err = s.kits.GetKit(ctx, kitID)
	if err != nil {
		return nil, err
	}
	if kit.Status.Terminal() {
		return nil, nil
	}

	summary := shortage.Summarize(records)
	changed := summary != kit.Shortages
	kit.Shortages = summary

	escalated := false
	if summary.Blocking > 0 && kit.Status == entities.KitStaging {
		from := kit.Status
		if err := kit.Transition(entities.KitOnHold); err == nil {
			escalated = true
			defer func() {
				_ = s.store.Append(kitID, events.NewKitStatusChangedEvent(kitID, from, entities.KitOnHold, "shortage-escalation"))
			}()
		}
	}

	if err := s.kits.UpdateKit(ctx, kit); err != nil {
		return nil, fmt.Errorf("failed to update kit %s: %w", kitID, err)
	}
	if err := s.shortages.ReplaceForKit(ctx, kitID, kit.WorkOrder, records); err != nil {
		return nil, fmt.Errorf("failed to save shortage records for kit %s: %w", kitID, err)
	}

	if changed {
		_ = s.store.Append(kitID, events.NewKitShortageChangedEvent(kitID, summary, records))
	}
	if escalated {
		s.log.Warn("kit held on shortage escalation", slog.String("kit", kitID))
	}

	return records, nil
}

// GetKit returns a kit by id.
func (s *Service) GetKit(ctx context.Context, kitID string) (*entities.Kit, error) {
	return s.kits.GetKit(ctx, kitID)
}

// ListKitsByWorkOrder returns the kits created for a work order.
func (s *Service) ListKitsByWorkOrder(ctx context.Context, workOrderID string) ([]*entities.Kit, error) {
	return s.kits.ListKitsByWorkOrder(ctx, workOrderID)
}

// openLines rebuilds required lines from the kit's remaining shortfall.
func (s *Service) openLines(ctx context.Context, kit *entities.Kit) ([]entities.RequiredLine, error) {
	var lines []entities.RequiredLine
	for i := range kit.Items {
		item := &kit.Items[i]
		short := item.Short()
		if !short.IsPositive() {
			continue
		}

		part, err := s.parts.GetPart(ctx, item.Part)
		if err != nil {
			return nil, fmt.Errorf("failed to get part %s: %w", item.Part, err)
		}

		lines = append(lines, entities.RequiredLine{
			Part:          item.Part,
			Quantity:      short,
			UnitOfMeasure: item.UnitOfMeasure,
			LeadTimeDays:  part.LeadTimeDays,
			Substitutes:   item.Substitutes,
		})
	}
	return lines, nil
}

// simpleTransition applies a guarded status change with no reservation side
// effects.
func (s *Service) simpleTransition(ctx context.Context, kitID string, to entities.KitStatus, actor string) (*entities.Kit, error) {
	unlock := s.locks.Lock(kitID)
	defer unlock()

	kit, err := s.kits.GetKit(ctx, kitID)
	if err != nil {
		return nil, err
	}

	from := kit.Status
	if err := kit.Transition(to); err != nil {
		return nil, err
	}

	if err := s.kits.UpdateKit(ctx, kit); err != nil {
		return nil, fmt.Errorf("failed to update kit %s: %w", kitID, err)
	}

	_ = s.store.Append(kitID, events.NewKitStatusChangedEvent(kitID, from, kit.Status, actor))

	return kit, nil
}

// releaseLocation returns occupied capacity after an aborted staging
// attempt.
func (s *Service) releaseLocation(ctx context.Context, kitID, locationID string, capacity entities.Quantity) {
	if err := s.locations.Release(ctx, locationID, capacity); err != nil {
		s.log.Error("failed to release staging capacity after aborted allocation",
			slog.String("kit", kitID),
			slog.String("location", locationID),
			slog.String("error", err.Error()),
		)
	}
}

func blockingParts(records []entities.ShortageRecord) []entities.PartNumber {
	var blocked []entities.PartNumber
	for _, r := range records {
		if r.Severity == entities.SeverityBlocking {
			blocked = append(blocked, r.Part)
		}
	}
	return blocked
}
