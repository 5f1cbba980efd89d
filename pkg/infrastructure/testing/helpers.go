// Package testing provides scenario builders for the test suites: an
// in-memory world of work orders, BOMs, stock, locations and a fully wired
// kitting service.
package testing

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/machshop/kitting/pkg/application/services/allocation"
	"github.com/machshop/kitting/pkg/application/services/availability"
	"github.com/machshop/kitting/pkg/application/services/explosion"
	"github.com/machshop/kitting/pkg/application/services/kitting"
	"github.com/machshop/kitting/pkg/application/services/ledger"
	"github.com/machshop/kitting/pkg/application/services/shortage"
	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/infrastructure/events"
	"github.com/machshop/kitting/pkg/infrastructure/repositories/memory"
)

// Scenario is an in-memory world for exercising the engine end to end.
type Scenario struct {
	WorkOrders   *memory.WorkOrderRepository
	BOMs         *memory.BOMRepository
	Parts        *memory.PartRepository
	Inventory    *memory.InventoryGateway
	Kits         *memory.KitRepository
	Locations    *memory.LocationRepository
	Reservations *memory.ReservationRepository
	Shortages    *memory.ShortageRepository
	Events       *events.InMemoryEventStore
	Log          *slog.Logger
}

// NewScenario creates an empty scenario.
func NewScenario() *Scenario {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Scenario{
		WorkOrders:   memory.NewWorkOrderRepository(),
		BOMs:         memory.NewBOMRepository(),
		Parts:        memory.NewPartRepository(),
		Inventory:    memory.NewInventoryGateway(),
		Kits:         memory.NewKitRepository(),
		Locations:    memory.NewLocationRepository(),
		Reservations: memory.NewReservationRepository(),
		Shortages:    memory.NewShortageRepository(),
		Events:       events.NewInMemoryEventStore(log),
		Log:          log,
	}
}

// AddPart registers a part with the given lead time.
func (s *Scenario) AddPart(pn string, leadTimeDays int) *Scenario {
	_ = s.Parts.LoadParts([]*entities.Part{{
		PartNumber:    entities.PartNumber(pn),
		UnitOfMeasure: "EA",
		LeadTimeDays:  leadTimeDays,
	}})
	return s
}

// AddStockedSubassembly registers a part kitted from stock as a unit.
func (s *Scenario) AddStockedSubassembly(pn string, leadTimeDays int) *Scenario {
	_ = s.Parts.LoadParts([]*entities.Part{{
		PartNumber:         entities.PartNumber(pn),
		UnitOfMeasure:      "EA",
		LeadTimeDays:       leadTimeDays,
		StockedSubassembly: true,
	}})
	return s
}

// AddSubstituteGroup registers parts sharing a substitution group, in
// approval order.
func (s *Scenario) AddSubstituteGroup(group string, leadTimeDays int, pns ...string) *Scenario {
	parts := make([]*entities.Part, 0, len(pns))
	for _, pn := range pns {
		parts = append(parts, &entities.Part{
			PartNumber:        entities.PartNumber(pn),
			UnitOfMeasure:     "EA",
			LeadTimeDays:      leadTimeDays,
			SubstitutionGroup: group,
		})
	}
	_ = s.Parts.LoadParts(parts)
	return s
}

// AddBOMLine adds parent -> child with an integer quantity-per at stage.
func (s *Scenario) AddBOMLine(parent, child string, qtyPer int64, stage int) *Scenario {
	s.BOMs.AddBOMLine(entities.BOMLine{
		ParentPN:       entities.PartNumber(parent),
		ChildPN:        entities.PartNumber(child),
		QtyPer:         entities.Qty(qtyPer),
		UnitOfMeasure:  "EA",
		EffectiveStage: stage,
	})
	return s
}

// AddPhantomLine adds a phantom parent -> child line at stage.
func (s *Scenario) AddPhantomLine(parent, child string, qtyPer int64, stage int) *Scenario {
	s.BOMs.AddBOMLine(entities.BOMLine{
		ParentPN:       entities.PartNumber(parent),
		ChildPN:        entities.PartNumber(child),
		QtyPer:         entities.Qty(qtyPer),
		UnitOfMeasure:  "EA",
		EffectiveStage: stage,
		Phantom:        true,
	})
	return s
}

// AddWorkOrder registers a work order due in dueInDays with the routing
// stages given in order (sequence 10, 20, ...).
func (s *Scenario) AddWorkOrder(id, topPart string, qty int64, dueInDays int, stages ...string) *Scenario {
	routing := make([]entities.AssemblyStage, 0, len(stages))
	for i, name := range stages {
		routing = append(routing, entities.AssemblyStage{Name: name, Sequence: (i + 1) * 10})
	}
	_ = s.WorkOrders.LoadWorkOrders([]*entities.WorkOrder{{
		ID:           id,
		TopLevelPart: entities.PartNumber(topPart),
		Quantity:     entities.Qty(qty),
		Routing:      routing,
		DueDate:      time.Now().UTC().AddDate(0, 0, dueInDays),
	}})
	return s
}

// AddStock sets on-hand stock for a part.
func (s *Scenario) AddStock(pn string, onHand int64) *Scenario {
	s.Inventory.SetStock(entities.StockLevels{
		Part:   entities.PartNumber(pn),
		OnHand: entities.Qty(onHand),
	})
	return s
}

// AddStockLevels sets full stock levels for a part.
func (s *Scenario) AddStockLevels(pn string, onHand, reserved, inTransit int64) *Scenario {
	s.Inventory.SetStock(entities.StockLevels{
		Part:      entities.PartNumber(pn),
		OnHand:    entities.Qty(onHand),
		Reserved:  entities.Qty(reserved),
		InTransit: entities.Qty(inTransit),
	})
	return s
}

// AddLocation registers an empty Available location.
func (s *Scenario) AddLocation(id string, capacity int64, proximity int, attrs ...entities.LocationAttribute) *Scenario {
	_ = s.Locations.SaveLocation(context.Background(), &entities.StagingLocation{
		ID:         id,
		Capacity:   entities.Qty(capacity),
		Occupancy:  entities.Qty(0),
		Attributes: attrs,
		Status:     entities.LocationAvailable,
		Proximity:  proximity,
	})
	return s
}

// Resolver builds a BOM explosion resolver over the scenario.
func (s *Scenario) Resolver() *explosion.Resolver {
	return explosion.NewResolver(s.WorkOrders, s.BOMs, s.Parts)
}

// Checker builds an availability checker with the given policy.
func (s *Scenario) Checker(policy availability.Policy) *availability.Checker {
	return availability.NewChecker(s.Inventory, s.Reservations, policy, s.Log)
}

// Ledger builds a reservation ledger over the scenario.
func (s *Scenario) Ledger() *ledger.Ledger {
	return ledger.NewLedger(s.Reservations, s.Inventory, s.Locations, s.Events, s.Log)
}

// Service wires the full kitting service with default policies.
func (s *Scenario) Service() *kitting.Service {
	return s.ServiceWithPolicy(availability.DefaultPolicy())
}

// ServiceWithPolicy wires the full kitting service with a custom
// availability policy.
func (s *Scenario) ServiceWithPolicy(policy availability.Policy) *kitting.Service {
	return kitting.NewService(kitting.Deps{
		Kits:       s.Kits,
		WorkOrders: s.WorkOrders,
		Parts:      s.Parts,
		Locations:  s.Locations,
		Shortages:  s.Shortages,
		Resolver:   s.Resolver(),
		Checker:    s.Checker(policy),
		Detector:   shortage.NewDetector(),
		Allocator:  allocation.NewAllocator(s.Locations, allocation.Config{}, s.Log),
		Ledger:     s.Ledger(),
		Events:     s.Events,
		Log:        s.Log,
	})
}
