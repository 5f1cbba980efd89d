package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/machshop/kitting/pkg/application/services/availability"
	"github.com/machshop/kitting/pkg/domain/entities"
	enginetest "github.com/machshop/kitting/pkg/infrastructure/testing"
)

func availabilityOf(snaps ...entities.InventorySnapshot) *availability.Result {
	result := &availability.Result{
		TakenAt:   time.Now().UTC(),
		Snapshots: make(map[entities.PartNumber]entities.InventorySnapshot, len(snaps)),
	}
	for _, snap := range snaps {
		result.Snapshots[snap.Part] = snap
	}
	return result
}

func knownNet(pn string, net int64) entities.InventorySnapshot {
	return entities.InventorySnapshot{
		Part:         entities.PartNumber(pn),
		OnHand:       entities.Qty(net),
		NetAvailable: entities.Qty(net),
	}
}

func kitWithItems(items ...entities.KitItem) *entities.Kit {
	return &entities.Kit{ID: "KIT-000001", Status: entities.KitPlanned, Items: items}
}

func TestBookInventoryCapsAtNetAvailable(t *testing.T) {
	s := enginetest.NewScenario().AddStock("P-1", 6)
	kit := kitWithItems(entities.KitItem{Part: "P-1", Required: entities.Qty(10)})

	booked, err := s.Ledger().BookInventory(context.Background(), kit, availabilityOf(knownNet("P-1", 6)))
	if err != nil {
		t.Fatalf("BookInventory failed: %v", err)
	}

	if len(booked) != 1 {
		t.Fatalf("expected 1 reservation, got %d", len(booked))
	}
	if !booked[0].Quantity.Equal(entities.Qty(6)) {
		t.Errorf("expected the hold capped at 6, got %s", booked[0].Quantity)
	}

	stock, _ := s.Inventory.GetStock(context.Background(), "P-1")
	if !stock.Reserved.Equal(entities.Qty(6)) {
		t.Errorf("expected reserved 6 at the gateway, got %s", stock.Reserved)
	}
}

func TestBookInventorySkipsUnknownParts(t *testing.T) {
	s := enginetest.NewScenario()
	kit := kitWithItems(entities.KitItem{Part: "P-1", Required: entities.Qty(10)})

	booked, err := s.Ledger().BookInventory(context.Background(), kit, availabilityOf())
	if err != nil {
		t.Fatalf("BookInventory failed: %v", err)
	}
	if len(booked) != 0 {
		t.Errorf("expected no holds for unknown availability, got %d", len(booked))
	}
}

func TestBookInventoryRejectsStaleSnapshot(t *testing.T) {
	s := enginetest.NewScenario().AddStock("P-1", 10)
	ledger := s.Ledger()
	ctx := context.Background()

	// Both kits hold a snapshot taken before either booked.
	snapshot := availabilityOf(knownNet("P-1", 10))

	first := kitWithItems(entities.KitItem{Part: "P-1", Required: entities.Qty(10)})
	if _, err := ledger.BookInventory(ctx, first, snapshot); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	second := &entities.Kit{ID: "KIT-000002", Status: entities.KitPlanned,
		Items: []entities.KitItem{{Part: "P-1", Required: entities.Qty(10)}}}
	_, err := ledger.BookInventory(ctx, second, snapshot)
	if !entities.IsRetryableConflict(err) {
		t.Fatalf("expected a retryable conflict for the stale snapshot, got %v", err)
	}

	// Active reservations never exceed on-hand.
	stock, _ := s.Inventory.GetStock(ctx, "P-1")
	if stock.Reserved.Cmp(stock.OnHand) > 0 {
		t.Errorf("reserved %s exceeds on-hand %s", stock.Reserved, stock.OnHand)
	}
	reservations, _ := s.Reservations.ListByKit(ctx, second.ID)
	for _, r := range reservations {
		if r.State == entities.ReservationActive {
			t.Errorf("the losing kit must hold no active reservations, found %s", r.ID)
		}
	}
}

func TestBookInventoryRollsBackOnConflict(t *testing.T) {
	s := enginetest.NewScenario().AddStock("P-1", 5).AddStock("P-2", 10)
	ledger := s.Ledger()
	ctx := context.Background()

	// The second line's snapshot is stale: P-2 was fully booked elsewhere.
	other := &entities.Kit{ID: "KIT-000009", Status: entities.KitPlanned,
		Items: []entities.KitItem{{Part: "P-2", Required: entities.Qty(10)}}}
	if _, err := ledger.BookInventory(ctx, other, availabilityOf(knownNet("P-2", 10))); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	kit := kitWithItems(
		entities.KitItem{Part: "P-1", Required: entities.Qty(5)},
		entities.KitItem{Part: "P-2", Required: entities.Qty(10)},
	)
	_, err := ledger.BookInventory(ctx, kit, availabilityOf(knownNet("P-1", 5), knownNet("P-2", 10)))
	if !entities.IsRetryableConflict(err) {
		t.Fatalf("expected a retryable conflict, got %v", err)
	}

	// The P-1 hold created before the conflict is rolled back.
	stock, _ := s.Inventory.GetStock(ctx, "P-1")
	if !stock.Reserved.Equal(entities.Qty(0)) {
		t.Errorf("expected P-1 reserved 0 after rollback, got %s", stock.Reserved)
	}
}

func TestReleaseKitReturnsStockToThePool(t *testing.T) {
	s := enginetest.NewScenario().AddStock("P-1", 10)
	ledger := s.Ledger()
	ctx := context.Background()
	kit := kitWithItems(entities.KitItem{Part: "P-1", Required: entities.Qty(4)})

	if _, err := ledger.BookInventory(ctx, kit, availabilityOf(knownNet("P-1", 10))); err != nil {
		t.Fatalf("BookInventory failed: %v", err)
	}
	if err := ledger.ReleaseKit(ctx, kit.ID); err != nil {
		t.Fatalf("ReleaseKit failed: %v", err)
	}

	stock, _ := s.Inventory.GetStock(ctx, "P-1")
	if !stock.OnHand.Equal(entities.Qty(10)) || !stock.Reserved.Equal(entities.Qty(0)) {
		t.Errorf("expected stock fully returned, got on-hand %s reserved %s", stock.OnHand, stock.Reserved)
	}

	reservations, _ := s.Reservations.ListByKit(ctx, kit.ID)
	for _, r := range reservations {
		if r.State != entities.ReservationReleased {
			t.Errorf("reservation %s: expected Released, got %s", r.ID, r.State)
		}
		if r.ClosedAt.IsZero() {
			t.Errorf("reservation %s: expected a close timestamp", r.ID)
		}
	}
}

func TestConsumeKitCommitsConsumption(t *testing.T) {
	s := enginetest.NewScenario().AddStock("P-1", 10)
	ledger := s.Ledger()
	ctx := context.Background()
	kit := kitWithItems(entities.KitItem{Part: "P-1", Required: entities.Qty(4)})

	if _, err := ledger.BookInventory(ctx, kit, availabilityOf(knownNet("P-1", 10))); err != nil {
		t.Fatalf("BookInventory failed: %v", err)
	}
	if err := ledger.ConsumeKit(ctx, kit.ID); err != nil {
		t.Fatalf("ConsumeKit failed: %v", err)
	}

	stock, _ := s.Inventory.GetStock(ctx, "P-1")
	if !stock.OnHand.Equal(entities.Qty(6)) || !stock.Reserved.Equal(entities.Qty(0)) {
		t.Errorf("expected on-hand 6 reserved 0, got on-hand %s reserved %s", stock.OnHand, stock.Reserved)
	}

	reservations, _ := s.Reservations.ListByKit(ctx, kit.ID)
	if len(reservations) != 1 || reservations[0].State != entities.ReservationConsumed {
		t.Errorf("expected a single Consumed reservation, got %v", reservations)
	}
}

func TestReleaseKitFreesLocationCapacity(t *testing.T) {
	s := enginetest.NewScenario().AddLocation("STG-A", 10, 1)
	ledger := s.Ledger()
	ctx := context.Background()
	kit := kitWithItems()

	if ok, err := s.Locations.TryOccupy(ctx, "STG-A", entities.Qty(3)); !ok || err != nil {
		t.Fatalf("seeding occupancy failed: ok=%v err=%v", ok, err)
	}
	if _, err := ledger.BookLocation(ctx, kit, "STG-A", entities.Qty(3)); err != nil {
		t.Fatalf("BookLocation failed: %v", err)
	}

	if err := ledger.ReleaseKit(ctx, kit.ID); err != nil {
		t.Fatalf("ReleaseKit failed: %v", err)
	}

	loc, _ := s.Locations.GetLocation(ctx, "STG-A")
	if !loc.Occupancy.Equal(entities.Qty(0)) {
		t.Errorf("expected occupancy 0 after release, got %s", loc.Occupancy)
	}
}

func TestCloseKitIsIdempotentOnClosedReservations(t *testing.T) {
	s := enginetest.NewScenario().AddStock("P-1", 10)
	ledger := s.Ledger()
	ctx := context.Background()
	kit := kitWithItems(entities.KitItem{Part: "P-1", Required: entities.Qty(4)})

	if _, err := ledger.BookInventory(ctx, kit, availabilityOf(knownNet("P-1", 10))); err != nil {
		t.Fatalf("BookInventory failed: %v", err)
	}
	if err := ledger.ReleaseKit(ctx, kit.ID); err != nil {
		t.Fatalf("first release failed: %v", err)
	}

	// A second release finds nothing active and must not error.
	if err := ledger.ReleaseKit(ctx, kit.ID); err != nil {
		t.Fatalf("second release failed: %v", err)
	}

	stock, _ := s.Inventory.GetStock(ctx, "P-1")
	if !stock.OnHand.Equal(entities.Qty(10)) || !stock.Reserved.Equal(entities.Qty(0)) {
		t.Errorf("expected stock untouched by the second release, got %+v", stock)
	}
}
