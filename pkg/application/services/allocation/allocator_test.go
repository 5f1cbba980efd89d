package allocation_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/machshop/kitting/pkg/application/services/allocation"
	"github.com/machshop/kitting/pkg/domain/entities"
	enginetest "github.com/machshop/kitting/pkg/infrastructure/testing"
)

func newAllocator(s *enginetest.Scenario, config allocation.Config) *allocation.Allocator {
	return allocation.NewAllocator(s.Locations, config, s.Log)
}

func kit(id string) *entities.Kit {
	return &entities.Kit{ID: id, Status: entities.KitPlanned}
}

func TestAllocatePrefersLeastOccupied(t *testing.T) {
	s := enginetest.NewScenario().
		AddLocation("STG-A", 10, 1).
		AddLocation("STG-B", 10, 1)

	// STG-A starts half full; STG-B must win on occupancy ratio.
	if ok, err := s.Locations.TryOccupy(context.Background(), "STG-A", entities.Qty(5)); !ok || err != nil {
		t.Fatalf("seeding occupancy failed: ok=%v err=%v", ok, err)
	}

	loc, err := newAllocator(s, allocation.Config{}).Allocate(context.Background(), kit("KIT-000001"), nil, entities.Qty(2))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if loc.ID != "STG-B" {
		t.Errorf("expected STG-B, got %s", loc.ID)
	}
	if !loc.Occupancy.Equal(entities.Qty(2)) {
		t.Errorf("expected committed occupancy 2, got %s", loc.Occupancy)
	}
}

func TestAllocateBreaksTiesByProximityThenID(t *testing.T) {
	s := enginetest.NewScenario().
		AddLocation("STG-C", 10, 3).
		AddLocation("STG-B", 10, 1).
		AddLocation("STG-A", 10, 1)

	loc, err := newAllocator(s, allocation.Config{}).Allocate(context.Background(), kit("KIT-000001"), nil, entities.Qty(1))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	// Equal occupancy and proximity: identifier decides.
	if loc.ID != "STG-A" {
		t.Errorf("expected STG-A, got %s", loc.ID)
	}
}

func TestAllocateFiltersByAttributes(t *testing.T) {
	s := enginetest.NewScenario().
		AddLocation("STG-PLAIN", 10, 1).
		AddLocation("STG-ESD", 10, 5, entities.AttrESDControl)

	loc, err := newAllocator(s, allocation.Config{}).Allocate(
		context.Background(), kit("KIT-000001"),
		[]entities.LocationAttribute{entities.AttrESDControl}, entities.Qty(1))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if loc.ID != "STG-ESD" {
		t.Errorf("expected STG-ESD, got %s", loc.ID)
	}
}

func TestAllocateSkipsMaintenanceLocations(t *testing.T) {
	s := enginetest.NewScenario().
		AddLocation("STG-A", 10, 1).
		AddLocation("STG-B", 10, 2)
	_ = s.Locations.SetStatus(context.Background(), "STG-A", entities.LocationMaintenance)

	loc, err := newAllocator(s, allocation.Config{}).Allocate(context.Background(), kit("KIT-000001"), nil, entities.Qty(1))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if loc.ID != "STG-B" {
		t.Errorf("expected STG-B, got %s", loc.ID)
	}
}

func TestAllocateFailsWhenNothingFits(t *testing.T) {
	s := enginetest.NewScenario().AddLocation("STG-A", 5, 1)

	_, err := newAllocator(s, allocation.Config{}).Allocate(context.Background(), kit("KIT-000001"), nil, entities.Qty(6))

	var noCap *entities.NoCapacityAvailableError
	if !errors.As(err, &noCap) {
		t.Fatalf("expected NoCapacityAvailableError, got %v", err)
	}
}

func TestAllocateRejectsNonPositiveCapacity(t *testing.T) {
	s := enginetest.NewScenario().AddLocation("STG-A", 5, 1)

	if _, err := newAllocator(s, allocation.Config{}).Allocate(context.Background(), kit("KIT-000001"), nil, entities.Qty(0)); err == nil {
		t.Fatal("expected an error for zero capacity")
	}
}

func TestAllocateConcurrentNeverExceedsCapacity(t *testing.T) {
	const capacity = 3
	const contenders = 20

	s := enginetest.NewScenario().AddLocation("STG-A", capacity, 1)
	allocator := newAllocator(s, allocation.Config{})

	var wg sync.WaitGroup
	successes := make(chan string, contenders)
	failures := make(chan error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			loc, err := allocator.Allocate(context.Background(), kit("KIT-RACE"), nil, entities.Qty(1))
			if err != nil {
				failures <- err
				return
			}
			successes <- loc.ID
		}(i)
	}
	wg.Wait()
	close(successes)
	close(failures)

	won := 0
	for range successes {
		won++
	}
	if won != capacity {
		t.Errorf("expected exactly %d winners, got %d", capacity, won)
	}

	for err := range failures {
		var noCap *entities.NoCapacityAvailableError
		if !errors.As(err, &noCap) {
			t.Errorf("loser got unexpected error: %v", err)
		}
	}

	loc, err := s.Locations.GetLocation(context.Background(), "STG-A")
	if err != nil {
		t.Fatalf("GetLocation failed: %v", err)
	}
	if loc.Occupancy.Cmp(loc.Capacity) > 0 {
		t.Errorf("occupancy %s exceeds capacity %s", loc.Occupancy, loc.Capacity)
	}
}
