package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/machshop/kitting/pkg/domain/entities"
)

func newLocation(id string, capacity int64) *entities.StagingLocation {
	return &entities.StagingLocation{
		ID:       id,
		Capacity: entities.Qty(capacity),
		Status:   entities.LocationAvailable,
	}
}

func TestTryOccupyFlipsToAtCapacity(t *testing.T) {
	repo := NewLocationRepository()
	ctx := context.Background()
	_ = repo.SaveLocation(ctx, newLocation("STG-A", 5))

	ok, err := repo.TryOccupy(ctx, "STG-A", entities.Qty(5))
	if !ok || err != nil {
		t.Fatalf("TryOccupy failed: ok=%v err=%v", ok, err)
	}

	loc, _ := repo.GetLocation(ctx, "STG-A")
	if loc.Status != entities.LocationAtCapacity {
		t.Errorf("expected AtCapacity, got %s", loc.Status)
	}

	// A full location rejects further occupation without error.
	if ok, err := repo.TryOccupy(ctx, "STG-A", entities.Qty(1)); ok || err != nil {
		t.Errorf("expected rejection on a full location, got ok=%v err=%v", ok, err)
	}
}

func TestTryOccupyRejectsOverCapacity(t *testing.T) {
	repo := NewLocationRepository()
	ctx := context.Background()
	_ = repo.SaveLocation(ctx, newLocation("STG-A", 5))

	if ok, _ := repo.TryOccupy(ctx, "STG-A", entities.Qty(6)); ok {
		t.Error("expected rejection when qty exceeds capacity")
	}
	loc, _ := repo.GetLocation(ctx, "STG-A")
	if !loc.Occupancy.Equal(entities.Qty(0)) {
		t.Errorf("a rejected attempt must not change occupancy, got %s", loc.Occupancy)
	}
}

func TestReleaseReopensLocation(t *testing.T) {
	repo := NewLocationRepository()
	ctx := context.Background()
	_ = repo.SaveLocation(ctx, newLocation("STG-A", 5))

	if ok, _ := repo.TryOccupy(ctx, "STG-A", entities.Qty(5)); !ok {
		t.Fatal("TryOccupy failed")
	}
	if err := repo.Release(ctx, "STG-A", entities.Qty(2)); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	loc, _ := repo.GetLocation(ctx, "STG-A")
	if loc.Status != entities.LocationAvailable {
		t.Errorf("expected Available after partial release, got %s", loc.Status)
	}
	if !loc.Occupancy.Equal(entities.Qty(3)) {
		t.Errorf("expected occupancy 3, got %s", loc.Occupancy)
	}
}

func TestReleaseClampsAtZero(t *testing.T) {
	repo := NewLocationRepository()
	ctx := context.Background()
	_ = repo.SaveLocation(ctx, newLocation("STG-A", 5))

	if err := repo.Release(ctx, "STG-A", entities.Qty(3)); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	loc, _ := repo.GetLocation(ctx, "STG-A")
	if !loc.Occupancy.Equal(entities.Qty(0)) {
		t.Errorf("expected occupancy clamped at 0, got %s", loc.Occupancy)
	}
}

func TestTryOccupyConcurrentStaysWithinCapacity(t *testing.T) {
	const capacity = 10
	const contenders = 50

	repo := NewLocationRepository()
	ctx := context.Background()
	_ = repo.SaveLocation(ctx, newLocation("STG-A", capacity))

	var wg sync.WaitGroup
	results := make(chan bool, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryOccupy(ctx, "STG-A", entities.Qty(1))
			if err != nil {
				t.Errorf("TryOccupy errored: %v", err)
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	won := 0
	for ok := range results {
		if ok {
			won++
		}
	}
	if won != capacity {
		t.Errorf("expected exactly %d successful occupations, got %d", capacity, won)
	}

	loc, _ := repo.GetLocation(ctx, "STG-A")
	if loc.Occupancy.Cmp(loc.Capacity) > 0 {
		t.Errorf("occupancy %s exceeds capacity %s", loc.Occupancy, loc.Capacity)
	}
}
