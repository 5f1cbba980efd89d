// Package allocation implements the staging location allocator: the
// highest-contention operation in the engine. Selection is deterministic;
// the commit is an atomic check-and-increment on the chosen location, and a
// lost race falls through to the next-ranked candidate.
package allocation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// Config holds allocator tuning knobs
type Config struct {
	// MaxAttempts bounds how many ranked candidates are tried before the
	// allocation fails with NoCapacityAvailableError.
	MaxAttempts int
}

// DefaultConfig returns the config used when none is provided.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5}
}

// Allocator assigns staging locations to kits.
type Allocator struct {
	locations repositories.LocationRepository
	config    Config
	log       *slog.Logger
}

// NewAllocator creates a staging location allocator.
func NewAllocator(locations repositories.LocationRepository, config Config, log *slog.Logger) *Allocator {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Allocator{locations: locations, config: config, log: log}
}

// Allocate selects and occupies a staging location for the kit.
//
// Candidates are locations whose attribute set is a superset of required and
// whose status is Available, ranked by ascending occupancy ratio, then
// proximity, then identifier. The top candidate is occupied with an atomic
// conditional increment; two concurrent allocations can never both succeed
// past capacity. A loser moves to the next candidate rather than failing the
// kit, up to the configured attempt bound.
func (a *Allocator) Allocate(
	ctx context.Context,
	kit *entities.Kit,
	required []entities.LocationAttribute,
	capacity entities.Quantity,
) (*entities.StagingLocation, error) {
	if !capacity.IsPositive() {
		return nil, fmt.Errorf("required capacity must be positive, got %s", capacity)
	}

	all, err := a.locations.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list staging locations: %w", err)
	}

	candidates := make([]*entities.StagingLocation, 0, len(all))
	for _, loc := range all {
		if loc.Status != entities.LocationAvailable {
			continue
		}
		if !loc.HasAttributes(required) {
			continue
		}
		if loc.Occupancy.Add(capacity).Cmp(loc.Capacity) > 0 {
			continue
		}
		candidates = append(candidates, loc)
	}

	sort.Slice(candidates, func(i, j int) bool {
		ri, rj := candidates[i].OccupancyRatio(), candidates[j].OccupancyRatio()
		if ri != rj {
			return ri < rj
		}
		if candidates[i].Proximity != candidates[j].Proximity {
			return candidates[i].Proximity < candidates[j].Proximity
		}
		return candidates[i].ID < candidates[j].ID
	})

	attempts := 0
	for _, candidate := range candidates {
		if attempts >= a.config.MaxAttempts {
			break
		}
		attempts++

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ok, err := a.locations.TryOccupy(ctx, candidate.ID, capacity)
		if err != nil {
			return nil, fmt.Errorf("failed to occupy location %s: %w", candidate.ID, err)
		}
		if !ok {
			// Lost the race or the snapshot was stale; next candidate.
			a.log.Debug("staging location occupied concurrently, trying next candidate",
				slog.String("kit", kit.ID),
				slog.String("location", candidate.ID),
			)
			continue
		}

		committed, err := a.locations.GetLocation(ctx, candidate.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read location %s: %w", candidate.ID, err)
		}

		a.log.Info("staging location allocated",
			slog.String("kit", kit.ID),
			slog.String("location", committed.ID),
			slog.String("capacity", capacity.String()),
		)
		return committed, nil
	}

	return nil, &entities.NoCapacityAvailableError{
		Required:   capacity,
		Attributes: required,
		Attempts:   attempts,
	}
}
