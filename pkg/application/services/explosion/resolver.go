// Package explosion implements the BOM explosion resolver: it expands a
// work order's multi-level BOM into the flat list of required lines for one
// assembly stage.
package explosion

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// Config holds resolver tuning knobs
type Config struct {
	// MaxCacheEntries limits the explosion cache size (0 = unlimited)
	MaxCacheEntries int
}

// Resolver performs recursive BOM explosion with memoization. The traversal
// is read-only; it may run without holding any kit or location lock.
type Resolver struct {
	workOrders repositories.WorkOrderRepository
	boms       repositories.BOMRepository
	parts      repositories.PartRepository
	config     Config

	// Memoization cache of per-unit subtree explosions
	cache      map[cacheKey]*cachedExplosion
	cacheMutex sync.RWMutex
}

type cacheKey struct {
	Part  entities.PartNumber
	Stage int
}

type cachedExplosion struct {
	Lines      []entities.RequiredLine // per one unit of the parent
	ComputedAt time.Time
}

// NewResolver creates a resolver with default configuration.
func NewResolver(
	workOrders repositories.WorkOrderRepository,
	boms repositories.BOMRepository,
	parts repositories.PartRepository,
) *Resolver {
	return NewResolverWithConfig(workOrders, boms, parts, Config{MaxCacheEntries: 10000})
}

// NewResolverWithConfig creates a resolver with custom configuration.
func NewResolverWithConfig(
	workOrders repositories.WorkOrderRepository,
	boms repositories.BOMRepository,
	parts repositories.PartRepository,
	config Config,
) *Resolver {
	return &Resolver{
		workOrders: workOrders,
		boms:       boms,
		parts:      parts,
		config:     config,
		cache:      make(map[cacheKey]*cachedExplosion),
	}
}

// Explode expands the work order's BOM for the requested assembly stage into
// required lines: one line per distinct part, quantities summed across all
// expansion paths, ordered by part number for reproducible downstream
// processing.
//
// Only BOM lines whose effective stage is at or below the requested stage
// are included. Phantom lines are expanded through without contributing a
// line of their own; stocked subassemblies contribute a line and stop the
// descent.
func (r *Resolver) Explode(ctx context.Context, workOrderID, stage string) ([]entities.RequiredLine, error) {
	wo, err := r.workOrders.GetWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	if wo.Cancelled {
		return nil, &entities.UnknownWorkOrderError{WorkOrderID: workOrderID, Cancelled: true}
	}

	stageSeq, ok := wo.StageSequence(stage)
	if !ok {
		return nil, &entities.UnknownStageError{WorkOrderID: workOrderID, Stage: stage}
	}

	unitLines, err := r.explodeUnit(ctx, wo.TopLevelPart, stageSeq, []entities.PartNumber{wo.TopLevelPart})
	if err != nil {
		return nil, err
	}

	lines := make([]entities.RequiredLine, 0, len(unitLines))
	for _, unit := range unitLines {
		line := unit
		line.Quantity = unit.Quantity.Mul(wo.Quantity)
		line.Paths = prefixPaths(string(wo.TopLevelPart), unit.Paths)
		line.Substitutes = append([]entities.PartNumber(nil), unit.Substitutes...)
		lines = append(lines, line)
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].Part < lines[j].Part })

	r.cleanCacheIfNeeded()

	return lines, nil
}

// explodeUnit returns the aggregated required lines for one unit of parent,
// with paths relative to the parent. ancestors carries the chain from the
// root for cycle detection; a part reappearing on its own ancestor chain is
// a fatal BOMCycleError.
func (r *Resolver) explodeUnit(
	ctx context.Context,
	parent entities.PartNumber,
	stageSeq int,
	ancestors []entities.PartNumber,
) ([]entities.RequiredLine, error) {
	key := cacheKey{Part: parent, Stage: stageSeq}

	r.cacheMutex.RLock()
	cached, exists := r.cache[key]
	r.cacheMutex.RUnlock()
	if exists {
		return cached.Lines, nil
	}

	bomLines, err := r.boms.GetBOMLines(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to get BOM for %s: %w", parent, err)
	}

	// Stage filter, then deterministic traversal order.
	effective := make([]entities.BOMLine, 0, len(bomLines))
	for _, line := range bomLines {
		if line.EffectiveStage <= stageSeq {
			effective = append(effective, line)
		}
	}
	sort.Slice(effective, func(i, j int) bool { return effective[i].ChildPN < effective[j].ChildPN })

	agg := make(map[entities.PartNumber]*entities.RequiredLine)
	order := make([]entities.PartNumber, 0, len(effective))

	for _, line := range effective {
		for _, ancestor := range ancestors {
			if ancestor == line.ChildPN {
				return nil, &entities.BOMCycleError{
					Part: line.ChildPN,
					Path: append(append([]entities.PartNumber(nil), ancestors...), line.ChildPN),
				}
			}
		}

		child, err := r.parts.GetPart(ctx, line.ChildPN)
		if err != nil {
			return nil, fmt.Errorf("failed to get part %s: %w", line.ChildPN, err)
		}

		if !line.Phantom {
			substitutes, err := r.substitutesFor(ctx, line, child)
			if err != nil {
				return nil, err
			}
			contribution := entities.RequiredLine{
				Part:          child.PartNumber,
				Quantity:      line.QtyPer,
				UnitOfMeasure: unitOfMeasure(line, child),
				LeadTimeDays:  child.LeadTimeDays,
				Substitutes:   substitutes,
				Paths:         []string{string(child.PartNumber)},
			}
			mergeLine(agg, &order, contribution)
		}

		// Stocked subassemblies are kitted as a unit; everything else is
		// expanded through to its components.
		if child.StockedSubassembly {
			continue
		}

		subLines, err := r.explodeUnit(ctx, line.ChildPN, stageSeq, append(ancestors, line.ChildPN))
		if err != nil {
			return nil, err
		}
		for _, sub := range subLines {
			contribution := sub
			contribution.Quantity = sub.Quantity.Mul(line.QtyPer)
			contribution.Paths = prefixPaths(string(line.ChildPN), sub.Paths)
			mergeLine(agg, &order, contribution)
		}
	}

	result := make([]entities.RequiredLine, 0, len(order))
	for _, pn := range order {
		result = append(result, *agg[pn])
	}

	r.cacheMutex.Lock()
	r.cache[key] = &cachedExplosion{Lines: result, ComputedAt: time.Now()}
	r.cacheMutex.Unlock()

	return result, nil
}

func (r *Resolver) substitutesFor(ctx context.Context, line entities.BOMLine, child *entities.Part) ([]entities.PartNumber, error) {
	substitutes := append([]entities.PartNumber(nil), line.Alternates...)

	if child.SubstitutionGroup != "" {
		group, err := r.parts.GetSubstitutes(ctx, child.PartNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to get substitutes for %s: %w", child.PartNumber, err)
		}
		substitutes = append(substitutes, group...)
	}

	return dedupe(substitutes, child.PartNumber), nil
}

// mergeLine sums a contribution into the aggregation, keeping first-seen
// order for the later sort.
func mergeLine(agg map[entities.PartNumber]*entities.RequiredLine, order *[]entities.PartNumber, line entities.RequiredLine) {
	existing, ok := agg[line.Part]
	if !ok {
		copied := line
		copied.Paths = append([]string(nil), line.Paths...)
		copied.Substitutes = append([]entities.PartNumber(nil), line.Substitutes...)
		agg[line.Part] = &copied
		*order = append(*order, line.Part)
		return
	}

	existing.Quantity = existing.Quantity.Add(line.Quantity)
	existing.Paths = append(existing.Paths, line.Paths...)
	for _, sub := range line.Substitutes {
		existing.Substitutes = append(existing.Substitutes, sub)
	}
	existing.Substitutes = dedupe(existing.Substitutes, existing.Part)
}

func prefixPaths(prefix string, paths []string) []string {
	prefixed := make([]string, len(paths))
	for i, p := range paths {
		prefixed[i] = prefix + " -> " + p
	}
	return prefixed
}

func unitOfMeasure(line entities.BOMLine, part *entities.Part) string {
	if line.UnitOfMeasure != "" {
		return line.UnitOfMeasure
	}
	return part.UnitOfMeasure
}

func dedupe(parts []entities.PartNumber, self entities.PartNumber) []entities.PartNumber {
	seen := make(map[entities.PartNumber]bool, len(parts))
	out := parts[:0]
	for _, pn := range parts {
		if pn == self || seen[pn] {
			continue
		}
		seen[pn] = true
		out = append(out, pn)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// cleanCacheIfNeeded evicts the oldest entry when the cache exceeds its
// configured size.
func (r *Resolver) cleanCacheIfNeeded() {
	if r.config.MaxCacheEntries <= 0 {
		return
	}

	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()

	for len(r.cache) > r.config.MaxCacheEntries {
		var oldestKey cacheKey
		var oldestTime time.Time
		for key, value := range r.cache {
			if oldestTime.IsZero() || value.ComputedAt.Before(oldestTime) {
				oldestTime = value.ComputedAt
				oldestKey = key
			}
		}
		delete(r.cache, oldestKey)
	}
}
