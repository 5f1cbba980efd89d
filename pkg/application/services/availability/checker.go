// Package availability implements the inventory availability checker: a
// side-effect-free, point-in-time read of net-available quantity per part.
package availability

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// Policy holds site-configurable availability rules.
type Policy struct {
	// CountInTransit counts in-transit quantity as available. Site policy;
	// defaults to not counted.
	CountInTransit bool

	// MaxConcurrent bounds parallel reads against the inventory source.
	MaxConcurrent int

	// Retries is the number of re-attempts per part after a transient read
	// failure, before the part is reported as availability-unknown.
	Retries int

	// RetryBackoff is the wait between re-attempts.
	RetryBackoff time.Duration
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		CountInTransit: false,
		MaxConcurrent:  8,
		Retries:        2,
		RetryBackoff:   200 * time.Millisecond,
	}
}

// Result is one consistent availability read. TakenAt is recorded for audit;
// the snapshots are never cached across kit lifecycle stages.
type Result struct {
	TakenAt   time.Time
	Snapshots map[entities.PartNumber]entities.InventorySnapshot

	// CountedInTransit records whether NetAvailable already includes
	// in-transit quantity, so downstream classification does not credit it
	// twice.
	CountedInTransit bool
}

// Snapshot returns the snapshot for a part, with Unknown set when the part
// was not part of the read.
func (r *Result) Snapshot(part entities.PartNumber) entities.InventorySnapshot {
	if snap, ok := r.Snapshots[part]; ok {
		return snap
	}
	return entities.InventorySnapshot{Part: part, Unknown: true}
}

// Checker computes net-available quantities against the inventory
// collaborator. It never reserves anything; reservation is an explicit,
// separate step owned by the reservation ledger.
type Checker struct {
	gateway      repositories.InventoryGateway
	reservations repositories.ReservationRepository
	policy       Policy
	log          *slog.Logger
}

// NewChecker creates an availability checker.
func NewChecker(
	gateway repositories.InventoryGateway,
	reservations repositories.ReservationRepository,
	policy Policy,
	log *slog.Logger,
) *Checker {
	if policy.MaxConcurrent <= 0 {
		policy.MaxConcurrent = DefaultPolicy().MaxConcurrent
	}
	return &Checker{gateway: gateway, reservations: reservations, policy: policy, log: log}
}

// Check reads availability for every part on the required lines, plus their
// approved substitutes. forKit excludes that kit's own reservations from the
// reserved-by-others figure (empty for a kit not yet created).
//
// A transient inventory-source failure marks the affected part Unknown
// instead of failing the whole read; any other failure is returned.
func (c *Checker) Check(ctx context.Context, lines []entities.RequiredLine, forKit string) (*Result, error) {
	parts := collectParts(lines)

	result := &Result{
		TakenAt:          time.Now().UTC(),
		Snapshots:        make(map[entities.PartNumber]entities.InventorySnapshot, len(parts)),
		CountedInTransit: c.policy.CountInTransit,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.policy.MaxConcurrent)

	for _, part := range parts {
		part := part
		g.Go(func() error {
			snap, err := c.readPart(gctx, part, forKit)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Snapshots[part] = *snap
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

// readPart reads one part with bounded retries. Unknown availability is a
// snapshot state, not an error: the caller must be able to distinguish
// "definitely failed" from "unknown, must re-verify".
func (c *Checker) readPart(ctx context.Context, part entities.PartNumber, forKit string) (*entities.InventorySnapshot, error) {
	var stock *entities.StockLevels
	var err error

	for attempt := 0; attempt <= c.policy.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.policy.RetryBackoff):
			}
		}

		stock, err = c.gateway.GetStock(ctx, part)
		if err == nil {
			break
		}

		var unknown *entities.AvailabilityUnknownError
		if !errors.As(err, &unknown) {
			return nil, err
		}
	}

	if err != nil {
		c.log.Warn("inventory source unreachable, treating availability as unknown",
			slog.String("part", string(part)),
			slog.String("error", err.Error()),
		)
		return &entities.InventorySnapshot{Part: part, Unknown: true}, nil
	}

	// The collaborator's reserved figure includes this engine's own holds;
	// subtract the requesting kit's share so a refresh does not count the
	// kit against itself.
	reservedByOthers := stock.Reserved
	if forKit != "" {
		own, err := c.reservations.ActiveReservedQuantity(ctx, part, "")
		if err != nil {
			return nil, err
		}
		others, err := c.reservations.ActiveReservedQuantity(ctx, part, forKit)
		if err != nil {
			return nil, err
		}
		kitShare := own.Sub(others)
		reservedByOthers = stock.Reserved.Sub(kitShare)
	}
	if reservedByOthers.IsNegative() {
		reservedByOthers = entities.Qty(0)
	}

	net := stock.OnHand.Sub(reservedByOthers)
	if c.policy.CountInTransit {
		net = net.Add(stock.InTransit)
	}

	return &entities.InventorySnapshot{
		Part:         part,
		OnHand:       stock.OnHand,
		Reserved:     reservedByOthers,
		InTransit:    stock.InTransit,
		NetAvailable: net,
	}, nil
}

// collectParts returns the distinct parts referenced by the lines and their
// substitutes, in first-seen order.
func collectParts(lines []entities.RequiredLine) []entities.PartNumber {
	seen := make(map[entities.PartNumber]bool)
	parts := make([]entities.PartNumber, 0, len(lines))

	add := func(pn entities.PartNumber) {
		if !seen[pn] {
			seen[pn] = true
			parts = append(parts, pn)
		}
	}

	for _, line := range lines {
		add(line.Part)
		for _, sub := range line.Substitutes {
			add(sub)
		}
	}

	return parts
}
