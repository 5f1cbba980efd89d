package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// InventoryGateway is an in-memory stand-in for the external inventory
// service. FailPart can be set to make reads of a part fail transiently,
// which exercises the unknown-availability paths.
type InventoryGateway struct {
	mutex sync.RWMutex
	stock map[entities.PartNumber]entities.StockLevels
	holds map[string]heldQuantity

	// FailPart makes GetStock for this part return
	// AvailabilityUnknownError until FailCount reaches zero.
	FailPart  entities.PartNumber
	FailCount int
}

type heldQuantity struct {
	part entities.PartNumber
	qty  entities.Quantity
}

// NewInventoryGateway creates a new in-memory inventory gateway.
func NewInventoryGateway() *InventoryGateway {
	return &InventoryGateway{
		stock: make(map[entities.PartNumber]entities.StockLevels),
		holds: make(map[string]heldQuantity),
	}
}

// Verify interface compliance
var _ repositories.InventoryGateway = (*InventoryGateway)(nil)

// LoadStock loads stock levels into the gateway.
func (g *InventoryGateway) LoadStock(levels []*entities.StockLevels) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	for _, s := range levels {
		g.stock[s.Part] = *s
	}
	return nil
}

// SetStock replaces the stock levels for a part.
func (g *InventoryGateway) SetStock(s entities.StockLevels) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.stock[s.Part] = s
}

// GetStock returns stock levels for a part. An unstocked part reads as zero
// on hand rather than an error.
func (g *InventoryGateway) GetStock(ctx context.Context, part entities.PartNumber) (*entities.StockLevels, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if part == g.FailPart && g.FailCount > 0 {
		g.FailCount--
		return nil, &entities.AvailabilityUnknownError{
			Part:  part,
			Cause: fmt.Errorf("inventory service unavailable"),
		}
	}

	s, exists := g.stock[part]
	if !exists {
		s = entities.StockLevels{Part: part}
	}
	out := s
	return &out, nil
}

// CreateReservation registers an inventory hold, moving quantity from
// available to reserved. The check and the increment run under one lock, so
// two holds racing on the same part cannot together exceed on-hand; the
// loser gets a retryable ConflictError.
func (g *InventoryGateway) CreateReservation(ctx context.Context, r *entities.Reservation) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, exists := g.holds[r.ID]; exists {
		return fmt.Errorf("reservation already exists: %s", r.ID)
	}

	s := g.stock[r.Part]
	if s.Reserved.Add(r.Quantity).Cmp(s.OnHand) > 0 {
		return &entities.ConflictError{Resource: "inventory", ID: string(r.Part)}
	}

	s.Part = r.Part
	s.Reserved = s.Reserved.Add(r.Quantity)
	g.stock[r.Part] = s
	g.holds[r.ID] = heldQuantity{part: r.Part, qty: r.Quantity}
	return nil
}

// ReleaseReservation closes a hold. When consumed, on-hand drops with the
// reserved quantity; otherwise the quantity returns to the pool.
func (g *InventoryGateway) ReleaseReservation(ctx context.Context, reservationID string, consumed bool) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	hold, exists := g.holds[reservationID]
	if !exists {
		return fmt.Errorf("reservation not found: %s", reservationID)
	}
	delete(g.holds, reservationID)

	s := g.stock[hold.part]
	s.Reserved = s.Reserved.Sub(hold.qty)
	if s.Reserved.IsNegative() {
		s.Reserved = entities.Qty(0)
	}
	if consumed {
		s.OnHand = s.OnHand.Sub(hold.qty)
		if s.OnHand.IsNegative() {
			s.OnHand = entities.Qty(0)
		}
	}
	g.stock[hold.part] = s
	return nil
}
