// Package memory provides in-memory repository implementations used by the
// demo binary and the test suites. All repositories are safe for concurrent
// use.
package memory

import (
	"context"
	"sync"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// WorkOrderRepository provides in-memory work-order storage.
type WorkOrderRepository struct {
	mutex      sync.RWMutex
	workOrders map[string]entities.WorkOrder
}

// NewWorkOrderRepository creates a new in-memory work-order repository.
func NewWorkOrderRepository() *WorkOrderRepository {
	return &WorkOrderRepository{workOrders: make(map[string]entities.WorkOrder)}
}

// Verify interface compliance
var _ repositories.WorkOrderRepository = (*WorkOrderRepository)(nil)

// LoadWorkOrders loads work orders into the repository.
func (r *WorkOrderRepository) LoadWorkOrders(workOrders []*entities.WorkOrder) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, wo := range workOrders {
		r.workOrders[wo.ID] = *wo
	}
	return nil
}

// GetWorkOrder returns the work order or UnknownWorkOrderError.
func (r *WorkOrderRepository) GetWorkOrder(ctx context.Context, id string) (*entities.WorkOrder, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	wo, exists := r.workOrders[id]
	if !exists {
		return nil, &entities.UnknownWorkOrderError{WorkOrderID: id}
	}
	if wo.Cancelled {
		return nil, &entities.UnknownWorkOrderError{WorkOrderID: id, Cancelled: true}
	}
	out := wo
	return &out, nil
}

// CancelWorkOrder marks a work order cancelled.
func (r *WorkOrderRepository) CancelWorkOrder(id string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if wo, exists := r.workOrders[id]; exists {
		wo.Cancelled = true
		r.workOrders[id] = wo
	}
}
