package repositories

import (
	"context"

	"github.com/machshop/kitting/pkg/domain/entities"
)

// WorkOrderRepository reads work-order headers and routings from the
// work-order collaborator.
type WorkOrderRepository interface {
	// GetWorkOrder returns the work order or UnknownWorkOrderError.
	GetWorkOrder(ctx context.Context, id string) (*entities.WorkOrder, error)
}
