package repositories

import (
	"context"

	"github.com/machshop/kitting/pkg/domain/entities"
)

// KitRepository stores kits. Kits are never hard-deleted while referenced by
// a work order; archival is external to this engine.
type KitRepository interface {
	// NextKitID allocates a new unique kit identifier.
	NextKitID(ctx context.Context) (string, error)

	SaveKit(ctx context.Context, kit *entities.Kit) error
	GetKit(ctx context.Context, id string) (*entities.Kit, error)
	UpdateKit(ctx context.Context, kit *entities.Kit) error

	ListKitsByWorkOrder(ctx context.Context, workOrderID string) ([]*entities.Kit, error)

	// ListOpenKits returns kits in a non-terminal status.
	ListOpenKits(ctx context.Context) ([]*entities.Kit, error)
}
