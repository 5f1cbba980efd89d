package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// KitRepository provides in-memory kit storage. GetKit returns a deep copy
// so callers can mutate freely and commit via UpdateKit.
type KitRepository struct {
	mutex   sync.RWMutex
	kits    map[string]*entities.Kit
	counter int
}

// NewKitRepository creates a new in-memory kit repository.
func NewKitRepository() *KitRepository {
	return &KitRepository{kits: make(map[string]*entities.Kit)}
}

// Verify interface compliance
var _ repositories.KitRepository = (*KitRepository)(nil)

// NextKitID allocates a new unique kit identifier.
func (r *KitRepository) NextKitID(ctx context.Context) (string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.counter++
	return fmt.Sprintf("KIT-%06d", r.counter), nil
}

// SaveKit stores a new kit.
func (r *KitRepository) SaveKit(ctx context.Context, kit *entities.Kit) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.kits[kit.ID]; exists {
		return fmt.Errorf("kit already exists: %s", kit.ID)
	}
	r.kits[kit.ID] = copyKit(kit)
	return nil
}

// GetKit returns a copy of the kit or UnknownKitError.
func (r *KitRepository) GetKit(ctx context.Context, id string) (*entities.Kit, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	kit, exists := r.kits[id]
	if !exists {
		return nil, &entities.UnknownKitError{KitID: id}
	}
	return copyKit(kit), nil
}

// UpdateKit replaces the stored kit.
func (r *KitRepository) UpdateKit(ctx context.Context, kit *entities.Kit) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.kits[kit.ID]; !exists {
		return &entities.UnknownKitError{KitID: kit.ID}
	}
	r.kits[kit.ID] = copyKit(kit)
	return nil
}

// ListKitsByWorkOrder returns the kits created for a work order, ordered by
// kit id.
func (r *KitRepository) ListKitsByWorkOrder(ctx context.Context, workOrderID string) ([]*entities.Kit, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []*entities.Kit
	for _, kit := range r.kits {
		if kit.WorkOrder == workOrderID {
			out = append(out, copyKit(kit))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListOpenKits returns kits in a non-terminal status, ordered by kit id.
func (r *KitRepository) ListOpenKits(ctx context.Context) ([]*entities.Kit, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []*entities.Kit
	for _, kit := range r.kits {
		if !kit.Status.Terminal() {
			out = append(out, copyKit(kit))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func copyKit(kit *entities.Kit) *entities.Kit {
	out := *kit
	out.Items = make([]entities.KitItem, len(kit.Items))
	copy(out.Items, kit.Items)
	for i := range out.Items {
		subs := make([]entities.PartNumber, len(kit.Items[i].Substitutes))
		copy(subs, kit.Items[i].Substitutes)
		out.Items[i].Substitutes = subs
	}
	return &out
}
