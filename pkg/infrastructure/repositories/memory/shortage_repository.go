package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// ShortageRepository provides in-memory storage for derived shortage
// records, keyed by kit and replaced wholesale on each refresh.
type ShortageRepository struct {
	mutex   sync.RWMutex
	byKit   map[string][]entities.ShortageRecord
	kitToWO map[string]string
}

// NewShortageRepository creates a new in-memory shortage repository.
func NewShortageRepository() *ShortageRepository {
	return &ShortageRepository{
		byKit:   make(map[string][]entities.ShortageRecord),
		kitToWO: make(map[string]string),
	}
}

// Verify interface compliance
var _ repositories.ShortageRepository = (*ShortageRepository)(nil)

// ReplaceForKit swaps the kit's shortage records for the fresh set.
func (r *ShortageRepository) ReplaceForKit(ctx context.Context, kitID string, workOrderID string, records []entities.ShortageRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	copied := make([]entities.ShortageRecord, len(records))
	copy(copied, records)
	r.byKit[kitID] = copied
	r.kitToWO[kitID] = workOrderID
	return nil
}

// Query returns shortage records matching the filter, ordered by part then
// kit.
func (r *ShortageRepository) Query(ctx context.Context, filter repositories.ShortageFilter) ([]entities.ShortageRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []entities.ShortageRecord
	kitIDs := make([]string, 0, len(r.byKit))
	for kitID := range r.byKit {
		kitIDs = append(kitIDs, kitID)
	}
	sort.Strings(kitIDs)

	for _, kitID := range kitIDs {
		if filter.WorkOrderID != "" && r.kitToWO[kitID] != filter.WorkOrderID {
			continue
		}
		for _, rec := range r.byKit[kitID] {
			if filter.Part != "" && rec.Part != filter.Part {
				continue
			}
			if filter.HasSeverity && rec.Severity != filter.Severity {
				continue
			}
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Part < out[j].Part })
	return out, nil
}
