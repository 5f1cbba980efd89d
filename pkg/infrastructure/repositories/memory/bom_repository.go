package memory

import (
	"context"
	"sync"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// BOMRepository provides in-memory BOM storage.
type BOMRepository struct {
	mutex sync.RWMutex
	lines map[entities.PartNumber][]entities.BOMLine
}

// NewBOMRepository creates a new in-memory BOM repository.
func NewBOMRepository() *BOMRepository {
	return &BOMRepository{lines: make(map[entities.PartNumber][]entities.BOMLine)}
}

// Verify interface compliance
var _ repositories.BOMRepository = (*BOMRepository)(nil)

// LoadBOMLines loads BOM lines into the repository.
func (r *BOMRepository) LoadBOMLines(lines []*entities.BOMLine) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, line := range lines {
		r.lines[line.ParentPN] = append(r.lines[line.ParentPN], *line)
	}
	return nil
}

// AddBOMLine adds a single BOM line.
func (r *BOMRepository) AddBOMLine(line entities.BOMLine) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.lines[line.ParentPN] = append(r.lines[line.ParentPN], line)
}

// GetBOMLines returns the direct children of a parent part.
func (r *BOMRepository) GetBOMLines(ctx context.Context, parent entities.PartNumber) ([]entities.BOMLine, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	lines := r.lines[parent]
	out := make([]entities.BOMLine, len(lines))
	copy(out, lines)
	return out, nil
}
