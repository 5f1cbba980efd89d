package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/machshop/kitting/pkg/domain/entities"
	"github.com/machshop/kitting/pkg/domain/repositories"
)

// PartRepository provides in-memory part master storage.
type PartRepository struct {
	mutex  sync.RWMutex
	parts  map[entities.PartNumber]entities.Part
	groups map[string][]entities.PartNumber
}

// NewPartRepository creates a new in-memory part repository.
func NewPartRepository() *PartRepository {
	return &PartRepository{
		parts:  make(map[entities.PartNumber]entities.Part),
		groups: make(map[string][]entities.PartNumber),
	}
}

// Verify interface compliance
var _ repositories.PartRepository = (*PartRepository)(nil)

// LoadParts loads parts into the repository. Substitution groups are built
// in load order, which is the approval order.
func (r *PartRepository) LoadParts(parts []*entities.Part) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, part := range parts {
		r.parts[part.PartNumber] = *part
		if part.SubstitutionGroup != "" {
			r.groups[part.SubstitutionGroup] = append(r.groups[part.SubstitutionGroup], part.PartNumber)
		}
	}
	return nil
}

// GetPart returns part master data for a part number.
func (r *PartRepository) GetPart(ctx context.Context, pn entities.PartNumber) (*entities.Part, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	part, exists := r.parts[pn]
	if !exists {
		return nil, fmt.Errorf("part not found: %s", pn)
	}
	out := part
	return &out, nil
}

// GetSubstitutes returns the other members of the part's substitution group.
func (r *PartRepository) GetSubstitutes(ctx context.Context, pn entities.PartNumber) ([]entities.PartNumber, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	part, exists := r.parts[pn]
	if !exists || part.SubstitutionGroup == "" {
		return nil, nil
	}

	var subs []entities.PartNumber
	for _, member := range r.groups[part.SubstitutionGroup] {
		if member != pn {
			subs = append(subs, member)
		}
	}
	return subs, nil
}
