package repositories

import (
	"context"

	"github.com/machshop/kitting/pkg/domain/entities"
)

// BOMRepository reads the BOM graph from the part-master collaborator.
type BOMRepository interface {
	// GetBOMLines returns the direct children of a parent part. An empty
	// slice means the part is a leaf.
	GetBOMLines(ctx context.Context, parent entities.PartNumber) ([]entities.BOMLine, error)
}

// PartRepository reads part reference data from the part-master
// collaborator.
type PartRepository interface {
	GetPart(ctx context.Context, pn entities.PartNumber) (*entities.Part, error)

	// GetSubstitutes returns the other members of the part's substitution
	// group, in approval order. Empty when the part has no group.
	GetSubstitutes(ctx context.Context, pn entities.PartNumber) ([]entities.PartNumber, error)
}
