package repositories

import (
	"context"

	"github.com/machshop/kitting/pkg/domain/entities"
)

// ShortageFilter narrows a shortage report query. Zero values match
// everything.
type ShortageFilter struct {
	WorkOrderID string
	Part        entities.PartNumber
	Severity    entities.ShortageSeverity
	HasSeverity bool
}

// ShortageRepository stores derived shortage records for the reporting
// queries. Records are replaced per kit on each refresh.
type ShortageRepository interface {
	ReplaceForKit(ctx context.Context, kitID string, workOrderID string, records []entities.ShortageRecord) error
	Query(ctx context.Context, filter ShortageFilter) ([]entities.ShortageRecord, error)
}
