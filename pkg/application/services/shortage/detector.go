// Package shortage implements the shortage detector: a pure diff of
// required lines against an availability read, classified by severity.
package shortage

import (
	"sort"

	"github.com/machshop/kitting/pkg/application/services/availability"
	"github.com/machshop/kitting/pkg/domain/entities"
)

// Detector classifies shortages. Detect is idempotent and side-effect-free:
// identical inputs always yield identical records, so it can be re-run on
// kit creation, on-demand refresh, and on inventory-change notifications.
type Detector struct{}

// NewDetector creates a shortage detector
func NewDetector() *Detector {
	return &Detector{}
}

// Detect diffs required lines against the availability result.
//
// Classification:
//   - shortfall 0: no record
//   - unknown availability: provisional Major, flagged for re-check
//   - shortfall covered by in-transit quantity not already counted into
//     net available: Informational
//   - partial shortfall with a substitute that can cover it: Major
//   - partial shortfall with no substitute, or a full shortfall: Blocking
//   - Major escalates to Blocking when the part's lead time exceeds the
//     work order's remaining slack
func (d *Detector) Detect(
	lines []entities.RequiredLine,
	avail *availability.Result,
	wo *entities.WorkOrder,
) []entities.ShortageRecord {
	var records []entities.ShortageRecord

	for _, line := range lines {
		snap := avail.Snapshot(line.Part)

		if snap.Unknown {
			records = append(records, entities.ShortageRecord{
				Part:        line.Part,
				Required:    line.Quantity,
				Available:   entities.Qty(0),
				Shortfall:   line.Quantity,
				Severity:    entities.SeverityMajor,
				Provisional: true,
				DetectedAt:  avail.TakenAt,
			})
			continue
		}

		shortfall := line.Quantity.Sub(snap.NetAvailable)
		if !shortfall.IsPositive() {
			continue
		}

		record := entities.ShortageRecord{
			Part:       line.Part,
			Required:   line.Quantity,
			Available:  snap.NetAvailable,
			Shortfall:  shortfall,
			DetectedAt: avail.TakenAt,
		}

		switch {
		case !avail.CountedInTransit && snap.NetAvailable.Add(snap.InTransit).Cmp(line.Quantity) >= 0:
			// Material is already inbound; receipt resolves the shortfall.
			// When the policy already counted in-transit into NetAvailable
			// this branch must not credit it a second time.
			record.Severity = entities.SeverityInformational

		case shortfall.Cmp(line.Quantity) < 0 && d.substituteCovering(line, shortfall, avail) != "":
			record.Severity = entities.SeverityMajor
			record.Substitute = d.substituteCovering(line, shortfall, avail)

		default:
			record.Severity = entities.SeverityBlocking
		}

		if record.Severity == entities.SeverityMajor {
			if line.LeadTimeDays > wo.RemainingSlackDays(avail.TakenAt) {
				record.Severity = entities.SeverityBlocking
			}
		}

		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Part < records[j].Part })
	return records
}

// substituteCovering returns the first approved substitute whose own
// net-available quantity covers the shortfall, or "".
func (d *Detector) substituteCovering(
	line entities.RequiredLine,
	shortfall entities.Quantity,
	avail *availability.Result,
) entities.PartNumber {
	for _, sub := range line.Substitutes {
		snap := avail.Snapshot(sub)
		if snap.Unknown {
			continue
		}
		if snap.NetAvailable.Cmp(shortfall) >= 0 {
			return sub
		}
	}
	return ""
}

// Summarize folds records into the denormalized per-kit summary.
func Summarize(records []entities.ShortageRecord) entities.ShortageSummary {
	var summary entities.ShortageSummary
	for _, record := range records {
		summary.Open++
		switch record.Severity {
		case entities.SeverityMajor:
			summary.Major++
		case entities.SeverityBlocking:
			summary.Blocking++
		}
	}
	return summary
}
