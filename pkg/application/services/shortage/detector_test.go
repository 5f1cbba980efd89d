package shortage

import (
	"testing"
	"time"

	"github.com/machshop/kitting/pkg/application/services/availability"
	"github.com/machshop/kitting/pkg/domain/entities"
)

func snapshotResult(snaps ...entities.InventorySnapshot) *availability.Result {
	result := &availability.Result{
		TakenAt:   time.Now().UTC(),
		Snapshots: make(map[entities.PartNumber]entities.InventorySnapshot, len(snaps)),
	}
	for _, snap := range snaps {
		result.Snapshots[snap.Part] = snap
	}
	return result
}

func known(pn string, net, inTransit int64) entities.InventorySnapshot {
	return entities.InventorySnapshot{
		Part:         entities.PartNumber(pn),
		OnHand:       entities.Qty(net),
		NetAvailable: entities.Qty(net),
		InTransit:    entities.Qty(inTransit),
	}
}

func line(pn string, qty int64, leadTimeDays int, subs ...string) entities.RequiredLine {
	l := entities.RequiredLine{
		Part:         entities.PartNumber(pn),
		Quantity:     entities.Qty(qty),
		LeadTimeDays: leadTimeDays,
	}
	for _, sub := range subs {
		l.Substitutes = append(l.Substitutes, entities.PartNumber(sub))
	}
	return l
}

func workOrderDueIn(days int) *entities.WorkOrder {
	return &entities.WorkOrder{
		ID:      "WO-1",
		DueDate: time.Now().UTC().AddDate(0, 0, days),
	}
}

func TestDetectNoRecordWhenCovered(t *testing.T) {
	records := NewDetector().Detect(
		[]entities.RequiredLine{line("P-1", 10, 5)},
		snapshotResult(known("P-1", 10, 0)),
		workOrderDueIn(30),
	)
	if len(records) != 0 {
		t.Fatalf("expected no shortage records, got %v", records)
	}
}

func TestDetectUnknownIsProvisionalMajor(t *testing.T) {
	records := NewDetector().Detect(
		[]entities.RequiredLine{line("P-1", 10, 5)},
		snapshotResult(),
		workOrderDueIn(30),
	)

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Severity != entities.SeverityMajor || !rec.Provisional {
		t.Errorf("expected provisional Major, got %s provisional=%v", rec.Severity, rec.Provisional)
	}
	if !rec.Shortfall.Equal(entities.Qty(10)) {
		t.Errorf("expected full shortfall 10, got %s", rec.Shortfall)
	}
}

func TestDetectInboundCoverIsInformational(t *testing.T) {
	records := NewDetector().Detect(
		[]entities.RequiredLine{line("P-1", 10, 5)},
		snapshotResult(known("P-1", 4, 20)),
		workOrderDueIn(30),
	)

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Severity != entities.SeverityInformational {
		t.Errorf("expected Informational, got %s", records[0].Severity)
	}
	if !records[0].Shortfall.Equal(entities.Qty(6)) {
		t.Errorf("expected shortfall 6, got %s", records[0].Shortfall)
	}
}

func TestDetectDoesNotDoubleCountInTransit(t *testing.T) {
	// Under a count-in-transit policy the checker folds in-transit into
	// NetAvailable; the inbound-cover branch must not credit it again.
	avail := snapshotResult(entities.InventorySnapshot{
		Part:         "P-1",
		OnHand:       entities.Qty(0),
		InTransit:    entities.Qty(6),
		NetAvailable: entities.Qty(6),
	})
	avail.CountedInTransit = true

	records := NewDetector().Detect(
		[]entities.RequiredLine{line("P-1", 10, 5)},
		avail,
		workOrderDueIn(30),
	)

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Severity != entities.SeverityBlocking {
		t.Errorf("expected Blocking, got %s", records[0].Severity)
	}
	if !records[0].Shortfall.Equal(entities.Qty(4)) {
		t.Errorf("expected shortfall 4, got %s", records[0].Shortfall)
	}
}

func TestDetectPartialShortfallWithSubstituteIsMajor(t *testing.T) {
	records := NewDetector().Detect(
		[]entities.RequiredLine{line("P-1", 10, 5, "P-1-ALT")},
		snapshotResult(known("P-1", 6, 0), known("P-1-ALT", 50, 0)),
		workOrderDueIn(30),
	)

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Severity != entities.SeverityMajor {
		t.Errorf("expected Major, got %s", rec.Severity)
	}
	if rec.Substitute != "P-1-ALT" {
		t.Errorf("expected substitute P-1-ALT, got %q", rec.Substitute)
	}
}

func TestDetectPartialShortfallWithoutSubstituteIsBlocking(t *testing.T) {
	records := NewDetector().Detect(
		[]entities.RequiredLine{line("P-1", 10, 5)},
		snapshotResult(known("P-1", 6, 0)),
		workOrderDueIn(30),
	)

	if len(records) != 1 || records[0].Severity != entities.SeverityBlocking {
		t.Fatalf("expected Blocking, got %v", records)
	}
}

func TestDetectFullShortfallIsBlockingEvenWithSubstitute(t *testing.T) {
	records := NewDetector().Detect(
		[]entities.RequiredLine{line("P-1", 10, 5, "P-1-ALT")},
		snapshotResult(known("P-1", 0, 0), known("P-1-ALT", 50, 0)),
		workOrderDueIn(30),
	)

	if len(records) != 1 || records[0].Severity != entities.SeverityBlocking {
		t.Fatalf("expected Blocking for a full shortfall, got %v", records)
	}
}

func TestDetectLeadTimeEscalatesMajorToBlocking(t *testing.T) {
	// The substitute covers the shortfall, but replenishment lead time
	// exceeds the work order's remaining slack.
	records := NewDetector().Detect(
		[]entities.RequiredLine{line("P-1", 10, 45, "P-1-ALT")},
		snapshotResult(known("P-1", 6, 0), known("P-1-ALT", 50, 0)),
		workOrderDueIn(30),
	)

	if len(records) != 1 || records[0].Severity != entities.SeverityBlocking {
		t.Fatalf("expected lead-time escalation to Blocking, got %v", records)
	}
}

func TestDetectIsIdempotent(t *testing.T) {
	lines := []entities.RequiredLine{
		line("P-2", 10, 5),
		line("P-1", 4, 5),
	}
	avail := snapshotResult(known("P-1", 0, 0), known("P-2", 3, 0))
	wo := workOrderDueIn(30)

	d := NewDetector()
	first := d.Detect(lines, avail, wo)
	second := d.Detect(lines, avail, wo)

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 records per run, got %d and %d", len(first), len(second))
	}
	// Output is sorted by part regardless of input order.
	if first[0].Part != "P-1" || first[1].Part != "P-2" {
		t.Errorf("expected records sorted by part, got %s, %s", first[0].Part, first[1].Part)
	}
	for i := range first {
		if first[i].Part != second[i].Part || first[i].Severity != second[i].Severity ||
			!first[i].Shortfall.Equal(second[i].Shortfall) {
			t.Errorf("record %d differs between runs", i)
		}
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]entities.ShortageRecord{
		{Severity: entities.SeverityInformational},
		{Severity: entities.SeverityMajor},
		{Severity: entities.SeverityBlocking},
		{Severity: entities.SeverityBlocking},
	})

	if summary.Open != 4 || summary.Major != 1 || summary.Blocking != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
}
