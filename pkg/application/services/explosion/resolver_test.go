package explosion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/machshop/kitting/pkg/domain/entities"
	enginetest "github.com/machshop/kitting/pkg/infrastructure/testing"
)

func TestExplodeAggregatesAcrossLevels(t *testing.T) {
	// A requires 2x B, B requires 3x C. One unit of A needs 2 B and 6 C.
	s := enginetest.NewScenario().
		AddPart("A", 0).AddPart("B", 5).AddPart("C", 10).
		AddBOMLine("A", "B", 2, 10).
		AddBOMLine("B", "C", 3, 10).
		AddWorkOrder("WO-1", "A", 1, 30, "final")

	lines, err := s.Resolver().Explode(context.Background(), "WO-1", "final")
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	assertLines(t, lines, map[string]int64{"B": 2, "C": 6})
}

func TestExplodeScalesByWorkOrderQuantity(t *testing.T) {
	s := enginetest.NewScenario().
		AddPart("A", 0).AddPart("B", 5).AddPart("C", 10).
		AddBOMLine("A", "B", 2, 10).
		AddBOMLine("B", "C", 3, 10).
		AddWorkOrder("WO-1", "A", 4, 30, "final")

	lines, err := s.Resolver().Explode(context.Background(), "WO-1", "final")
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	assertLines(t, lines, map[string]int64{"B": 8, "C": 24})
}

func TestExplodeSumsQuantityAcrossPaths(t *testing.T) {
	// D is reachable through both B and C; its quantities sum.
	s := enginetest.NewScenario().
		AddPart("A", 0).AddPart("B", 5).AddPart("C", 5).AddPart("D", 5).
		AddBOMLine("A", "B", 1, 10).
		AddBOMLine("A", "C", 1, 10).
		AddBOMLine("B", "D", 2, 10).
		AddBOMLine("C", "D", 3, 10).
		AddWorkOrder("WO-1", "A", 1, 30, "final")

	lines, err := s.Resolver().Explode(context.Background(), "WO-1", "final")
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	assertLines(t, lines, map[string]int64{"B": 1, "C": 1, "D": 5})

	for _, line := range lines {
		if line.Part == "D" && len(line.Paths) != 2 {
			t.Errorf("expected 2 expansion paths for D, got %v", line.Paths)
		}
	}
}

func TestExplodeFiltersByStage(t *testing.T) {
	s := enginetest.NewScenario().
		AddPart("A", 0).AddPart("B", 5).AddPart("C", 5).
		AddBOMLine("A", "B", 1, 10).
		AddBOMLine("A", "C", 1, 20).
		AddWorkOrder("WO-1", "A", 1, 30, "sub-assembly", "final")

	lines, err := s.Resolver().Explode(context.Background(), "WO-1", "sub-assembly")
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}
	assertLines(t, lines, map[string]int64{"B": 1})

	lines, err = s.Resolver().Explode(context.Background(), "WO-1", "final")
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}
	assertLines(t, lines, map[string]int64{"B": 1, "C": 1})
}

func TestExplodePhantomExpandsThrough(t *testing.T) {
	s := enginetest.NewScenario().
		AddPart("A", 0).AddPart("P", 0).AddPart("C", 5).
		AddPhantomLine("A", "P", 1, 10).
		AddBOMLine("P", "C", 2, 10).
		AddWorkOrder("WO-1", "A", 1, 30, "final")

	lines, err := s.Resolver().Explode(context.Background(), "WO-1", "final")
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	assertLines(t, lines, map[string]int64{"C": 2})
}

func TestExplodeStocksSubassemblyAsUnit(t *testing.T) {
	s := enginetest.NewScenario().
		AddPart("A", 0).AddPart("X", 5).
		AddStockedSubassembly("S", 7).
		AddBOMLine("A", "S", 1, 10).
		AddBOMLine("S", "X", 4, 10).
		AddWorkOrder("WO-1", "A", 1, 30, "final")

	lines, err := s.Resolver().Explode(context.Background(), "WO-1", "final")
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	assertLines(t, lines, map[string]int64{"S": 1})
}

func TestExplodeCollectsSubstitutes(t *testing.T) {
	s := enginetest.NewScenario().
		AddPart("A", 0).
		AddSubstituteGroup("resistor-10k", 5, "R1", "R2", "R3").
		AddBOMLine("A", "R1", 2, 10).
		AddWorkOrder("WO-1", "A", 1, 30, "final")

	lines, err := s.Resolver().Explode(context.Background(), "WO-1", "final")
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	subs := lines[0].Substitutes
	if len(subs) != 2 || subs[0] != "R2" || subs[1] != "R3" {
		t.Errorf("expected substitutes [R2 R3], got %v", subs)
	}
}

func TestExplodeDetectsCycle(t *testing.T) {
	s := enginetest.NewScenario().
		AddPart("A", 0).AddPart("B", 0).
		AddBOMLine("A", "B", 1, 10).
		AddBOMLine("B", "A", 1, 10).
		AddWorkOrder("WO-1", "A", 1, 30, "final")

	_, err := s.Resolver().Explode(context.Background(), "WO-1", "final")

	var cycleErr *entities.BOMCycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected BOMCycleError, got %v", err)
	}
	if cycleErr.Part != "A" {
		t.Errorf("expected cycle at A, got %s", cycleErr.Part)
	}
}

func TestExplodeUnknownWorkOrder(t *testing.T) {
	s := enginetest.NewScenario()

	_, err := s.Resolver().Explode(context.Background(), "WO-404", "final")

	var woErr *entities.UnknownWorkOrderError
	if !errors.As(err, &woErr) {
		t.Fatalf("expected UnknownWorkOrderError, got %v", err)
	}
	if woErr.Cancelled {
		t.Error("expected non-cancelled unknown work order")
	}
}

func TestExplodeCancelledWorkOrder(t *testing.T) {
	s := enginetest.NewScenario().
		AddPart("A", 0).AddPart("B", 0).
		AddBOMLine("A", "B", 1, 10).
		AddWorkOrder("WO-1", "A", 1, 30, "final")
	s.WorkOrders.CancelWorkOrder("WO-1")

	_, err := s.Resolver().Explode(context.Background(), "WO-1", "final")

	var woErr *entities.UnknownWorkOrderError
	if !errors.As(err, &woErr) {
		t.Fatalf("expected UnknownWorkOrderError, got %v", err)
	}
	if !woErr.Cancelled {
		t.Error("expected the error to carry the cancelled flag")
	}
}

func TestExplodeUnknownStage(t *testing.T) {
	s := enginetest.NewScenario().
		AddPart("A", 0).
		AddWorkOrder("WO-1", "A", 1, 30, "final")

	_, err := s.Resolver().Explode(context.Background(), "WO-1", "paint")

	var stageErr *entities.UnknownStageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected UnknownStageError, got %v", err)
	}
}

func TestExplodeIsDeterministic(t *testing.T) {
	s := enginetest.NewScenario().
		AddPart("A", 0).AddPart("B", 5).AddPart("C", 5).AddPart("D", 5).
		AddBOMLine("A", "C", 1, 10).
		AddBOMLine("A", "B", 1, 10).
		AddBOMLine("B", "D", 2, 10).
		AddBOMLine("C", "D", 3, 10).
		AddWorkOrder("WO-1", "A", 2, 30, "final")

	first, err := s.Resolver().Explode(context.Background(), "WO-1", "final")
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}
	second, err := s.Resolver().Explode(context.Background(), "WO-1", "final")
	if err != nil {
		t.Fatalf("Explode failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Part != second[i].Part || !first[i].Quantity.Equal(second[i].Quantity) {
			t.Errorf("line %d differs between runs: %v vs %v", i, first[i], second[i])
		}
	}
}

func assertLines(t *testing.T, lines []entities.RequiredLine, want map[string]int64) {
	t.Helper()

	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(lines), lines)
	}
	for _, line := range lines {
		wantQty, ok := want[string(line.Part)]
		if !ok {
			t.Errorf("unexpected line for part %s", line.Part)
			continue
		}
		if !line.Quantity.Equal(entities.Qty(wantQty)) {
			t.Errorf("part %s: expected quantity %d, got %s", line.Part, wantQty, line.Quantity)
		}
	}
}
