package services

import (
	"testing"

	"github.com/machshop/kitting/pkg/domain/entities"
)

func bomLine(parent, child string, stage int) entities.BOMLine {
	return entities.BOMLine{
		ParentPN:       entities.PartNumber(parent),
		ChildPN:        entities.PartNumber(child),
		QtyPer:         entities.Qty(1),
		EffectiveStage: stage,
	}
}

func TestValidateBOMCleanStructure(t *testing.T) {
	result := NewBOMValidator().ValidateBOM([]entities.BOMLine{
		bomLine("A", "B", 10),
		bomLine("A", "C", 10),
		bomLine("B", "D", 10),
	})

	if result.HasCycles {
		t.Errorf("expected no cycles, got %v", result.CyclePaths)
	}
	if len(result.DuplicateLines) != 0 {
		t.Errorf("expected no duplicates, got %v", result.DuplicateLines)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %v", result.Errors)
	}
}

func TestValidateBOMDetectsCycle(t *testing.T) {
	result := NewBOMValidator().ValidateBOM([]entities.BOMLine{
		bomLine("A", "B", 10),
		bomLine("B", "C", 10),
		bomLine("C", "A", 10),
	})

	if !result.HasCycles {
		t.Fatal("expected a cycle")
	}
	if len(result.CyclePaths) == 0 {
		t.Fatal("expected the cycle path to be reported")
	}
	cycle := result.CyclePaths[0]
	if cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("expected a closed cycle path, got %v", cycle)
	}
}

func TestValidateBOMDetectsSelfReference(t *testing.T) {
	result := NewBOMValidator().ValidateBOM([]entities.BOMLine{
		bomLine("A", "A", 10),
	})

	if !result.HasCycles {
		t.Error("expected a self-reference to read as a cycle")
	}
}

func TestValidateBOMDetectsDuplicateLines(t *testing.T) {
	result := NewBOMValidator().ValidateBOM([]entities.BOMLine{
		bomLine("A", "B", 10),
		bomLine("A", "B", 10),
	})

	if len(result.DuplicateLines) == 0 {
		t.Fatal("expected duplicate lines")
	}
	if len(result.Errors) == 0 {
		t.Error("expected duplicates to surface as errors")
	}
}

func TestValidateBOMAllowsSameLineAtDifferentStages(t *testing.T) {
	result := NewBOMValidator().ValidateBOM([]entities.BOMLine{
		bomLine("A", "B", 10),
		bomLine("A", "B", 20),
	})

	if len(result.DuplicateLines) != 0 {
		t.Errorf("the same pair at different stages is not a duplicate, got %v", result.DuplicateLines)
	}
}
