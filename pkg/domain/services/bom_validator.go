package services

import (
	"fmt"

	"github.com/machshop/kitting/pkg/domain/entities"
)

// BOMValidator provides structural validation for a BOM line set before it
// is used for explosion.
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles      bool
	CyclePaths     [][]entities.PartNumber
	DuplicateLines []entities.BOMLine
	Errors         []string
}

// ValidateBOM checks a set of BOM lines for cycles and duplicate lines.
func (v *BOMValidator) ValidateBOM(bomLines []entities.BOMLine) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:     make([][]entities.PartNumber, 0),
		DuplicateLines: make([]entities.BOMLine, 0),
		Errors:         make([]string, 0),
	}

	adjacency := v.buildAdjacencyMap(bomLines)

	cycles := v.detectCycles(adjacency)
	result.HasCycles = len(cycles) > 0
	result.CyclePaths = cycles

	result.DuplicateLines = v.detectDuplicateLines(bomLines)

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}
	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("found %d duplicate BOM lines", len(result.DuplicateLines)))
	}

	return result
}

// buildAdjacencyMap creates a map of parent -> children relationships
func (v *BOMValidator) buildAdjacencyMap(bomLines []entities.BOMLine) map[entities.PartNumber][]entities.PartNumber {
	adjacency := make(map[entities.PartNumber][]entities.PartNumber)

	for _, line := range bomLines {
		children := adjacency[line.ParentPN]

		found := false
		for _, child := range children {
			if child == line.ChildPN {
				found = true
				break
			}
		}
		if !found {
			adjacency[line.ParentPN] = append(children, line.ChildPN)
		}
	}

	return adjacency
}

// detectCycles uses DFS to find cycles in the BOM structure
func (v *BOMValidator) detectCycles(adjacency map[entities.PartNumber][]entities.PartNumber) [][]entities.PartNumber {
	visited := make(map[entities.PartNumber]bool)
	onStack := make(map[entities.PartNumber]bool)
	cycles := make([][]entities.PartNumber, 0)

	for parent := range adjacency {
		if !visited[parent] {
			path := make([]entities.PartNumber, 0)
			v.dfsDetectCycle(parent, adjacency, visited, onStack, path, &cycles)
		}
	}

	return cycles
}

func (v *BOMValidator) dfsDetectCycle(
	current entities.PartNumber,
	adjacency map[entities.PartNumber][]entities.PartNumber,
	visited map[entities.PartNumber]bool,
	onStack map[entities.PartNumber]bool,
	path []entities.PartNumber,
	cycles *[][]entities.PartNumber,
) {
	visited[current] = true
	onStack[current] = true
	path = append(path, current)

	for _, child := range adjacency[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacency, visited, onStack, path, cycles)
		} else if onStack[child] {
			// Found a cycle - extract the cycle path
			cycleStart := -1
			for i, part := range path {
				if part == child {
					cycleStart = i
					break
				}
			}
			if cycleStart != -1 {
				cycle := make([]entities.PartNumber, 0, len(path)-cycleStart+1)
				cycle = append(cycle, path[cycleStart:]...)
				cycle = append(cycle, child) // Close the cycle
				*cycles = append(*cycles, cycle)
			}
		}
	}

	onStack[current] = false
}

// detectDuplicateLines finds duplicate BOM lines (same parent, child, stage)
func (v *BOMValidator) detectDuplicateLines(bomLines []entities.BOMLine) []entities.BOMLine {
	seen := make(map[string]entities.BOMLine)
	duplicates := make([]entities.BOMLine, 0)

	for _, line := range bomLines {
		key := fmt.Sprintf("%s|%s|%d", line.ParentPN, line.ChildPN, line.EffectiveStage)

		if existing, exists := seen[key]; exists {
			duplicates = append(duplicates, line, existing)
		} else {
			seen[key] = line
		}
	}

	return duplicates
}
