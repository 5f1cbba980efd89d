// Package csv loads reference data from CSV files: parts, BOM lines, work
// orders, staging locations and stock levels. It exists for demos and for
// sites that export collaborator data as flat files.
package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/machshop/kitting/pkg/domain/entities"
)

// Loader reads reference data CSV files.
type Loader struct{}

// NewLoader creates a new CSV loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadParts loads parts from a CSV file.
func (l *Loader) LoadParts(filename string) ([]*entities.Part, error) {
	records, err := readCSV(filename, []string{
		"part_number", "description", "unit_of_measure", "lead_time_days", "substitution_group", "stocked_subassembly",
	})
	if err != nil {
		return nil, fmt.Errorf("parts CSV: %w", err)
	}

	var parts []*entities.Part
	for i, record := range records {
		leadTime, err := strconv.Atoi(record[3])
		if err != nil {
			return nil, fmt.Errorf("parts CSV row %d: invalid lead_time_days %q: %w", i+2, record[3], err)
		}
		stocked, err := parseBool(record[5])
		if err != nil {
			return nil, fmt.Errorf("parts CSV row %d: invalid stocked_subassembly %q: %w", i+2, record[5], err)
		}

		parts = append(parts, &entities.Part{
			PartNumber:         entities.PartNumber(record[0]),
			Description:        record[1],
			UnitOfMeasure:      record[2],
			LeadTimeDays:       leadTime,
			SubstitutionGroup:  record[4],
			StockedSubassembly: stocked,
		})
	}
	return parts, nil
}

// LoadBOM loads BOM lines from a CSV file. Alternates are pipe-separated
// within the field.
func (l *Loader) LoadBOM(filename string) ([]*entities.BOMLine, error) {
	records, err := readCSV(filename, []string{
		"parent_pn", "child_pn", "qty_per", "unit_of_measure", "effective_stage", "phantom", "alternates",
	})
	if err != nil {
		return nil, fmt.Errorf("BOM CSV: %w", err)
	}

	var lines []*entities.BOMLine
	for i, record := range records {
		qtyPer, err := entities.QtyFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: invalid qty_per %q: %w", i+2, record[2], err)
		}
		stage, err := strconv.Atoi(record[4])
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: invalid effective_stage %q: %w", i+2, record[4], err)
		}
		phantom, err := parseBool(record[5])
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: invalid phantom %q: %w", i+2, record[5], err)
		}

		line, err := entities.NewBOMLine(
			entities.PartNumber(record[0]), entities.PartNumber(record[1]), qtyPer, record[3], stage)
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}
		line.Phantom = phantom
		if record[6] != "" {
			for _, alt := range strings.Split(record[6], "|") {
				line.Alternates = append(line.Alternates, entities.PartNumber(alt))
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// LoadWorkOrders loads work orders from a CSV file. The routing field holds
// pipe-separated name:sequence pairs, e.g. "sub-assembly:10|final:20".
func (l *Loader) LoadWorkOrders(filename string) ([]*entities.WorkOrder, error) {
	records, err := readCSV(filename, []string{
		"id", "top_level_part", "quantity", "routing", "due_date", "priority",
	})
	if err != nil {
		return nil, fmt.Errorf("work orders CSV: %w", err)
	}

	var workOrders []*entities.WorkOrder
	for i, record := range records {
		qty, err := entities.QtyFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("work orders CSV row %d: invalid quantity %q: %w", i+2, record[2], err)
		}
		routing, err := parseRouting(record[3])
		if err != nil {
			return nil, fmt.Errorf("work orders CSV row %d: %w", i+2, err)
		}
		dueDate, err := time.Parse("2006-01-02", record[4])
		if err != nil {
			return nil, fmt.Errorf("work orders CSV row %d: invalid due_date %q: %w", i+2, record[4], err)
		}
		priority, err := parsePriority(record[5])
		if err != nil {
			return nil, fmt.Errorf("work orders CSV row %d: %w", i+2, err)
		}

		workOrders = append(workOrders, &entities.WorkOrder{
			ID:           record[0],
			TopLevelPart: entities.PartNumber(record[1]),
			Quantity:     qty,
			Routing:      routing,
			DueDate:      dueDate,
			Priority:     priority,
		})
	}
	return workOrders, nil
}

// LoadLocations loads staging locations from a CSV file. Attributes are
// pipe-separated within the field.
func (l *Loader) LoadLocations(filename string) ([]*entities.StagingLocation, error) {
	records, err := readCSV(filename, []string{
		"id", "capacity", "attributes", "proximity",
	})
	if err != nil {
		return nil, fmt.Errorf("locations CSV: %w", err)
	}

	var locations []*entities.StagingLocation
	for i, record := range records {
		capacity, err := entities.QtyFromString(record[1])
		if err != nil {
			return nil, fmt.Errorf("locations CSV row %d: invalid capacity %q: %w", i+2, record[1], err)
		}
		proximity, err := strconv.Atoi(record[3])
		if err != nil {
			return nil, fmt.Errorf("locations CSV row %d: invalid proximity %q: %w", i+2, record[3], err)
		}

		var attrs []entities.LocationAttribute
		if record[2] != "" {
			for _, a := range strings.Split(record[2], "|") {
				attrs = append(attrs, entities.LocationAttribute(a))
			}
		}

		locations = append(locations, &entities.StagingLocation{
			ID:         record[0],
			Capacity:   capacity,
			Occupancy:  entities.Qty(0),
			Attributes: attrs,
			Status:     entities.LocationAvailable,
			Proximity:  proximity,
		})
	}
	return locations, nil
}

// LoadStock loads stock levels from a CSV file.
func (l *Loader) LoadStock(filename string) ([]*entities.StockLevels, error) {
	records, err := readCSV(filename, []string{
		"part", "on_hand", "reserved", "in_transit",
	})
	if err != nil {
		return nil, fmt.Errorf("stock CSV: %w", err)
	}

	var stock []*entities.StockLevels
	for i, record := range records {
		s := &entities.StockLevels{Part: entities.PartNumber(record[0])}
		if s.OnHand, err = entities.QtyFromString(record[1]); err != nil {
			return nil, fmt.Errorf("stock CSV row %d: invalid on_hand %q: %w", i+2, record[1], err)
		}
		if s.Reserved, err = entities.QtyFromString(record[2]); err != nil {
			return nil, fmt.Errorf("stock CSV row %d: invalid reserved %q: %w", i+2, record[2], err)
		}
		if s.InTransit, err = entities.QtyFromString(record[3]); err != nil {
			return nil, fmt.Errorf("stock CSV row %d: invalid in_transit %q: %w", i+2, record[3], err)
		}
		stock = append(stock, s)
	}
	return stock, nil
}

// readCSV opens the file, validates the header and returns the data rows.
func readCSV(filename string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s must have a header and at least one data row", filename)
	}

	header := records[0]
	if len(header) != len(expectedHeader) {
		return nil, fmt.Errorf("header mismatch, expected %v, got %v", expectedHeader, header)
	}
	for i := range header {
		if strings.TrimSpace(header[i]) != expectedHeader[i] {
			return nil, fmt.Errorf("header mismatch, expected %v, got %v", expectedHeader, header)
		}
	}

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}
	}
	return records[1:], nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

func parsePriority(s string) (entities.Priority, error) {
	switch strings.TrimSpace(s) {
	case "Normal", "":
		return entities.PriorityNormal, nil
	case "High":
		return entities.PriorityHigh, nil
	case "Urgent":
		return entities.PriorityUrgent, nil
	default:
		return entities.PriorityNormal, fmt.Errorf("invalid priority %q", s)
	}
}

func parseRouting(s string) ([]entities.AssemblyStage, error) {
	if s == "" {
		return nil, fmt.Errorf("routing cannot be empty")
	}

	var routing []entities.AssemblyStage
	for _, pair := range strings.Split(s, "|") {
		name, seqStr, found := strings.Cut(pair, ":")
		if !found {
			return nil, fmt.Errorf("invalid routing entry %q, expected name:sequence", pair)
		}
		seq, err := strconv.Atoi(seqStr)
		if err != nil {
			return nil, fmt.Errorf("invalid routing sequence in %q: %w", pair, err)
		}
		routing = append(routing, entities.AssemblyStage{Name: name, Sequence: seq})
	}
	return routing, nil
}
