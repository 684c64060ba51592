// Package ingest loads ChemTRAC release CSVs into facility records.
//
// One input row describes one facility-chemical pair with the mass released
// per pathway. Rows are grouped by facility id; malformed rows are skipped
// with a warning and never abort the run. Only a file that cannot be read or
// lacks the required header is fatal.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/domain"
)

// ChemTRAC 2024 column headers.
const (
	colFacilityID    = "FACILITY_ID"
	colFacilityName  = "FACILITY_NAME"
	colIndustry      = "NAICS_CODE_6_DESC_ENG"
	colEmployeeCount = "EMPLOYEE_COUNT"
	colLatitude      = "FA_LAT"
	colLongitude     = "FA_LON"
	colChemicalName  = "CHEMICAL_NAME"
	colReleaseAir    = "REL_AIR"
	colReleaseWater  = "REL_WATER"
	colReleaseLand   = "REL_LAND"
	colReleaseDisp   = "REL_DISPOSAL"
	colReleaseRecyc  = "REL_RECYCLING"
)

var requiredColumns = []string{
	colFacilityID, colFacilityName, colChemicalName,
	colReleaseAir, colReleaseWater, colReleaseLand, colReleaseDisp, colReleaseRecyc,
}

// releaseColumns maps pathway columns to their domain pathway.
var releaseColumns = []struct {
	column  string
	pathway domain.Pathway
}{
	{colReleaseAir, domain.PathwayAir},
	{colReleaseWater, domain.PathwayWater},
	{colReleaseLand, domain.PathwayLand},
	{colReleaseDisp, domain.PathwayDisposal},
	{colReleaseRecyc, domain.PathwayRecycling},
}

// Result is the outcome of one ingestion pass.
type Result struct {
	Facilities  []domain.Facility
	RowsRead    int
	RowsSkipped int
}

// ReadFile ingests a ChemTRAC CSV from disk.
func ReadFile(path string, logger *slog.Logger) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open input csv: %w", err)
	}
	defer f.Close()
	return Read(f, logger)
}

// Read ingests ChemTRAC CSV rows, grouping them into one Facility per
// FACILITY_ID. Facility metadata comes from the first row seen for that id;
// output is ordered by id so ingestion is deterministic regardless of input
// ordering.
func Read(r io.Reader, logger *slog.Logger) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows are validated individually

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Result{}, errors.New("input csv is empty")
		}
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			return Result{}, fmt.Errorf("input csv missing required column %q", col)
		}
	}

	var result Result
	byID := make(map[string]*domain.Facility)

	// rowNum is the 1-based data row position; every row counts as either
	// read or skipped, never both.
	rowNum := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			// A structurally broken row (bare quote etc.) is skipped like any
			// other malformed record.
			result.RowsSkipped++
			logger.Warn("unreadable csv row, skipping", "row", rowNum, "error", err)
			continue
		}

		if err := ingestRow(row, colIdx, byID); err != nil {
			result.RowsSkipped++
			logger.Warn("malformed release row, skipping",
				"row", rowNum,
				"facility_id", get(row, colIdx, colFacilityID),
				"chemical", get(row, colIdx, colChemicalName),
				"error", err,
			)
			continue
		}
		result.RowsRead++
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result.Facilities = make([]domain.Facility, 0, len(ids))
	for _, id := range ids {
		result.Facilities = append(result.Facilities, *byID[id])
	}
	return result, nil
}

// ingestRow validates one facility-chemical row and folds it into the
// accumulator. Each positive pathway cell becomes one ChemicalRelease.
func ingestRow(row []string, colIdx map[string]int, byID map[string]*domain.Facility) error {
	id := strings.TrimSpace(get(row, colIdx, colFacilityID))
	if id == "" {
		return errors.New("missing facility id")
	}
	chemical := strings.TrimSpace(get(row, colIdx, colChemicalName))
	if chemical == "" {
		return errors.New("missing chemical name")
	}

	releases := make([]domain.ChemicalRelease, 0, len(releaseColumns))
	for _, rc := range releaseColumns {
		cell := strings.TrimSpace(get(row, colIdx, rc.column))
		if cell == "" {
			continue
		}
		amount, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return fmt.Errorf("non-numeric %s amount %q", rc.pathway, cell)
		}
		if amount < 0 {
			return fmt.Errorf("negative %s amount %v", rc.pathway, amount)
		}
		if amount == 0 {
			continue
		}
		releases = append(releases, domain.ChemicalRelease{
			ChemicalName: chemical,
			AmountKG:     amount,
			Pathway:      rc.pathway,
		})
	}

	fac, ok := byID[id]
	if !ok {
		fac = &domain.Facility{
			ID:            id,
			Name:          strings.TrimSpace(get(row, colIdx, colFacilityName)),
			IndustryCode:  strings.TrimSpace(get(row, colIdx, colIndustry)),
			Latitude:      parseFloatOrZero(get(row, colIdx, colLatitude)),
			Longitude:     parseFloatOrZero(get(row, colIdx, colLongitude)),
			EmployeeCount: parseIntOrZero(get(row, colIdx, colEmployeeCount)),
		}
		byID[id] = fac
	}
	fac.Releases = append(fac.Releases, releases...)
	return nil
}

func get(row []string, colIdx map[string]int, col string) string {
	i, ok := colIdx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseFloatOrZero parses a string as float64, returning 0 on failure.
func parseFloatOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseIntOrZero(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
