// Package export serializes scored facilities to the JSON document consumed
// by the map layer, and re-ingests it for round-trip verification.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/domain"
)

// Chemical is one exported release line. Zero-amount report lines are
// omitted from the document.
type Chemical struct {
	Name           string  `json:"name"`
	AmountKG       float64 `json:"amount_kg"`
	Pathway        string  `json:"pathway"`
	ToxicityWeight float64 `json:"toxicity_weight"`
}

// Record is one exported facility. RiskScore is null for facilities that
// could not be scored. The document never carries run timestamps so that two
// runs over the same input produce byte-identical output.
type Record struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Industry            string     `json:"industry"`
	Latitude            float64    `json:"latitude"`
	Longitude           float64    `json:"longitude"`
	EmployeeCount       int        `json:"employee_count"`
	TotalReleaseKG      float64    `json:"total_release_kg"`
	RiskScore           *float64   `json:"risk_score"`
	Anomaly             bool       `json:"anomaly"`
	AnomalyConfidence   float64    `json:"anomaly_confidence"`
	AnomalyVotes        []string   `json:"anomaly_votes"`
	ProximityMultiplier float64    `json:"proximity_multiplier"`
	CarcinogenCount     int        `json:"carcinogen_count"`
	Chemicals           []Chemical `json:"chemicals"`
}

// Write serializes the population as an indented JSON array sorted by
// facility ID. The toxicity table supplies the per-chemical weight shown on
// the map popup.
func Write(w io.Writer, scored []domain.ScoredFacility, table *domain.ToxicityTable) error {
	records := make([]Record, len(scored))
	for i, f := range scored {
		records[i] = newRecord(f, table)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding export document: %w", err)
	}
	return nil
}

// Read parses an exported document back into records, in document order.
func Read(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding export document: %w", err)
	}
	return records, nil
}

func newRecord(f domain.ScoredFacility, table *domain.ToxicityTable) Record {
	rec := Record{
		ID:                  f.ID,
		Name:                f.Name,
		Industry:            f.IndustryCode,
		Latitude:            f.Latitude,
		Longitude:           f.Longitude,
		EmployeeCount:       f.EmployeeCount,
		TotalReleaseKG:      round(f.TotalReleaseKG(), 3),
		Anomaly:             f.Anomaly,
		AnomalyConfidence:   f.AnomalyConfidence,
		AnomalyVotes:        votes(f.AnomalyVotes),
		ProximityMultiplier: round(f.ProximityMultiplier, 2),
		CarcinogenCount:     f.CarcinogenCount,
		Chemicals:           chemicals(f.Releases, table),
	}
	if f.RiskScore != nil {
		r := round(*f.RiskScore, 2)
		rec.RiskScore = &r
	}
	return rec
}

func chemicals(releases []domain.ChemicalRelease, table *domain.ToxicityTable) []Chemical {
	out := make([]Chemical, 0, len(releases))
	for _, r := range releases {
		if r.AmountKG == 0 {
			continue
		}
		out = append(out, Chemical{
			Name:           r.ChemicalName,
			AmountKG:       round(r.AmountKG, 3),
			Pathway:        string(r.Pathway),
			ToxicityWeight: table.Lookup(r.ChemicalName).ToxicityWeight,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AmountKG != out[j].AmountKG {
			return out[i].AmountKG > out[j].AmountKG
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// votes normalizes nil to an empty array so the exported field is always [].
func votes(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
