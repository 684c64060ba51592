package domain

import "time"

// Pathway is the environmental medium a release enters.
type Pathway string

const (
	PathwayAir       Pathway = "air"
	PathwayWater     Pathway = "water"
	PathwayLand      Pathway = "land"
	PathwayDisposal  Pathway = "disposal"
	PathwayRecycling Pathway = "recycling"
)

// Multiplier returns the exposure weight for a pathway. Direct
// inhalation carries full weight; contained disposal and recovery processes
// carry the least.
func (p Pathway) Multiplier() float64 {
	switch p {
	case PathwayAir:
		return 1.0
	case PathwayWater:
		return 0.95
	case PathwayLand:
		return 0.7
	case PathwayDisposal:
		return 0.3
	case PathwayRecycling:
		return 0.15
	default:
		return 0
	}
}

// Valid reports whether p is one of the five known pathways.
func (p Pathway) Valid() bool {
	switch p {
	case PathwayAir, PathwayWater, PathwayLand, PathwayDisposal, PathwayRecycling:
		return true
	}
	return false
}

// ChemicalRelease is one reported release of a chemical through a single
// pathway. Zero-amount entries are valid but excluded from exported chemical
// breakdowns.
type ChemicalRelease struct {
	ChemicalName string  `json:"name"`
	AmountKG     float64 `json:"amount_kg"`
	Pathway      Pathway `json:"pathway"`
}

// Facility is one reporting facility with all of its releases for the year.
// Records are created once per ingestion run and never mutated afterwards;
// scoring produces a derived ScoredFacility instead.
type Facility struct {
	ID            string
	Name          string
	IndustryCode  string
	Latitude      float64
	Longitude     float64
	EmployeeCount int
	Releases      []ChemicalRelease
}

// HasCoordinates reports whether the facility carries usable WGS-84
// coordinates. ChemTRAC encodes missing coordinates as empty cells, which
// parse to (0, 0) — a point in the Gulf of Guinea, never in Toronto.
func (f Facility) HasCoordinates() bool {
	if f.Latitude == 0 && f.Longitude == 0 {
		return false
	}
	return f.Latitude >= -90 && f.Latitude <= 90 && f.Longitude >= -180 && f.Longitude <= 180
}

// TotalReleaseKG sums the release mass across all pathways.
func (f Facility) TotalReleaseKG() float64 {
	var total float64
	for _, r := range f.Releases {
		total += r.AmountKG
	}
	return total
}

// ScoredFacility is the derived, immutable record produced by the scoring and
// anomaly stages. RiskScore is nil when the facility could not be scored
// (missing coordinates); nil is distinct from a true score of zero.
type ScoredFacility struct {
	Facility

	ToxicityWeightedExposure float64
	ReleaseVolumeScore       float64
	MaxToxicity              float64
	HeavyMetalMassKG         float64
	ProximityMultiplier      float64
	CarcinogenCount          int

	// IndustryNormalizedRelease is the z-score of log release volume against
	// the industry peer group, fed to the anomaly ensemble.
	IndustryNormalizedRelease float64

	RiskScore         *float64
	Unscored          bool
	Anomaly           bool
	AnomalyConfidence float64
	AnomalyVotes      []string

	// ProcessedAt stamps the run; it is carried in Kafka headers but kept out
	// of every serialized body so identical inputs produce identical bytes.
	ProcessedAt time.Time `json:"-"`
}

// Detector names as they appear in AnomalyVotes, in vote order.
const (
	DetectorGlobalOutlier       = "global_outlier"
	DetectorIndustryOutlier     = "industry_outlier"
	DetectorExtremeRisk         = "extreme_risk"
	DetectorCarcinogenProximity = "carcinogen_proximity"
)
