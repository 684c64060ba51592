package scoring

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/domain"
)

// Composite weights for the base risk score. Normative: changing them changes
// the relative ranking the map presents.
const (
	weightToxicityExposure = 0.40
	weightReleaseVolume    = 0.25
	weightMaxToxicity      = 0.20
	weightHeavyMetals      = 0.15

	// Facilities releasing two or more carcinogens get a flat risk uplift.
	carcinogenBonusThreshold = 2
	carcinogenBonusFactor    = 1.15
)

// Scorer combines releases, the toxicity table, the proximity engine, and
// industry statistics into ScoredFacility records. Scoring is deterministic:
// a fixed input population always yields identical output.
type Scorer struct {
	table      *domain.ToxicityTable
	proximity  *domain.ProximityEngine
	normalizer *IndustryNormalizer
}

// NewScorer wires a scorer from its reference inputs. The normalizer must
// already cover the population being scored.
func NewScorer(table *domain.ToxicityTable, proximity *domain.ProximityEngine, normalizer *IndustryNormalizer) *Scorer {
	return &Scorer{table: table, proximity: proximity, normalizer: normalizer}
}

// rawFeatures are the per-facility aggregates computed before population
// normalization.
type rawFeatures struct {
	toxicityWeightedExposure float64
	maxToxicity              float64
	heavyMetalMassKG         float64
	carcinogenCount          int
}

// ScoreAll scores every facility in the population. Facilities without
// coordinates are marked unscored (nil risk) and excluded from the
// population-relative normalization; everything else receives a risk score in
// [0,100]. Output order matches input order.
func (s *Scorer) ScoreAll(facilities []domain.Facility) []domain.ScoredFacility {
	now := domain.Clock().Now()
	scored := make([]domain.ScoredFacility, len(facilities))

	// First pass: per-facility aggregates, independent of the population.
	features := make([]rawFeatures, len(facilities))
	scorable := make([]bool, len(facilities))
	var exposures, maxToxes, heavyMasses []float64
	for i, f := range facilities {
		features[i] = s.aggregateReleases(f)
		scorable[i] = f.HasCoordinates()
		if scorable[i] {
			exposures = append(exposures, features[i].toxicityWeightedExposure)
			maxToxes = append(maxToxes, features[i].maxToxicity)
			heavyMasses = append(heavyMasses, features[i].heavyMetalMassKG)
		}
	}

	normExposure := newPopulationNorm(exposures)
	normMaxTox := newPopulationNorm(maxToxes)
	normHeavy := newPopulationNorm(heavyMasses)

	// Second pass: population-relative scoring.
	for i, f := range facilities {
		ft := features[i]
		out := domain.ScoredFacility{
			Facility:                 f,
			ToxicityWeightedExposure: ft.toxicityWeightedExposure,
			MaxToxicity:              ft.maxToxicity,
			HeavyMetalMassKG:         ft.heavyMetalMassKG,
			CarcinogenCount:          ft.carcinogenCount,
			ProximityMultiplier:      1.0,
			ProcessedAt:              now,
		}

		if !scorable[i] {
			// No coordinates: proximity is incomputable, so the facility is
			// explicitly unscored rather than silently scored as zero risk.
			out.Unscored = true
			scored[i] = out
			continue
		}

		stats := s.normalizer.StatsFor(f.IndustryCode)
		lv := logVolume(f.TotalReleaseKG())
		out.ReleaseVolumeScore = stats.PercentileRank(lv)
		out.IndustryNormalizedRelease = stats.ZScore(lv)
		out.ProximityMultiplier = s.proximity.Multiplier(f.Latitude, f.Longitude)

		risk := s.compositeRisk(out, normExposure, normMaxTox, normHeavy)
		out.RiskScore = &risk
		scored[i] = out
	}
	return scored
}

// compositeRisk applies the weighted sum, proximity multiplier, carcinogen
// bonus, and final clamp.
func (s *Scorer) compositeRisk(f domain.ScoredFacility, normExposure, normMaxTox, normHeavy populationNorm) float64 {
	// A facility that released nothing carries no risk, regardless of what it
	// reported or where it sits.
	if f.TotalReleaseKG() == 0 {
		return 0
	}

	base := weightToxicityExposure*normExposure.rank(f.ToxicityWeightedExposure) +
		weightReleaseVolume*f.ReleaseVolumeScore +
		weightMaxToxicity*normMaxTox.rank(f.MaxToxicity) +
		weightHeavyMetals*normHeavy.rank(f.HeavyMetalMassKG)

	adjusted := base * f.ProximityMultiplier
	if f.CarcinogenCount >= carcinogenBonusThreshold {
		adjusted *= carcinogenBonusFactor
	}
	return clamp(adjusted, 0, 100)
}

// aggregateReleases folds a facility's releases through the toxicity table.
func (s *Scorer) aggregateReleases(f domain.Facility) rawFeatures {
	var ft rawFeatures
	carcinogens := make(map[string]bool)

	for _, r := range f.Releases {
		entry := s.table.Lookup(r.ChemicalName)

		ft.toxicityWeightedExposure += r.AmountKG * r.Pathway.Multiplier() * entry.ToxicityWeight
		if entry.ToxicityWeight > ft.maxToxicity {
			ft.maxToxicity = entry.ToxicityWeight
		}
		if entry.IsHeavyMetal {
			ft.heavyMetalMassKG += r.AmountKG
		}
		if entry.IsCarcinogen && r.AmountKG > 0 {
			carcinogens[entry.ChemicalName] = true
		}
	}

	ft.carcinogenCount = len(carcinogens)
	return ft
}

// populationNorm rescales a feature to [0,100] by percentile rank across the
// scored population. Percentile rank (rather than min-max) is used for all
// four composite terms so a single extreme emitter cannot compress everyone
// else toward zero; the choice is applied uniformly to keep the composite
// unbiased.
type populationNorm struct {
	sorted []float64
}

func newPopulationNorm(values []float64) populationNorm {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return populationNorm{sorted: sorted}
}

func (n populationNorm) rank(v float64) float64 {
	if len(n.sorted) == 0 {
		return 0
	}
	return stat.CDF(v, stat.Empirical, n.sorted, nil) * 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
