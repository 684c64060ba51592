package scoring

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/domain"
)

const (
	testHospitalLat = 43.6591
	testHospitalLon = -79.3879
)

func newTestScorer(t *testing.T, facilities []domain.Facility) *Scorer {
	t.Helper()
	table, err := domain.LoadToxicityTable()
	require.NoError(t, err)

	engine := domain.NewProximityEngine([]domain.SensitiveReceptor{
		{Name: "Hospital", Category: domain.ReceptorHospital, Latitude: testHospitalLat, Longitude: testHospitalLon},
	})
	normalizer := NewIndustryNormalizer(facilities, DefaultMinPeerGroup)
	return NewScorer(table, engine, normalizer)
}

// mercuryNearHospital and benignSolventFarAway reproduce the canonical
// ordering scenario: heavy toxic release beside a receptor must outrank a
// benign release in the middle of nowhere.
func scenarioFacilities() []domain.Facility {
	mercuryNearHospital := domain.Facility{
		ID:           "FAC_A",
		IndustryCode: "plating",
		Latitude:     testHospitalLat + 0.0045, // ~0.5 km north
		Longitude:    testHospitalLon,
		Releases: []domain.ChemicalRelease{
			{ChemicalName: "Mercury", AmountKG: 100, Pathway: domain.PathwayAir},
		},
	}
	benignSolventFarAway := domain.Facility{
		ID:           "FAC_B",
		IndustryCode: "plating",
		Latitude:     testHospitalLat + 0.09, // ~10 km north
		Longitude:    testHospitalLon,
		Releases: []domain.ChemicalRelease{
			{ChemicalName: "Acetone", AmountKG: 100, Pathway: domain.PathwayAir},
		},
	}
	filler := domain.Facility{
		ID:           "FAC_C",
		IndustryCode: "plating",
		Latitude:     testHospitalLat + 0.2,
		Longitude:    testHospitalLon,
		Releases: []domain.ChemicalRelease{
			{ChemicalName: "Toluene", AmountKG: 50, Pathway: domain.PathwayAir},
		},
	}
	return []domain.Facility{mercuryNearHospital, benignSolventFarAway, filler}
}

func TestScorer_MercuryOutranksBenignSolvent(t *testing.T) {
	facilities := scenarioFacilities()
	scorer := newTestScorer(t, facilities)

	scored := scorer.ScoreAll(facilities)
	require.Len(t, scored, 3)

	a, b := scored[0], scored[1]
	require.NotNil(t, a.RiskScore)
	require.NotNil(t, b.RiskScore)

	assert.Greater(t, *a.RiskScore, *b.RiskScore)
	assert.Greater(t, a.ProximityMultiplier, b.ProximityMultiplier)
	assert.Equal(t, 1.0, b.ProximityMultiplier, "beyond 5km of every receptor")
	assert.Positive(t, a.HeavyMetalMassKG)
	assert.Zero(t, b.HeavyMetalMassKG)
	assert.Equal(t, 100.0, a.MaxToxicity)
}

func TestScorer_RiskBounds(t *testing.T) {
	facilities := scenarioFacilities()
	scored := newTestScorer(t, facilities).ScoreAll(facilities)

	for _, f := range scored {
		require.NotNil(t, f.RiskScore)
		assert.GreaterOrEqual(t, *f.RiskScore, 0.0)
		assert.LessOrEqual(t, *f.RiskScore, 100.0)
		assert.GreaterOrEqual(t, f.ProximityMultiplier, 1.0)
		assert.LessOrEqual(t, f.ProximityMultiplier, 2.0)
	}
}

func TestScorer_ZeroReleaseScoresZero(t *testing.T) {
	idle := domain.Facility{
		ID:           "FAC_IDLE",
		IndustryCode: "warehousing",
		Latitude:     testHospitalLat, // right on top of the hospital
		Longitude:    testHospitalLon,
	}
	facilities := append(scenarioFacilities(), idle)

	scored := newTestScorer(t, facilities).ScoreAll(facilities)
	last := scored[len(scored)-1]

	require.NotNil(t, last.RiskScore)
	assert.Zero(t, *last.RiskScore, "no release means no risk, even beside a hospital")
	assert.False(t, last.Unscored)
	assert.Equal(t, 2.0, last.ProximityMultiplier)
}

func TestScorer_MissingCoordinatesUnscored(t *testing.T) {
	noCoords := domain.Facility{
		ID:           "FAC_NOWHERE",
		IndustryCode: "printing",
		Releases: []domain.ChemicalRelease{
			{ChemicalName: "Benzene", AmountKG: 500, Pathway: domain.PathwayAir},
		},
	}
	facilities := append(scenarioFacilities(), noCoords)

	scored := newTestScorer(t, facilities).ScoreAll(facilities)
	last := scored[len(scored)-1]

	assert.True(t, last.Unscored)
	assert.Nil(t, last.RiskScore, "unscored is nil, not zero")
	assert.Equal(t, 1.0, last.ProximityMultiplier)
}

func TestScorer_CarcinogenBonus(t *testing.T) {
	// Two facilities identical except one swaps benign chemicals for two
	// carcinogens of equal toxicity weight is hard to construct exactly, so
	// assert the mechanism directly: the bonus kicks in at two carcinogens.
	twoCarcinogens := domain.Facility{
		ID:           "FAC_CARC",
		IndustryCode: "plating",
		Latitude:     testHospitalLat + 0.2,
		Longitude:    testHospitalLon,
		Releases: []domain.ChemicalRelease{
			{ChemicalName: "Benzene", AmountKG: 10, Pathway: domain.PathwayAir},
			{ChemicalName: "Cadmium", AmountKG: 10, Pathway: domain.PathwayAir},
		},
	}
	facilities := append(scenarioFacilities(), twoCarcinogens)

	scored := newTestScorer(t, facilities).ScoreAll(facilities)
	last := scored[len(scored)-1]

	assert.Equal(t, 2, last.CarcinogenCount)
}

func TestScorer_CarcinogenCountIgnoresZeroAmounts(t *testing.T) {
	reportedOnly := domain.Facility{
		ID:           "FAC_REPORT",
		IndustryCode: "plating",
		Latitude:     testHospitalLat + 0.2,
		Longitude:    testHospitalLon,
		Releases: []domain.ChemicalRelease{
			{ChemicalName: "Benzene", AmountKG: 0, Pathway: domain.PathwayAir},
			{ChemicalName: "Cadmium", AmountKG: 0, Pathway: domain.PathwayAir},
		},
	}
	facilities := append(scenarioFacilities(), reportedOnly)

	scored := newTestScorer(t, facilities).ScoreAll(facilities)
	last := scored[len(scored)-1]

	assert.Zero(t, last.CarcinogenCount)
	require.NotNil(t, last.RiskScore)
	assert.Zero(t, *last.RiskScore)
}

func TestScorer_Deterministic(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	defer domain.SetClock(nil)

	facilities := scenarioFacilities()
	first := newTestScorer(t, facilities).ScoreAll(facilities)
	second := newTestScorer(t, facilities).ScoreAll(facilities)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, *first[i].RiskScore, *second[i].RiskScore)
		assert.Equal(t, first[i].ToxicityWeightedExposure, second[i].ToxicityWeightedExposure)
		assert.Equal(t, fixed, first[i].ProcessedAt)
	}
}

func TestScorer_ExposureUsesPathwayWeights(t *testing.T) {
	airRelease := domain.Facility{
		ID: "AIR", IndustryCode: "x", Latitude: 43.7, Longitude: -79.3,
		Releases: []domain.ChemicalRelease{{ChemicalName: "Toluene", AmountKG: 100, Pathway: domain.PathwayAir}},
	}
	recyclingRelease := domain.Facility{
		ID: "REC", IndustryCode: "x", Latitude: 43.7, Longitude: -79.3,
		Releases: []domain.ChemicalRelease{{ChemicalName: "Toluene", AmountKG: 100, Pathway: domain.PathwayRecycling}},
	}
	facilities := []domain.Facility{airRelease, recyclingRelease}

	scored := newTestScorer(t, facilities).ScoreAll(facilities)

	// Same chemical and mass: the air pathway carries more weighted exposure.
	assert.Greater(t, scored[0].ToxicityWeightedExposure, scored[1].ToxicityWeightedExposure)
	assert.InDelta(t, 100*1.0*60, scored[0].ToxicityWeightedExposure, 1e-9)
	assert.InDelta(t, 100*0.15*60, scored[1].ToxicityWeightedExposure, 1e-9)
}
