package anomaly

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/domain"
)

func scoredFacility(id, industry string, risk float64) domain.ScoredFacility {
	r := risk
	return domain.ScoredFacility{
		Facility: domain.Facility{
			ID:           id,
			IndustryCode: industry,
			Latitude:     43.65,
			Longitude:    -79.38,
			Releases: []domain.ChemicalRelease{
				{ChemicalName: "Toluene", AmountKG: 1 + risk*10, Pathway: domain.PathwayAir},
			},
		},
		ToxicityWeightedExposure: risk * 60,
		ReleaseVolumeScore:       risk,
		MaxToxicity:              60,
		ProximityMultiplier:      1.0,
		RiskScore:                &r,
	}
}

// ordinaryPopulation is a uniform spread of unremarkable emitters in one
// industry, plus one extreme emitter at the top.
func ordinaryPopulation(n int) []domain.ScoredFacility {
	pop := make([]domain.ScoredFacility, 0, n)
	for i := range n {
		pop = append(pop, scoredFacility(fmt.Sprintf("FAC_%03d", i), "printing", 10+float64(i)*0.5))
	}
	return pop
}

func TestEnsemble_ExtremeEmitterFlagged(t *testing.T) {
	pop := ordinaryPopulation(40)
	extreme := scoredFacility("FAC_EXTREME", "printing", 95)
	extreme.CarcinogenCount = 3
	extreme.ProximityMultiplier = 1.8
	extreme.ToxicityWeightedExposure = 50000
	extreme.HeavyMetalMassKG = 400
	pop = append(pop, extreme)

	model := Fit(pop, DefaultConfig())
	v := model.Classify(extreme)

	assert.True(t, v.Anomaly)
	assert.Contains(t, v.Votes, domain.DetectorExtremeRisk)
	assert.Contains(t, v.Votes, domain.DetectorCarcinogenProximity)
	assert.GreaterOrEqual(t, v.Confidence, 50.0)
}

// TestEnsemble_ExtremeEmitterInPeerIndustry covers the canonical scenario: a
// facility releasing ~50x its industry peers' volume with three carcinogens
// beside a school draws the industry-outlier, extreme-risk, and
// carcinogen-proximity votes at once.
func TestEnsemble_ExtremeEmitterInPeerIndustry(t *testing.T) {
	pop := ordinaryPopulation(20)
	for i := range 5 {
		peer := scoredFacility(fmt.Sprintf("FAC_PLT_%d", i), "plating", 12+float64(i))
		peer.Releases[0].AmountKG = 100 + float64(i)*10
		pop = append(pop, peer)
	}

	extreme := scoredFacility("FAC_PLT_X", "plating", 96)
	extreme.Releases[0].AmountKG = 6000 // ~50x the peer median of 120
	extreme.CarcinogenCount = 3
	extreme.ProximityMultiplier = 1.7
	extreme.ToxicityWeightedExposure = 80000
	extreme.HeavyMetalMassKG = 500
	extreme.IndustryNormalizedRelease = 3.5
	pop = append(pop, extreme)

	model := Fit(pop, DefaultConfig())
	v := model.Classify(extreme)

	assert.True(t, v.Anomaly)
	assert.Contains(t, v.Votes, domain.DetectorIndustryOutlier)
	assert.Contains(t, v.Votes, domain.DetectorExtremeRisk)
	assert.Contains(t, v.Votes, domain.DetectorCarcinogenProximity)
	assert.GreaterOrEqual(t, v.Confidence, 75.0)
}

func TestEnsemble_OrdinaryFacilityNotAnomalous(t *testing.T) {
	pop := ordinaryPopulation(40)
	model := Fit(pop, DefaultConfig())

	// A mid-pack facility gathers at most one forest vote, never a majority.
	v := model.Classify(pop[20])
	assert.False(t, v.Anomaly)
	assert.Less(t, v.Confidence, 50.0)
}

func TestEnsemble_ConfidenceIsVotesOverFour(t *testing.T) {
	pop := ordinaryPopulation(40)
	model := Fit(pop, DefaultConfig())

	for _, f := range pop {
		v := model.Classify(f)
		assert.Equal(t, 100*float64(len(v.Votes))/4, v.Confidence)
		assert.Equal(t, len(v.Votes) >= 2, v.Anomaly)
	}
}

func TestEnsemble_UnscoredNeverAnomalous(t *testing.T) {
	pop := ordinaryPopulation(10)
	unscored := domain.ScoredFacility{
		Facility: domain.Facility{ID: "FAC_NOWHERE", IndustryCode: "printing"},
		Unscored: true,
	}
	pop = append(pop, unscored)

	model := Fit(pop, DefaultConfig())
	v := model.Classify(unscored)

	assert.False(t, v.Anomaly)
	assert.Zero(t, v.Confidence)
	assert.Empty(t, v.Votes)
}

func TestEnsemble_ZeroRiskNeverExtreme(t *testing.T) {
	// Every facility at zero risk: P95 is zero, but the extreme detector still
	// must not fire on risk >= threshold alone.
	pop := make([]domain.ScoredFacility, 0, 10)
	for i := range 10 {
		pop = append(pop, scoredFacility(fmt.Sprintf("FAC_%02d", i), "printing", 0))
	}
	model := Fit(pop, DefaultConfig())

	for _, f := range pop {
		v := model.Classify(f)
		assert.NotContains(t, v.Votes, domain.DetectorExtremeRisk)
		assert.NotContains(t, v.Votes, domain.DetectorCarcinogenProximity)
	}
}

func TestEnsemble_SmallIndustryPoolsCitywide(t *testing.T) {
	pop := ordinaryPopulation(30)
	// Two lone facilities in tiny industries still participate in the
	// industry detector via the pooled fallback group.
	pop = append(pop,
		scoredFacility("FAC_LONE_A", "rendering", 90),
		scoredFacility("FAC_LONE_B", "tanning", 12),
	)

	model := Fit(pop, DefaultConfig())

	// The fallback group has 2 members at 15% contamination: ceil(0.3) = 1
	// flag, and the outlying member takes it.
	vA := model.Classify(pop[len(pop)-2])
	assert.Contains(t, vA.Votes, domain.DetectorIndustryOutlier)
}

func TestEnsemble_Deterministic(t *testing.T) {
	pop := ordinaryPopulation(50)

	first := Fit(pop, DefaultConfig())
	second := Fit(pop, DefaultConfig())

	for _, f := range pop {
		require.Equal(t, first.Classify(f), second.Classify(f))
	}
}

func TestEnsemble_EmptyPopulation(t *testing.T) {
	model := Fit(nil, DefaultConfig())
	v := model.Classify(scoredFacility("FAC_X", "printing", 50))
	assert.False(t, v.Anomaly)
	assert.Empty(t, v.Votes)
}

func TestEnsemble_GlobalFlagCount(t *testing.T) {
	pop := ordinaryPopulation(100)
	model := Fit(pop, DefaultConfig())

	var globalVotes int
	for _, f := range pop {
		v := model.Classify(f)
		for _, vote := range v.Votes {
			if vote == domain.DetectorGlobalOutlier {
				globalVotes++
			}
		}
	}
	// ceil(0.06 * 100) = 6 facilities carry the global flag.
	assert.Equal(t, 6, globalVotes)
}
