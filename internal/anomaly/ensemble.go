package anomaly

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/domain"
)

// Config tunes the ensemble. Defaults match the reference deployment; the
// contamination rates decide what share of the population each forest flags.
type Config struct {
	Seed                  int64
	GlobalContamination   float64
	IndustryContamination float64
	MinPeerGroup          int
}

// DefaultConfig returns the documented defaults: seed 42, 6% global
// contamination, 15% within each industry peer group, minimum peer group 3.
func DefaultConfig() Config {
	return Config{
		Seed:                  42,
		GlobalContamination:   0.06,
		IndustryContamination: 0.15,
		MinPeerGroup:          3,
	}
}

// Verdict is the ensemble's classification of one facility.
type Verdict struct {
	Anomaly    bool
	Confidence float64  // 100 * votes / 4
	Votes      []string // detector names in vote order
}

// Model holds the fitted ensemble state: forest flags per facility and the
// extreme-risk threshold. It is immutable once Fit returns; classification
// reads it without further fitting, which makes the score-then-classify
// barrier explicit in the types.
type Model struct {
	globalFlags   map[string]bool
	industryFlags map[string]bool
	riskP95       float64
	hasPopulation bool
}

const (
	// Rule-based detector thresholds.
	carcinogenVoteCount     = 2
	proximityVoteMultiplier = 1.3

	// Votes needed for an anomaly verdict.
	majorityVotes = 2
)

// Fit trains the two isolation-forest detectors and computes the risk
// percentile threshold over the scored population. Unscored facilities are
// excluded entirely. Deterministic for a fixed seed and population.
func Fit(population []domain.ScoredFacility, cfg Config) *Model {
	if cfg.MinPeerGroup < 1 {
		cfg.MinPeerGroup = DefaultConfig().MinPeerGroup
	}

	scored := make([]domain.ScoredFacility, 0, len(population))
	for _, f := range population {
		if !f.Unscored && f.RiskScore != nil {
			scored = append(scored, f)
		}
	}

	m := &Model{
		globalFlags:   make(map[string]bool),
		industryFlags: make(map[string]bool),
	}
	if len(scored) == 0 {
		return m
	}
	m.hasPopulation = true

	features := standardize(featureMatrix(scored))

	// Detector 1: global outliers across the whole population.
	flagTop(scored, features, allIndices(len(scored)), cfg.GlobalContamination, cfg.Seed, m.globalFlags)

	// Detector 2: outliers within each industry peer group. Groups below the
	// minimum peer count pool into a single citywide fallback group so tiny
	// industries still get a peer-relative signal.
	for _, group := range industryGroups(scored, cfg.MinPeerGroup) {
		flagTop(scored, features, group, cfg.IndustryContamination, cfg.Seed, m.industryFlags)
	}

	// Detector 3 threshold: 95th percentile of risk scores.
	risks := make([]float64, len(scored))
	for i, f := range scored {
		risks[i] = *f.RiskScore
	}
	sort.Float64s(risks)
	m.riskP95 = stat.Quantile(0.95, stat.Empirical, risks, nil)

	return m
}

// Classify returns the ensemble verdict for one facility against the fitted
// model. Unscored facilities are never anomalous.
func (m *Model) Classify(f domain.ScoredFacility) Verdict {
	if f.Unscored || f.RiskScore == nil || !m.hasPopulation {
		return Verdict{}
	}

	var votes []string
	if m.globalFlags[f.ID] {
		votes = append(votes, domain.DetectorGlobalOutlier)
	}
	if m.industryFlags[f.ID] {
		votes = append(votes, domain.DetectorIndustryOutlier)
	}
	// Zero-risk facilities can never vote extreme, even when the whole
	// population sits at zero.
	if *f.RiskScore > 0 && *f.RiskScore >= m.riskP95 {
		votes = append(votes, domain.DetectorExtremeRisk)
	}
	if f.CarcinogenCount >= carcinogenVoteCount && f.ProximityMultiplier >= proximityVoteMultiplier {
		votes = append(votes, domain.DetectorCarcinogenProximity)
	}

	return Verdict{
		Anomaly:    len(votes) >= majorityVotes,
		Confidence: 100 * float64(len(votes)) / 4,
		Votes:      votes,
	}
}

// flagTop fits a forest over the group's rows and records the top
// ceil(contamination * group size) scorers. Ties break by facility ID so the
// flag set is stable across runs.
func flagTop(scored []domain.ScoredFacility, features [][]float64, group []int, contamination float64, seed int64, flags map[string]bool) {
	if len(group) == 0 || contamination <= 0 {
		return
	}
	k := int(math.Ceil(contamination * float64(len(group))))
	if k <= 0 {
		return
	}
	if k > len(group) {
		k = len(group)
	}

	rows := make([][]float64, len(group))
	for i, idx := range group {
		rows[i] = features[idx]
	}
	rng := rand.New(rand.NewSource(seed))
	forest := fitForest(rows, forestTrees, forestMaxSample, rng)

	type ranked struct {
		id    string
		score float64
	}
	rankings := make([]ranked, len(group))
	for i, idx := range group {
		rankings[i] = ranked{id: scored[idx].ID, score: forest.score(rows[i])}
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].score != rankings[j].score {
			return rankings[i].score > rankings[j].score
		}
		return rankings[i].id < rankings[j].id
	})

	for _, r := range rankings[:k] {
		flags[r.id] = true
	}
}

// industryGroups partitions population indices by industry code, pooling
// undersized groups into a citywide fallback. Groups come back in a
// deterministic order.
func industryGroups(scored []domain.ScoredFacility, minPeers int) [][]int {
	byIndustry := make(map[string][]int)
	for i, f := range scored {
		byIndustry[f.IndustryCode] = append(byIndustry[f.IndustryCode], i)
	}

	codes := make([]string, 0, len(byIndustry))
	for code := range byIndustry {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var groups [][]int
	var fallback []int
	for _, code := range codes {
		group := byIndustry[code]
		if len(group) < minPeers {
			fallback = append(fallback, group...)
			continue
		}
		groups = append(groups, group)
	}
	if len(fallback) > 0 {
		groups = append(groups, fallback)
	}
	return groups
}

// featureMatrix builds the ensemble's feature vectors: risk score, toxicity
// exposure, log release volume, max toxicity, carcinogen count, log heavy
// metal mass, industry-normalized release.
func featureMatrix(scored []domain.ScoredFacility) [][]float64 {
	rows := make([][]float64, len(scored))
	for i, f := range scored {
		rows[i] = []float64{
			*f.RiskScore,
			f.ToxicityWeightedExposure,
			math.Log1p(f.TotalReleaseKG()),
			f.MaxToxicity,
			float64(f.CarcinogenCount),
			math.Log1p(f.HeavyMetalMassKG),
			f.IndustryNormalizedRelease,
		}
	}
	return rows
}

// standardize z-scores each column in place-safe copies. Constant columns
// standardize to zero.
func standardize(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return rows
	}
	cols := len(rows[0])
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = make([]float64, cols)
	}

	column := make([]float64, len(rows))
	for c := range cols {
		for i, row := range rows {
			column[i] = row[c]
		}
		mean := stat.Mean(column, nil)
		var std float64
		if len(column) > 1 {
			std = stat.StdDev(column, nil)
		}
		for i := range rows {
			if std == 0 {
				out[i][c] = 0
				continue
			}
			out[i][c] = (rows[i][c] - mean) / std
		}
	}
	return out
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
