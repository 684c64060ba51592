// Package scoring computes per-facility risk scores and the industry peer
// statistics that normalize them.
package scoring

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/chemtrac-risk-pipeline/internal/domain"
)

// DefaultMinPeerGroup is the smallest industry group normalized against its
// own peers; smaller groups fall back to citywide statistics to avoid
// degenerate normalization.
const DefaultMinPeerGroup = 3

// IndustryStats holds peer-group statistics over log1p release volume.
type IndustryStats struct {
	Mean   float64
	Std    float64
	sorted []float64
}

// PercentileRank rescales a log-volume value to [0,100] against the peer
// distribution using the empirical CDF.
func (s IndustryStats) PercentileRank(v float64) float64 {
	if len(s.sorted) == 0 {
		return 0
	}
	return stat.CDF(v, stat.Empirical, s.sorted, nil) * 100
}

// ZScore standardizes a log-volume value against the peer distribution.
// Zero-variance groups yield 0 rather than a division blowup.
func (s IndustryStats) ZScore(v float64) float64 {
	if s.Std == 0 {
		return 0
	}
	return (v - s.Mean) / s.Std
}

// IndustryNormalizer groups facilities by industry code and serves
// peer-relative statistics. Built once over the scorable population before
// any facility is scored.
type IndustryNormalizer struct {
	byIndustry map[string]IndustryStats
	citywide   IndustryStats
	minPeers   int
}

// NewIndustryNormalizer computes per-industry and citywide statistics over
// log1p(total release kg). Facilities without coordinates are excluded; they
// are never scored, so they must not shift the population statistics either.
func NewIndustryNormalizer(facilities []domain.Facility, minPeers int) *IndustryNormalizer {
	if minPeers < 1 {
		minPeers = DefaultMinPeerGroup
	}

	grouped := make(map[string][]float64)
	all := make([]float64, 0, len(facilities))
	for _, f := range facilities {
		if !f.HasCoordinates() {
			continue
		}
		v := logVolume(f.TotalReleaseKG())
		grouped[f.IndustryCode] = append(grouped[f.IndustryCode], v)
		all = append(all, v)
	}

	n := &IndustryNormalizer{
		byIndustry: make(map[string]IndustryStats, len(grouped)),
		citywide:   newStats(all),
		minPeers:   minPeers,
	}
	for code, values := range grouped {
		if len(values) < minPeers {
			continue // StatsFor falls back to citywide
		}
		n.byIndustry[code] = newStats(values)
	}
	return n
}

// StatsFor returns the peer statistics for an industry code, or the citywide
// fallback when the group is below the minimum peer count.
func (n *IndustryNormalizer) StatsFor(industryCode string) IndustryStats {
	if s, ok := n.byIndustry[industryCode]; ok {
		return s
	}
	return n.citywide
}

// UsesFallback reports whether the industry code resolves to citywide stats.
func (n *IndustryNormalizer) UsesFallback(industryCode string) bool {
	_, ok := n.byIndustry[industryCode]
	return !ok
}

func newStats(values []float64) IndustryStats {
	if len(values) == 0 {
		return IndustryStats{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mean := stat.Mean(sorted, nil)
	var std float64
	if len(sorted) > 1 {
		std = stat.StdDev(sorted, nil)
	}
	return IndustryStats{Mean: mean, Std: std, sorted: sorted}
}

// logVolume is the log1p transform applied to release masses before any
// peer-group statistics.
func logVolume(totalKG float64) float64 {
	return math.Log1p(totalKG)
}
