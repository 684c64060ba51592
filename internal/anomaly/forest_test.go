package anomaly

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusterWithOutlier builds a tight 2-D cluster around the origin plus one
// point far outside it.
func clusterWithOutlier(n int) ([][]float64, int) {
	rng := rand.New(rand.NewSource(7))
	data := make([][]float64, 0, n+1)
	for range n {
		data = append(data, []float64{rng.NormFloat64() * 0.1, rng.NormFloat64() * 0.1})
	}
	data = append(data, []float64{10, 10})
	return data, n
}

func TestForest_OutlierScoresHighest(t *testing.T) {
	data, outlierIdx := clusterWithOutlier(100)
	rng := rand.New(rand.NewSource(42))
	forest := fitForest(data, forestTrees, forestMaxSample, rng)

	outlierScore := forest.score(data[outlierIdx])
	for i, point := range data {
		if i == outlierIdx {
			continue
		}
		assert.Greater(t, outlierScore, forest.score(point))
	}
	assert.Greater(t, outlierScore, 0.6, "isolated points should score well above 0.5")
}

func TestForest_Deterministic(t *testing.T) {
	data, _ := clusterWithOutlier(50)

	first := fitForest(data, forestTrees, forestMaxSample, rand.New(rand.NewSource(42)))
	second := fitForest(data, forestTrees, forestMaxSample, rand.New(rand.NewSource(42)))

	for _, point := range data {
		assert.Equal(t, first.score(point), second.score(point))
	}
}

func TestForest_IdenticalPoints(t *testing.T) {
	data := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	forest := fitForest(data, 10, 4, rand.New(rand.NewSource(1)))

	// Every point is the same: no split exists, so no point stands out.
	s := forest.score(data[0])
	require.False(t, s > 0.99)
	for _, point := range data {
		assert.Equal(t, s, forest.score(point))
	}
}

func TestAvgPathLength(t *testing.T) {
	assert.Zero(t, avgPathLength(0))
	assert.Zero(t, avgPathLength(1))
	assert.Equal(t, 1.0, avgPathLength(2))
	assert.InDelta(t, 10.244, avgPathLength(256), 0.01)
}
