// Package anomaly flags statistically unusual facilities with a majority-vote
// ensemble of four independent detectors.
package anomaly

import (
	"math"
	"math/rand"
)

// Isolation forest parameters, matching the reference model configuration.
const (
	forestTrees     = 200
	forestMaxSample = 256
)

// isolationForest is a deterministic isolation forest: anomalous points
// isolate in fewer random splits than dense-cluster points, so shorter mean
// path length means a higher anomaly score. All randomness flows from the
// *rand.Rand handed to fitForest, which the caller seeds from configuration.
type isolationForest struct {
	trees      []*isoNode
	sampleSize int
}

type isoNode struct {
	// Internal nodes split on feature < split; external nodes carry size.
	feature     int
	split       float64
	left, right *isoNode
	size        int
	external    bool
}

// fitForest builds numTrees trees over random subsamples of the data. Rows
// are feature vectors of equal length.
func fitForest(data [][]float64, numTrees, sampleSize int, rng *rand.Rand) *isolationForest {
	if sampleSize > len(data) {
		sampleSize = len(data)
	}
	heightLimit := int(math.Ceil(math.Log2(math.Max(2, float64(sampleSize)))))

	f := &isolationForest{sampleSize: sampleSize, trees: make([]*isoNode, numTrees)}
	for i := range f.trees {
		sample := subsample(data, sampleSize, rng)
		f.trees[i] = buildTree(sample, 0, heightLimit, rng)
	}
	return f
}

// score returns the anomaly score in (0,1): near 1 isolates quickly, near 0.5
// is unremarkable.
func (f *isolationForest) score(point []float64) float64 {
	if len(f.trees) == 0 || f.sampleSize == 0 {
		return 0
	}
	var total float64
	for _, root := range f.trees {
		total += pathLength(root, point, 0)
	}
	mean := total / float64(len(f.trees))
	return math.Pow(2, -mean/avgPathLength(f.sampleSize))
}

func subsample(data [][]float64, n int, rng *rand.Rand) [][]float64 {
	if n >= len(data) {
		return data
	}
	idx := rng.Perm(len(data))[:n]
	out := make([][]float64, n)
	for i, j := range idx {
		out[i] = data[j]
	}
	return out
}

func buildTree(data [][]float64, depth, heightLimit int, rng *rand.Rand) *isoNode {
	if depth >= heightLimit || len(data) <= 1 {
		return &isoNode{external: true, size: len(data)}
	}

	numFeatures := len(data[0])
	feature, split, ok := pickSplit(data, numFeatures, rng)
	if !ok {
		// Every remaining point is identical across all features.
		return &isoNode{external: true, size: len(data)}
	}

	var left, right [][]float64
	for _, row := range data {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &isoNode{
		feature: feature,
		split:   split,
		left:    buildTree(left, depth+1, heightLimit, rng),
		right:   buildTree(right, depth+1, heightLimit, rng),
	}
}

// pickSplit chooses a random feature with spread and a uniform split point
// inside its range. Features are tried in a random rotation so constant
// features are skipped deterministically.
func pickSplit(data [][]float64, numFeatures int, rng *rand.Rand) (int, float64, bool) {
	for _, feature := range rng.Perm(numFeatures) {
		lo, hi := data[0][feature], data[0][feature]
		for _, row := range data[1:] {
			lo = math.Min(lo, row[feature])
			hi = math.Max(hi, row[feature])
		}
		if hi > lo {
			return feature, lo + rng.Float64()*(hi-lo), true
		}
	}
	return 0, 0, false
}

func pathLength(node *isoNode, point []float64, depth int) float64 {
	if node.external {
		return float64(depth) + avgPathLength(node.size)
	}
	if point[node.feature] < node.split {
		return pathLength(node.left, point, depth+1)
	}
	return pathLength(node.right, point, depth+1)
}

const eulerGamma = 0.5772156649015329

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points; it normalizes tree depths across subsample sizes.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}
