package ensemble

import (
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/config"
)

// Forest is a bagged ensemble of regression trees fit on bootstrap samples
// with sqrt-feature subsampling at each split.
type Forest struct {
	Trees      []*Node   `json:"trees"`
	Features   int       `json:"features"`
	Importance []float64 `json:"importance,omitempty"`
}

// FitForest fits the random forest. Trees are grown in parallel; each tree
// derives its random stream from the base seed and its own index, so the
// fitted forest is identical regardless of scheduling.
func FitForest(X [][]float64, y []float64, cfg config.TrainerConfig) *Forest {
	numFeatures := len(X[0])
	params := treeParams{
		MaxDepth:    cfg.ForestMaxDepth,
		MinSplit:    cfg.ForestMinSplit,
		MinLeaf:     cfg.ForestMinLeaf,
		MaxFeatures: sqrtFeatures(numFeatures),
	}

	trees := make([]*Node, cfg.ForestTrees)
	perTreeImp := make([][]float64, cfg.ForestTrees)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))
			idx := bootstrapSample(len(y), rng)
			imp := make([]float64, numFeatures)
			trees[i] = fitTree(X, y, idx, params, rng, imp)
			perTreeImp[i] = imp
			return nil
		})
	}
	_ = g.Wait() // tree fitting cannot fail

	return &Forest{
		Trees:      trees,
		Features:   numFeatures,
		Importance: normalizeImportance(perTreeImp, numFeatures),
	}
}

// Predict returns the mean prediction over all trees.
func (f *Forest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(f.Trees))
}

func bootstrapSample(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

// normalizeImportance sums per-tree impurity decreases and scales them to
// sum to 1 across features.
func normalizeImportance(perTree [][]float64, numFeatures int) []float64 {
	total := make([]float64, numFeatures)
	var sum float64
	for _, imp := range perTree {
		for f, v := range imp {
			total[f] += v
			sum += v
		}
	}
	if sum == 0 {
		return total
	}
	for f := range total {
		total[f] /= sum
	}
	return total
}
