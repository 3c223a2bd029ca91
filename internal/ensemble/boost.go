package ensemble

import (
	"math/rand"

	"github.com/bK777741/yt-pipeline-cron-sub000/internal/config"
)

// Boost is a gradient-boosted ensemble of shallow regression trees fit on
// successive residuals with row subsampling.
type Boost struct {
	Base         float64 `json:"base"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []*Node `json:"trees"`
}

// FitBoost fits the boosted model. Rounds are inherently sequential: each
// tree corrects the residuals left by the ensemble so far.
func FitBoost(X [][]float64, y []float64, cfg config.TrainerConfig) *Boost {
	n := len(y)
	params := treeParams{
		MaxDepth: cfg.BoostMaxDepth,
		MinSplit: cfg.BoostMinSplit,
		MinLeaf:  cfg.BoostMinLeaf,
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	base := mean(y)
	pred := make([]float64, n)
	residual := make([]float64, n)
	for i := range pred {
		pred[i] = base
		residual[i] = y[i] - base
	}

	b := &Boost{
		Base:         base,
		LearningRate: cfg.BoostLearningRate,
		Trees:        make([]*Node, 0, cfg.BoostRounds),
	}

	sampleSize := n
	if cfg.BoostSubsample > 0 && cfg.BoostSubsample < 1 {
		sampleSize = int(float64(n) * cfg.BoostSubsample)
		if sampleSize < 1 {
			sampleSize = 1
		}
	}

	for round := 0; round < cfg.BoostRounds; round++ {
		idx := rng.Perm(n)[:sampleSize]
		tree := fitTree(X, residual, idx, params, rng, nil)
		b.Trees = append(b.Trees, tree)

		for i := range pred {
			pred[i] += b.LearningRate * tree.Predict(X[i])
			residual[i] = y[i] - pred[i]
		}
	}

	return b
}

// Predict returns the boosted prediction for one sample.
func (b *Boost) Predict(x []float64) float64 {
	out := b.Base
	for _, t := range b.Trees {
		out += b.LearningRate * t.Predict(x)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}
