// Package ensemble implements the three-regressor prediction ensemble:
// a bagged random forest, a gradient-boosted tree model, and an L2-penalized
// linear model, combined by weighted averaging over standard-scaled
// features. Everything in the fitted artifact is JSON round-trippable so
// the model registry can persist and reload it losslessly.
package ensemble

import (
	"math"
	"math/rand"
	"sort"
)

// Node is one node of a fitted regression tree.
type Node struct {
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Left      *Node   `json:"lc,omitempty"`
	Right     *Node   `json:"rc,omitempty"`
	Value     float64 `json:"v"`
	Leaf      bool    `json:"leaf,omitempty"`
}

// Predict walks the tree for one sample.
func (n *Node) Predict(x []float64) float64 {
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// treeParams are the regularization knobs for a single tree fit.
type treeParams struct {
	MaxDepth    int
	MinSplit    int
	MinLeaf     int
	MaxFeatures int // 0 means consider all features at each split
}

// fitTree grows a CART regression tree over the row indices in idx,
// minimizing within-node squared error. When imp is non-nil the impurity
// decrease of every split is accumulated per feature.
func fitTree(X [][]float64, y []float64, idx []int, p treeParams, rng *rand.Rand, imp []float64) *Node {
	return growNode(X, y, idx, p, rng, imp, 0)
}

func growNode(X [][]float64, y []float64, idx []int, p treeParams, rng *rand.Rand, imp []float64, depth int) *Node {
	mean, sse := meanSSE(y, idx)
	node := &Node{Value: mean, Leaf: true}

	if depth >= p.MaxDepth || len(idx) < p.MinSplit || sse == 0 {
		return node
	}

	feature, threshold, gain, ok := bestSplit(X, y, idx, p, rng, sse)
	if !ok {
		return node
	}
	if imp != nil {
		imp[feature] += gain
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.Leaf = false
	node.Feature = feature
	node.Threshold = threshold
	node.Left = growNode(X, y, left, p, rng, imp, depth+1)
	node.Right = growNode(X, y, right, p, rng, imp, depth+1)
	return node
}

// bestSplit scans candidate features for the split with the largest
// squared-error reduction, honoring the minimum leaf size. Returns ok=false
// when no admissible split improves on the parent node.
func bestSplit(X [][]float64, y []float64, idx []int, p treeParams, rng *rand.Rand, parentSSE float64) (feature int, threshold, gain float64, ok bool) {
	numFeatures := len(X[0])
	candidates := featureCandidates(numFeatures, p.MaxFeatures, rng)

	n := len(idx)
	bestSSE := parentSSE

	vals := make([]float64, n)
	targets := make([]float64, n)
	order := make([]int, n)

	for _, f := range candidates {
		for i, row := range idx {
			vals[i] = X[row][f]
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool { return vals[order[a]] < vals[order[b]] })
		for i, o := range order {
			targets[i] = y[idx[o]]
		}

		// Running sums from the left; the complement gives the right side.
		var sumL, sqL float64
		sumT, sqT := 0.0, 0.0
		for _, t := range targets {
			sumT += t
			sqT += t * t
		}

		for i := 0; i < n-1; i++ {
			t := targets[i]
			sumL += t
			sqL += t * t

			vLo := vals[order[i]]
			vHi := vals[order[i+1]]
			if vLo == vHi {
				continue
			}
			nL := i + 1
			nR := n - nL
			if nL < p.MinLeaf || nR < p.MinLeaf {
				continue
			}

			sseL := sqL - sumL*sumL/float64(nL)
			sumR := sumT - sumL
			sseR := (sqT - sqL) - sumR*sumR/float64(nR)
			if sse := sseL + sseR; sse < bestSSE {
				bestSSE = sse
				feature = f
				threshold = (vLo + vHi) / 2
				ok = true
			}
		}
	}

	return feature, threshold, parentSSE - bestSSE, ok
}

// featureCandidates returns the feature indices examined at one split:
// a random subset of size maxFeatures when set, all features otherwise.
func featureCandidates(numFeatures, maxFeatures int, rng *rand.Rand) []int {
	if maxFeatures <= 0 || maxFeatures >= numFeatures {
		all := make([]int, numFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rng.Perm(numFeatures)[:maxFeatures]
}

func meanSSE(y []float64, idx []int) (mean, sse float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	var sum, sq float64
	for _, i := range idx {
		sum += y[i]
		sq += y[i] * y[i]
	}
	n := float64(len(idx))
	mean = sum / n
	sse = sq - sum*sum/n
	if sse < 0 {
		sse = 0 // guard against floating-point cancellation
	}
	return mean, sse
}

// sqrtFeatures is the forest's per-split feature budget.
func sqrtFeatures(numFeatures int) int {
	k := int(math.Sqrt(float64(numFeatures)))
	if k < 1 {
		k = 1
	}
	return k
}
