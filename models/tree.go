package models

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// LeafFeature marks a node without a split
const LeafFeature = -1

// Node is a single entry in a flattened regression tree. Internal nodes send an
// observation to Left when its Feature value is at most Threshold and to Right otherwise.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value"`
}

func (n Node) IsLeaf() bool {
	return n.Feature == LeafFeature
}

// Tree is a regression tree stored as a node array rooted at index 0
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for a single observation
func (t Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the number of edges on the longest root to leaf path
func (t Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// Validate checks that every child reference points forward into the node array so
// traversal always terminates.
func (t Tree) Validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes, %w", ErrInvalidTree)
	}
	for i, n := range t.Nodes {
		if n.IsLeaf() {
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d, %w", i, n.Feature, numFeatures, ErrInvalidTree)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has children %d and %d, %w", i, n.Left, n.Right, ErrInvalidTree)
		}
	}
	return nil
}

// treeBuilder grows a CART regression tree over column major training data
type treeBuilder struct {
	cols [][]float64
	y    []float64

	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int

	rng   *rand.Rand
	nodes []Node

	// per feature sum of squared error reduction
	gain []float64

	// scratch space for sorting sample indices by feature value
	sorted []int
}

func newTreeBuilder(cols [][]float64, y []float64, opt *ForestOptions, rng *rand.Rand) *treeBuilder {
	return &treeBuilder{
		cols:            cols,
		y:               y,
		maxDepth:        opt.MaxDepth,
		minSamplesSplit: opt.MinSamplesSplit,
		minSamplesLeaf:  opt.MinSamplesLeaf,
		rng:             rng,
		gain:            make([]float64, len(cols)),
		sorted:          make([]int, len(y)),
	}
}

// build grows the tree over the sample indices, which may contain repeats from
// bootstrapping. idx is reordered in place.
func (b *treeBuilder) build(idx []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(idx, 0)
	nodes := make([]Node, len(b.nodes))
	copy(nodes, b.nodes)
	return Tree{Nodes: nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	n := len(idx)

	ni := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: LeafFeature, Value: sum / float64(n)})

	if n < b.minSamplesSplit || n < 2*b.minSamplesLeaf {
		return ni
	}
	if b.maxDepth > 0 && depth >= b.maxDepth {
		return ni
	}

	feature, threshold, gain, ok := b.bestSplit(idx, sum)
	if !ok {
		return ni
	}
	b.gain[feature] += gain

	// partition samples so the left child is a prefix
	col := b.cols[feature]
	k := 0
	for j, i := range idx {
		if col[i] <= threshold {
			idx[k], idx[j] = idx[j], idx[k]
			k++
		}
	}

	left := b.grow(idx[:k], depth+1)
	right := b.grow(idx[k:], depth+1)

	b.nodes[ni].Feature = feature
	b.nodes[ni].Threshold = threshold
	b.nodes[ni].Left = left
	b.nodes[ni].Right = right
	return ni
}

// bestSplit searches every feature in a random order for the threshold with the lowest
// squared error. Minimising the children's squared error is equivalent to maximising
// sumL^2/nL + sumR^2/nR. The first feature reaching the best score wins ties.
func (b *treeBuilder) bestSplit(idx []int, sum float64) (int, float64, float64, bool) {
	n := len(idx)
	parent := sum * sum / float64(n)

	bestFeature := -1
	bestThreshold := 0.0
	bestScore := parent

	sorted := b.sorted[:n]
	for _, f := range b.rng.Perm(len(b.cols)) {
		col := b.cols[f]
		copy(sorted, idx)
		slices.SortStableFunc(sorted, func(a, c int) int {
			return cmp.Compare(col[a], col[c])
		})
		if col[sorted[0]] == col[sorted[n-1]] {
			continue
		}

		var leftSum float64
		for j := 0; j < n-1; j++ {
			leftSum += b.y[sorted[j]]
			nl := j + 1
			nr := n - nl
			if nl < b.minSamplesLeaf {
				continue
			}
			if nr < b.minSamplesLeaf {
				break
			}
			lo, hi := col[sorted[j]], col[sorted[j+1]]
			if lo == hi {
				continue
			}

			rightSum := sum - leftSum
			score := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr)
			if score > bestScore+splitTolerance*math.Abs(bestScore) {
				bestScore = score
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				// midpoint can round up to the upper value
				if bestThreshold >= hi {
					bestThreshold = lo
				}
			}
		}
	}

	if bestFeature < 0 {
		return -1, 0, 0, false
	}
	return bestFeature, bestThreshold, bestScore - parent, true
}

// splitTolerance avoids splitting on rounding noise when the node is already pure
const splitTolerance = 1e-12
