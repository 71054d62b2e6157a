package forecast

import (
	"sort"

	"staffing-risk/features"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// node is a tree vertex; leaves carry value, splits send x[feature] <= threshold left.
type node struct {
	leaf      bool
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
}

type tree struct {
	nodes []node
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.leaf {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// Ensemble is a gradient-boosted set of least-squares regression trees.
type Ensemble struct {
	base  float64
	rate  float64
	trees []tree
}

// Predict evaluates the ensemble on row.
func (e *Ensemble) Predict(row features.Row) float64 {
	x := row.Vector()
	out := e.base
	for i := range e.trees {
		out += e.rate * e.trees[i].predict(x)
	}
	return out
}

// Size returns the number of fitted trees.
func (e *Ensemble) Size() int {
	return len(e.trees)
}

// fitEnsemble fits trees to the residuals of the running prediction, starting
// from the mean of y. Fitting is deterministic for a given input order.
func fitEnsemble(x [][]float64, y []float64, p Params) *Ensemble {
	e := &Ensemble{
		base: stat.Mean(y, nil),
		rate: p.LearningRate,
	}
	n := len(y)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = e.base
	}
	resid := make([]float64, n)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	for t := 0; t < p.Trees; t++ {
		floats.SubTo(resid, y, pred)
		b := &treeBuilder{x: x, y: resid, maxDepth: p.MaxDepth, minLeaf: p.MinLeaf}
		b.build(append([]int(nil), all...), 0)
		tr := tree{nodes: b.nodes}
		for i := range pred {
			pred[i] += e.rate * tr.predict(x[i])
		}
		e.trees = append(e.trees, tr)
	}
	return e
}

type treeBuilder struct {
	x        [][]float64
	y        []float64
	maxDepth int
	minLeaf  int
	nodes    []node
}

func (b *treeBuilder) build(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, node{leaf: true, value: b.mean(idx)})
	if depth >= b.maxDepth || len(idx) < 2*b.minLeaf {
		return id
	}
	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id] = node{feature: feature, threshold: threshold, left: l, right: r}
	return id
}

func (b *treeBuilder) mean(idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	vals := make([]float64, len(idx))
	for k, i := range idx {
		vals[k] = b.y[i]
	}
	return stat.Mean(vals, nil)
}

// bestSplit maximizes the reduction in squared error, which for a fixed node
// is equivalent to maximizing sumL²/nL + sumR²/nR.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	vals := make([]float64, n)
	for k, i := range idx {
		vals[k] = b.y[i]
	}
	total := floats.Sum(vals)
	bestScore := total * total / float64(n)
	const minGain = 1e-12

	bestFeature, bestThreshold, found := -1, 0.0, false
	sorted := make([]int, n)
	for f := 0; f < features.Dimensions; f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.x[sorted[a]][f] < b.x[sorted[c]][f]
		})

		leftSum := 0.0
		for k := 1; k < n; k++ {
			leftSum += b.y[sorted[k-1]]
			if k < b.minLeaf || n-k < b.minLeaf {
				continue
			}
			lo, hi := b.x[sorted[k-1]][f], b.x[sorted[k]][f]
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			score := leftSum*leftSum/float64(k) + rightSum*rightSum/float64(n-k)
			if score > bestScore+minGain {
				bestScore = score
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}
