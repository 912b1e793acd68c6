package forecast

import (
	"math/rand"
	"sort"

	"github.com/andresuchdata/shelflife/backend-go/internal/features"
)

const minGain = 1e-9

// Node is one node of a regression tree stored in a flat slice.
// Numeric splits send x <= Threshold left; categorical splits send x == Threshold left.
type Node struct {
	Feature     int     `json:"f"`
	Threshold   float64 `json:"t"`
	Categorical bool    `json:"c,omitempty"`
	Left        int     `json:"l"`
	Right       int     `json:"r"`
	Value       float64 `json:"v"`
	Leaf        bool    `json:"leaf,omitempty"`
}

// Tree is a fitted CART regression tree; Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for one feature row.
func (t Tree) Predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		var left bool
		if n.Categorical {
			left = x[n.Feature] == n.Threshold
		} else {
			left = x[n.Feature] <= n.Threshold
		}
		if left {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type split struct {
	feature     int
	threshold   float64
	categorical bool
	gain        float64
}

type treeBuilder struct {
	x      [][]float64
	y      []float64
	params Params
	rng    *rand.Rand
	nodes  []Node
}

// fitTree grows one tree over the rows listed in idx (duplicates allowed for bootstrap samples).
func fitTree(x [][]float64, y []float64, idx []int, params Params, rng *rand.Rand) Tree {
	b := &treeBuilder{x: x, y: y, params: params, rng: rng}
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	mean, sse := b.moments(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Leaf: true, Value: mean})

	if depth >= b.params.MaxDepth || len(idx) < 2*b.params.MinLeafSize || sse <= minGain {
		return id
	}

	best, ok := b.bestSplit(idx, sse)
	if !ok {
		return id
	}

	leftIdx := make([]int, 0, len(idx))
	rightIdx := make([]int, 0, len(idx))
	for _, i := range idx {
		v := b.x[i][best.feature]
		goLeft := v <= best.threshold
		if best.categorical {
			goLeft = v == best.threshold
		}
		if goLeft {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	l := b.grow(leftIdx, depth+1)
	r := b.grow(rightIdx, depth+1)
	b.nodes[id] = Node{
		Feature:     best.feature,
		Threshold:   best.threshold,
		Categorical: best.categorical,
		Left:        l,
		Right:       r,
		Value:       mean,
	}
	return id
}

func (b *treeBuilder) moments(idx []int) (mean, sse float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	var sum, sq float64
	for _, i := range idx {
		sum += b.y[i]
		sq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean = sum / n
	sse = sq - sum*sum/n
	return mean, sse
}

// candidateFeatures draws the columns considered at one node.
func (b *treeBuilder) candidateFeatures() []int {
	k := int(float64(features.NumColumns)*b.params.FeatureFraction + 0.5)
	if k >= int(features.NumColumns) || k < 1 {
		all := make([]int, features.NumColumns)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := b.rng.Perm(int(features.NumColumns))[:k]
	sort.Ints(perm)
	return perm
}

func (b *treeBuilder) bestSplit(idx []int, parentSSE float64) (split, bool) {
	var best split
	found := false
	for _, f := range b.candidateFeatures() {
		var s split
		var ok bool
		if features.Schema[f].Kind == features.Categorical {
			s, ok = b.categoricalSplit(idx, f, parentSSE)
		} else {
			s, ok = b.numericSplit(idx, f, parentSSE)
		}
		if ok && (!found || s.gain > best.gain) {
			best, found = s, true
		}
	}
	return best, found
}

func (b *treeBuilder) numericSplit(idx []int, f int, parentSSE float64) (split, bool) {
	order := append([]int(nil), idx...)
	sort.SliceStable(order, func(i, j int) bool { return b.x[order[i]][f] < b.x[order[j]][f] })

	var totalSum, totalSq float64
	for _, i := range order {
		totalSum += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}

	n := len(order)
	minLeaf := b.params.MinLeafSize
	var leftSum, leftSq float64
	var best split
	found := false
	for k := 0; k < n-1; k++ {
		yi := b.y[order[k]]
		leftSum += yi
		leftSq += yi * yi

		cur, next := b.x[order[k]][f], b.x[order[k+1]][f]
		if cur == next {
			continue
		}
		ln, rn := k+1, n-k-1
		if ln < minLeaf || rn < minLeaf {
			continue
		}
		rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
		sse := (leftSq - leftSum*leftSum/float64(ln)) + (rightSq - rightSum*rightSum/float64(rn))
		gain := parentSSE - sse
		if gain > minGain && (!found || gain > best.gain) {
			best = split{feature: f, threshold: (cur + next) / 2, gain: gain}
			found = true
		}
	}
	return best, found
}

func (b *treeBuilder) categoricalSplit(idx []int, f int, parentSSE float64) (split, bool) {
	type agg struct {
		sum, sq float64
		n       int
	}
	groups := make(map[float64]*agg)
	var totalSum, totalSq float64
	for _, i := range idx {
		v, yi := b.x[i][f], b.y[i]
		g, ok := groups[v]
		if !ok {
			g = &agg{}
			groups[v] = g
		}
		g.sum += yi
		g.sq += yi * yi
		g.n++
		totalSum += yi
		totalSq += yi * yi
	}
	if len(groups) < 2 {
		return split{}, false
	}

	values := make([]float64, 0, len(groups))
	for v := range groups {
		values = append(values, v)
	}
	sort.Float64s(values)

	n := len(idx)
	minLeaf := b.params.MinLeafSize
	var best split
	found := false
	for _, v := range values {
		g := groups[v]
		rn := n - g.n
		if g.n < minLeaf || rn < minLeaf {
			continue
		}
		rightSum, rightSq := totalSum-g.sum, totalSq-g.sq
		sse := (g.sq - g.sum*g.sum/float64(g.n)) + (rightSq - rightSum*rightSum/float64(rn))
		gain := parentSSE - sse
		if gain > minGain && (!found || gain > best.gain) {
			best = split{feature: f, threshold: v, categorical: true, gain: gain}
			found = true
		}
	}
	return best, found
}
