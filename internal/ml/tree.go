package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const numClasses = 2

// Node is one entry of a flattened tree. Leaves have Left == -1 and carry
// the class distribution of the training samples that reached them.
type Node struct {
	Feature   int        `json:"f"`
	Threshold float64    `json:"t"`
	Left      int        `json:"l"`
	Right     int        `json:"r"`
	Value     [2]float64 `json:"v"`
}

// Tree is a binary decision tree stored as a flat node array rooted at 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) leaf(x []float64) *Node {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// proba returns the class-1 fraction at the leaf x falls into.
func (t *Tree) proba(x []float64) float64 {
	return t.leaf(x).Value[1]
}

// validate checks that every node is well formed and that children come
// after their parent, so traversal always terminates inside Nodes.
func (t *Tree) validate(nFeatures int) error {
	if t == nil || len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		for _, v := range n.Value {
			if math.IsNaN(v) || v < 0 || v > 1 {
				return fmt.Errorf("node %d: class fraction %v outside [0,1]", i, v)
			}
		}
		if n.Left < 0 {
			if n.Right >= 0 {
				return fmt.Errorf("node %d: leaf with a right child", i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("node %d: feature %d out of range [0,%d)", i, n.Feature, nFeatures)
		}
		if math.IsNaN(n.Threshold) {
			return fmt.Errorf("node %d: threshold is NaN", i)
		}
		for _, child := range [2]int{n.Left, n.Right} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d: child %d out of range (%d,%d)", i, child, i, len(t.Nodes))
			}
		}
	}
	return nil
}

type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
}

type treeBuilder struct {
	X           [][]float64
	y           []int
	params      treeParams
	rnd         *rand.Rand
	nFeatures   int
	nTotal      float64
	importances []float64
	nodes       []Node
}

func buildTree(X [][]float64, y []int, samples []int, p treeParams, rnd *rand.Rand) (*Tree, []float64) {
	b := &treeBuilder{
		X:           X,
		y:           y,
		params:      p,
		rnd:         rnd,
		nFeatures:   len(X[0]),
		nTotal:      float64(len(samples)),
		importances: make([]float64, len(X[0])),
	}
	b.build(samples, 0)

	var sum float64
	for _, v := range b.importances {
		sum += v
	}
	if sum > 0 {
		for i := range b.importances {
			b.importances[i] /= sum
		}
	}
	return &Tree{Nodes: b.nodes}, b.importances
}

func (b *treeBuilder) counts(samples []int) [numClasses]float64 {
	var c [numClasses]float64
	for _, i := range samples {
		c[b.y[i]]++
	}
	return c
}

func gini(c [numClasses]float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, v := range c {
		p := v / n
		g -= p * p
	}
	return g
}

func (b *treeBuilder) addLeaf(c [numClasses]float64, n float64) int {
	var value [2]float64
	for k := range c {
		value[k] = c[k] / n
	}
	b.nodes = append(b.nodes, Node{Feature: -1, Left: -1, Right: -1, Value: value})
	return len(b.nodes) - 1
}

func (b *treeBuilder) build(samples []int, depth int) int {
	c := b.counts(samples)
	n := float64(len(samples))
	impurity := gini(c, n)

	if impurity == 0 ||
		len(samples) < b.params.minSamplesSplit ||
		len(samples) < 2*b.params.minSamplesLeaf ||
		(b.params.maxDepth > 0 && depth >= b.params.maxDepth) {
		return b.addLeaf(c, n)
	}

	feature, threshold, childImpurity, ok := b.bestSplit(samples, c)
	if !ok {
		return b.addLeaf(c, n)
	}

	var left, right []int
	for _, i := range samples {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.importances[feature] += (n*impurity - childImpurity) / b.nTotal

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: feature, Threshold: threshold})
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	for k := range c {
		b.nodes[idx].Value[k] = c[k] / n
	}
	return idx
}

// bestSplit draws features in random order and evaluates them until
// maxFeatures non-constant features have been seen. childImpurity is the
// sample-weighted gini sum of the two children.
func (b *treeBuilder) bestSplit(samples []int, total [numClasses]float64) (int, float64, float64, bool) {
	order := b.rnd.Perm(b.nFeatures)
	sorted := make([]int, len(samples))

	bestFeature, bestThreshold := -1, 0.0
	bestImpurity := math.Inf(1)
	visited := 0

	for _, f := range order {
		if visited >= b.params.maxFeatures {
			break
		}
		copy(sorted, samples)
		sort.Slice(sorted, func(i, j int) bool { return b.X[sorted[i]][f] < b.X[sorted[j]][f] })

		if b.X[sorted[0]][f] == b.X[sorted[len(sorted)-1]][f] {
			continue
		}
		visited++

		var left [numClasses]float64
		n := len(sorted)
		for i := 0; i < n-1; i++ {
			left[b.y[sorted[i]]]++
			cur, next := b.X[sorted[i]][f], b.X[sorted[i+1]][f]
			if cur == next {
				continue
			}
			nl := i + 1
			nr := n - nl
			if nl < b.params.minSamplesLeaf || nr < b.params.minSamplesLeaf {
				continue
			}
			var right [numClasses]float64
			for k := range total {
				right[k] = total[k] - left[k]
			}
			imp := float64(nl)*gini(left, float64(nl)) + float64(nr)*gini(right, float64(nr))
			if imp < bestImpurity {
				bestImpurity = imp
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				if bestThreshold == next {
					bestThreshold = cur
				}
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, bestImpurity, true
}
