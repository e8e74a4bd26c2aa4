package tree

import (
	"cmp"
	"container/heap"
	"math/rand/v2"
	"slices"
)

// split is the best threshold found for a node.
type split struct {
	feature   int
	threshold float64
	gain      float64
}

// candidate is a node waiting to be split.
type candidate struct {
	node    int
	samples []int
	depth   int
	split   split
}

// frontier is a max-heap of candidates by gain. Ties go to the older node.
type frontier []*candidate

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].split.gain != f[j].split.gain {
		return f[i].split.gain > f[j].split.gain
	}
	return f[i].node < f[j].node
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any) { *f = append(*f, x.(*candidate)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	c := old[n-1]
	*f = old[:n-1]
	return c
}

type builder struct {
	cols [][]float64
	y    []float64

	maxDepth     int
	minSplit     int
	minLeaf      int
	maxFeatures  int
	maxLeafNodes int
	rng          *rand.Rand

	nodes  []node
	leaves int
	depth  int
}

// grow expands nodes best-first by squared-error reduction. Without a leaf
// limit every splittable node is eventually expanded.
func (b *builder) grow(samples []int) {
	var open frontier
	if _, c := b.newNode(samples, 0); c != nil {
		heap.Push(&open, c)
	}

	for open.Len() > 0 {
		if b.maxLeafNodes > 0 && b.leaves >= b.maxLeafNodes {
			break
		}
		c := heap.Pop(&open).(*candidate)

		left, right := partition(c.samples, b.cols[c.split.feature], c.split.threshold)

		// one leaf becomes two
		b.leaves++
		li, l := b.newNode(left, c.depth+1)
		ri, r := b.newNode(right, c.depth+1)

		nd := &b.nodes[c.node]
		nd.feature = c.split.feature
		nd.threshold = c.split.threshold
		nd.left = li
		nd.right = ri

		if l != nil {
			heap.Push(&open, l)
		}
		if r != nil {
			heap.Push(&open, r)
		}
	}
}

// newNode appends a leaf for samples. The candidate is nil when the node
// cannot be split further.
func (b *builder) newNode(samples []int, depth int) (int, *candidate) {
	var sum float64
	for _, s := range samples {
		sum += b.y[s]
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{
		left:    leaf,
		right:   leaf,
		value:   sum / float64(len(samples)),
		samples: len(samples),
	})
	if idx == 0 {
		b.leaves = 1
	}
	if depth > b.depth {
		b.depth = depth
	}

	if len(samples) < b.minSplit || len(samples) < 2*b.minLeaf {
		return idx, nil
	}
	if b.maxDepth > 0 && depth >= b.maxDepth {
		return idx, nil
	}
	if constant(b.y, samples) {
		return idx, nil
	}
	sp, ok := b.bestSplit(samples, sum)
	if !ok {
		return idx, nil
	}
	return idx, &candidate{node: idx, samples: samples, depth: depth, split: sp}
}

// bestSplit scans sorted feature values and maximizes
// sumL²/nL + sumR²/nR - sum²/n, which equals the reduction in SSE.
func (b *builder) bestSplit(samples []int, total float64) (split, bool) {
	n := len(samples)
	parent := total * total / float64(n)
	best := split{feature: -1}

	order := make([]int, n)
	for _, f := range b.features() {
		col := b.cols[f]
		copy(order, samples)
		slices.SortFunc(order, func(a, c int) int { return cmp.Compare(col[a], col[c]) })

		var left float64
		for i := 0; i < n-1; i++ {
			left += b.y[order[i]]
			nl := i + 1
			if nl < b.minLeaf || n-nl < b.minLeaf {
				continue
			}
			v, next := col[order[i]], col[order[i+1]]
			if v == next {
				continue
			}
			right := total - left
			gain := left*left/float64(nl) + right*right/float64(n-nl) - parent
			if gain > best.gain {
				threshold := v/2 + next/2
				if threshold == next {
					threshold = v
				}
				best = split{feature: f, threshold: threshold, gain: gain}
			}
		}
	}
	return best, best.feature >= 0
}

// features returns the feature indices to try at one split.
func (b *builder) features() []int {
	c := len(b.cols)
	if b.maxFeatures <= 0 || b.maxFeatures >= c {
		all := make([]int, c)
		for i := range all {
			all[i] = i
		}
		return all
	}
	picked := b.rng.Perm(c)[:b.maxFeatures]
	slices.Sort(picked)
	return picked
}

func partition(samples []int, col []float64, threshold float64) (left, right []int) {
	for _, s := range samples {
		if col[s] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	return left, right
}

func constant(y []float64, samples []int) bool {
	first := y[samples[0]]
	for _, s := range samples[1:] {
		if y[s] != first {
			return false
		}
	}
	return true
}
