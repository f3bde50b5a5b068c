// Package kdtree implements a balanced KD-tree for exact k-nearest-neighbor
// queries over float64 feature vectors.
//
// The tree is built once and is read-only afterwards, so it is safe for
// unlimited concurrent queries without locking.
package kdtree

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/alanvalejo/gbili/distance"
	"github.com/alanvalejo/gbili/internal/queue"
)

// ErrInvalidK is returned when k is not positive or there are not enough
// other points to answer the query.
var ErrInvalidK = errors.New("k must be positive and smaller than the point count")

// QueryError indicates an internal invariant violation during a
// nearest-neighbor query. It carries enough context to diagnose the fault.
type QueryError struct {
	Vertex uint32
	K      int
	Points int
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("kdtree: query for vertex %d (k=%d, points=%d) violated an internal invariant", e.Vertex, e.K, e.Points)
}

// Neighbor is one result of a k-nearest-neighbor query: a point index and
// its Euclidean distance to the query point.
type Neighbor struct {
	Index    uint32
	Distance float64
}

// bucketSize bounds the number of points stored in a leaf. Larger buckets
// shorten the tree and amortize traversal overhead over linear scans.
const bucketSize = 16

// node is an internal or leaf tree node. Leaves have nil children and own
// the index range [lo, hi) of the tree's order slice.
type node struct {
	dim   int
	split float64
	left  *node
	right *node
	lo    int
	hi    int
}

// Tree is an immutable balanced KD-tree over a fixed point set.
type Tree struct {
	points [][]float64
	dim    int
	order  []uint32
	root   *node
}

// buildFrame is one unit of pending construction work. Building runs over an
// explicit stack so pathological input distributions cannot blow the
// goroutine stack.
type buildFrame struct {
	lo, hi int
	parent *node
	left   bool
}

// Build constructs a balanced KD-tree over points. The slice is retained by
// reference and must not be mutated afterwards.
//
// Each internal node splits on the dimension with maximum variance over its
// subset, at the median value, so the depth stays near log2(n/bucketSize)
// regardless of the input distribution.
func Build(points [][]float64) *Tree {
	t := &Tree{
		points: points,
		order:  make([]uint32, len(points)),
	}
	if len(points) == 0 {
		return t
	}
	t.dim = len(points[0])
	for i := range t.order {
		t.order[i] = uint32(i)
	}

	scratch := make([]float64, 0, len(points))
	stack := []buildFrame{{lo: 0, hi: len(points)}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nd := &node{lo: frame.lo, hi: frame.hi}
		t.attach(nd, frame)

		if frame.hi-frame.lo <= bucketSize {
			continue
		}

		nd.dim = t.spreadDim(frame.lo, frame.hi, scratch)
		sub := t.order[frame.lo:frame.hi]
		sort.Slice(sub, func(i, j int) bool {
			vi, vj := t.points[sub[i]][nd.dim], t.points[sub[j]][nd.dim]
			if vi != vj {
				return vi < vj
			}
			return sub[i] < sub[j]
		})

		mid := frame.lo + (frame.hi-frame.lo)/2
		nd.split = t.points[t.order[mid]][nd.dim]

		stack = append(stack,
			buildFrame{lo: frame.lo, hi: mid, parent: nd, left: true},
			buildFrame{lo: mid, hi: frame.hi, parent: nd, left: false},
		)
	}

	return t
}

func (t *Tree) attach(nd *node, frame buildFrame) {
	switch {
	case frame.parent == nil:
		t.root = nd
	case frame.left:
		frame.parent.left = nd
	default:
		frame.parent.right = nd
	}
}

// spreadDim returns the dimension with maximum variance over the subset
// order[lo:hi]. Ties resolve to the lowest dimension.
func (t *Tree) spreadDim(lo, hi int, scratch []float64) int {
	best, bestVar := 0, math.Inf(-1)
	for d := 0; d < t.dim; d++ {
		scratch = scratch[:0]
		for _, idx := range t.order[lo:hi] {
			scratch = append(scratch, t.points[idx][d])
		}
		if v := stat.Variance(scratch, nil); v > bestVar {
			best, bestVar = d, v
		}
	}
	return best
}

// Len returns the number of indexed points.
func (t *Tree) Len() int { return len(t.points) }

// Dim returns the dimensionality of the indexed points.
func (t *Tree) Dim() int { return t.dim }

// KNN returns the k nearest other points to the point at the given index,
// ascending by Euclidean distance with ties broken by ascending index. The
// query point itself is never part of the result.
//
// Returns ErrInvalidK when k <= 0 or k >= Len().
func (t *Tree) KNN(query uint32, k int) ([]Neighbor, error) {
	n := len(t.points)
	if k <= 0 || k >= n {
		return nil, ErrInvalidK
	}
	if int(query) >= n {
		return nil, &QueryError{Vertex: query, K: k, Points: n}
	}

	best := queue.NewKBest(k)
	t.search(t.root, t.points[query], query, best)

	candidates := best.Sorted()
	if len(candidates) != k {
		// k < n was validated above, so the traversal must have seen at
		// least k other points.
		return nil, &QueryError{Vertex: query, K: k, Points: n}
	}

	result := make([]Neighbor, k)
	for i, c := range candidates {
		result[i] = Neighbor{Index: c.Index, Distance: math.Sqrt(c.Distance)}
	}
	return result, nil
}

// search runs the branch-and-bound traversal. Comparisons use squared
// distances; a subtree is skipped only when the squared distance from the
// query to its splitting plane strictly exceeds the current k-th best.
// Recursion depth is bounded by the balanced tree height.
func (t *Tree) search(nd *node, q []float64, self uint32, best *queue.KBest) {
	if nd.left == nil {
		for _, idx := range t.order[nd.lo:nd.hi] {
			if idx == self {
				continue
			}
			best.Offer(queue.Candidate{
				Index:    idx,
				Distance: distance.SquaredL2(q, t.points[idx]),
			})
		}
		return
	}

	delta := q[nd.dim] - nd.split
	near, far := nd.left, nd.right
	if delta > 0 {
		near, far = far, near
	}

	t.search(near, q, self, best)

	if !best.Full() {
		t.search(far, q, self, best)
		return
	}
	// Descend on equality too: an equal-distance candidate with a smaller
	// index may still displace the current worst.
	if worst, _ := best.Worst(); delta*delta <= worst.Distance {
		t.search(far, q, self, best)
	}
}
