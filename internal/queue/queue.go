// Package queue provides a bounded priority queue for k-nearest-neighbor
// candidate tracking.
package queue

// Candidate is an entry in the queue: a point index and its (squared)
// distance to the query point.
type Candidate struct {
	Index    uint32
	Distance float64
}

// KBest is a bounded max-heap of capacity k holding the k best (smallest
// distance) candidates seen so far. Ties in distance are broken by index so
// the retained set is deterministic: on equal distance the smaller index
// wins.
//
// Value-based storage, no pointer indirection.
type KBest struct {
	capacity int
	items    []Candidate
}

// NewKBest initializes a bounded queue that retains the k best candidates.
func NewKBest(k int) *KBest {
	return &KBest{
		capacity: k,
		items:    make([]Candidate, 0, k),
	}
}

// Len returns the number of candidates currently held.
func (q *KBest) Len() int { return len(q.items) }

// Full reports whether the queue holds its full capacity of candidates.
func (q *KBest) Full() bool { return len(q.items) == q.capacity }

// Worst returns the current worst retained candidate (largest distance,
// largest index on ties). The second return is false when the queue is empty.
func (q *KBest) Worst() (Candidate, bool) {
	if len(q.items) == 0 {
		return Candidate{}, false
	}
	return q.items[0], true
}

// Offer considers a candidate for retention. If the queue is not full the
// candidate is always kept; otherwise it replaces the current worst entry
// only when it is strictly better under the (distance, index) order.
func (q *KBest) Offer(c Candidate) {
	if len(q.items) < q.capacity {
		q.items = append(q.items, c)
		q.siftUp(len(q.items) - 1)
		return
	}
	if !worse(q.items[0], c) {
		return
	}
	q.items[0] = c
	q.siftDown(0)
}

// Sorted drains the heap and returns all retained candidates ascending by
// (distance, index). The queue is empty afterwards.
func (q *KBest) Sorted() []Candidate {
	out := make([]Candidate, len(q.items))
	for i := len(q.items) - 1; i >= 0; i-- {
		out[i] = q.pop()
	}
	return out
}

func (q *KBest) pop() Candidate {
	n := len(q.items)
	root := q.items[0]
	last := q.items[n-1]
	q.items[n-1] = Candidate{}
	q.items = q.items[:n-1]
	if n-1 > 0 {
		q.items[0] = last
		q.siftDown(0)
	}
	return root
}

// worse reports whether a ranks strictly worse than b: farther away, or
// equally far with a larger index.
func worse(a, b Candidate) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.Index > b.Index
}

func (q *KBest) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !worse(q.items[i], q.items[p]) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *KBest) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		worst := l
		if r := l + 1; r < n && worse(q.items[r], q.items[l]) {
			worst = r
		}
		if !worse(q.items[worst], q.items[i]) {
			return
		}
		q.items[i], q.items[worst] = q.items[worst], q.items[i]
		i = worst
	}
}
