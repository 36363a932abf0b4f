package quadtree

import "container/heap"

// candidate is one item in the best-first search frontier: either an
// internal/leaf node (entry == nil semantics via isEntry=false) or a single
// entry, both keyed by their lower-bound squared distance to the query
// point (§4.F).
type candidate[T Coord] struct {
	isEntry bool
	entry   Entry[T]
	node    *pointNode[T]
	dist    float64
}

// candidateQueue is a min-heap of candidates ordered by dist, giving the
// best-first traversal order §4.F's algorithm calls for.
type candidateQueue[T Coord] []candidate[T]

func (q candidateQueue[T]) Len() int            { return len(q) }
func (q candidateQueue[T]) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q candidateQueue[T]) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *candidateQueue[T]) Push(x any)         { *q = append(*q, x.(candidate[T])) }
func (q *candidateQueue[T]) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// result is one entry held in the bounded max-heap of current best matches.
// Ties at equal distance break by ascending id (§4.F "tie-break ... by
// insertion order (id)").
type result[T Coord] struct {
	entry Entry[T]
	dist  float64
}

// resultHeap is a max-heap (largest distance on top, so it can be evicted
// first) bounded to size k.
type resultHeap[T Coord] []result[T]

func (h resultHeap[T]) Len() int { return len(h) }
func (h resultHeap[T]) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist > h[j].dist // max-heap: larger distance sorts first
	}
	return h[i].entry.ID > h[j].entry.ID // evict the higher id first on ties
}
func (h resultHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *resultHeap[T]) Push(x any)   { *h = append(*h, x.(result[T])) }
func (h *resultHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// NearestNeighbors returns up to k entries closest to query, sorted by
// ascending distance with ties broken by ascending id (§4.F, §8 P6). If
// maxDist is non-nil, no entry farther than *maxDist is returned even if
// fewer than k entries qualify. k must be >= 1.
func (t *Tree[T]) NearestNeighbors(query Point[T], k int, maxDist *float64) []Entry[T] {
	if k < 1 || t.size == 0 {
		return nil
	}

	maxDistSq := float64(-1)
	if maxDist != nil {
		maxDistSq = *maxDist * *maxDist
	}

	frontier := &candidateQueue[T]{{node: t.root, dist: distanceSquaredToRect(t.root.bounds, query)}}
	heap.Init(frontier)

	results := &resultHeap[T]{}

	for frontier.Len() > 0 {
		top := (*frontier)[0]
		if maxDistSq >= 0 && top.dist > maxDistSq {
			break
		}
		if results.Len() >= k && top.dist > (*results)[0].dist {
			break
		}
		c := heap.Pop(frontier).(candidate[T])

		if c.isEntry {
			considerCandidate(results, k, c.entry, c.dist)
			continue
		}
		pushChildren(frontier, c.node, query, results, k, maxDistSq)
	}

	return drainSorted(results)
}

// pushChildren enqueues c.node's children (if internal) or entries (if
// leaf) onto frontier, pruning anything already worse than the current
// worst kept result or maxDistSq.
func pushChildren[T Coord](frontier *candidateQueue[T], n *pointNode[T], query Point[T], results *resultHeap[T], k int, maxDistSq float64) {
	if n.isLeaf() {
		for _, e := range n.entries {
			d := distanceSquared(e.Point, query)
			if !withinPruneBound(d, results, k, maxDistSq) {
				continue
			}
			heap.Push(frontier, candidate[T]{isEntry: true, entry: e, dist: d})
		}
		return
	}
	for _, child := range n.children {
		d := distanceSquaredToRect(child.bounds, query)
		if !withinPruneBound(d, results, k, maxDistSq) {
			continue
		}
		heap.Push(frontier, candidate[T]{node: child, dist: d})
	}
}

func withinPruneBound[T Coord](d float64, results *resultHeap[T], k int, maxDistSq float64) bool {
	if maxDistSq >= 0 && d > maxDistSq {
		return false
	}
	if results.Len() >= k && d > (*results)[0].dist {
		return false
	}
	return true
}

// considerCandidate inserts an entry candidate into the bounded results
// heap, evicting the current worst match if the heap is already full and
// this candidate is strictly closer (§4.F step 3).
func considerCandidate[T Coord](results *resultHeap[T], k int, e Entry[T], d float64) {
	if results.Len() < k {
		heap.Push(results, result[T]{entry: e, dist: d})
		return
	}
	worst := (*results)[0]
	if d < worst.dist || (d == worst.dist && e.ID < worst.entry.ID) {
		heap.Pop(results)
		heap.Push(results, result[T]{entry: e, dist: d})
	}
}

// drainSorted empties results into a slice sorted by ascending distance
// (then ascending id), the order NearestNeighbors promises callers.
func drainSorted[T Coord](results *resultHeap[T]) []Entry[T] {
	n := results.Len()
	out := make([]Entry[T], n)
	for i := n - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(result[T]).entry
	}
	return out
}
