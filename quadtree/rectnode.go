package quadtree

// rectNode generalizes pointNode for the rect-tree variant (§4.B "The
// node type generalizes: every internal node may carry a small retained
// bucket of straddling rects in addition to its four children"). A leaf
// (children == nil) keeps every entry in bucket. An internal node keeps
// only the entries that straddle a split line — ones no single child fully
// contains — in its own bucket, and recurses the rest into children.
type rectNode[T Coord] struct {
	bounds   Rect[T]
	depth    int
	bucket   []RectEntry[T]
	children *[4]*rectNode[T]
}

func newRectLeaf[T Coord](bounds Rect[T], depth int) *rectNode[T] {
	return &rectNode[T]{bounds: bounds, depth: depth}
}

func (n *rectNode[T]) isLeaf() bool { return n.children == nil }

func (n *rectNode[T]) canSplit(maxDepth int) bool {
	return maxDepth == UnlimitedDepth || n.depth < maxDepth
}

// count returns the number of live entries in the subtree rooted at n,
// including straddling entries retained at internal nodes.
func (n *rectNode[T]) count() int {
	total := len(n.bucket)
	if !n.isLeaf() {
		for _, c := range n.children {
			total += c.count()
		}
	}
	return total
}

// rectChildIndex returns the index of the single child of a node with
// bounds r (subdivided the usual way) that fully contains rect, or false if
// rect straddles a split line and no single child fully contains it. Since
// the four children exactly tile r with no overlap, at most one can fully
// contain a rect of positive width and height; a zero-width or zero-height
// rect lying on a split line is contained by two children, and the first of
// them in NW,NE,SW,SE order is returned.
func rectChildIndex[T Coord](r Rect[T], rect Rect[T]) (int, bool) {
	nw, ne, sw, se := Subdivide(r)
	switch {
	case nw.ContainsRect(rect):
		return int(NW), true
	case ne.ContainsRect(rect):
		return int(NE), true
	case sw.ContainsRect(rect):
		return int(SW), true
	case se.ContainsRect(rect):
		return int(SE), true
	default:
		return 0, false
	}
}

// insert places e into the subtree rooted at n, descending into whichever
// child fully contains e.Rect and otherwise retaining e in n's own bucket
// (§4.D Insertion places a rect into the deepest node that still fully
// contains it).
func (n *rectNode[T]) insert(e RectEntry[T], capacity, maxDepth int) {
	if !n.isLeaf() {
		if idx, ok := rectChildIndex(n.bounds, e.Rect); ok {
			n.children[idx].insert(e, capacity, maxDepth)
			return
		}
		n.bucket = append(n.bucket, e)
		return
	}

	n.bucket = append(n.bucket, e)
	if len(n.bucket) > capacity && n.canSplit(maxDepth) {
		n.split(capacity, maxDepth)
	}
}

// split turns a leaf into an internal node. Every bucket entry that a child
// fully contains is reinserted into that child (recursively, so the child
// may itself split further); everything else — straddling the split lines —
// stays retained in n's own bucket.
func (n *rectNode[T]) split(capacity, maxDepth int) {
	nw, ne, sw, se := Subdivide(n.bounds)
	children := [4]*rectNode[T]{
		newRectLeaf[T](nw, n.depth+1),
		newRectLeaf[T](ne, n.depth+1),
		newRectLeaf[T](sw, n.depth+1),
		newRectLeaf[T](se, n.depth+1),
	}
	old := n.bucket
	n.bucket = nil
	n.children = &children
	for _, e := range old {
		if idx, ok := rectChildIndex(n.bounds, e.Rect); ok {
			children[idx].insert(e, capacity, maxDepth)
		} else {
			n.bucket = append(n.bucket, e)
		}
	}
}

// delete removes the entry matching id and rect exactly, from wherever
// insert would have placed it, merging the node that held it and its
// ancestors back into leaves where possible (§4.D Deletion requires matching
// id and stored bounds exactly).
func (n *rectNode[T]) delete(id uint64, r Rect[T], capacity int) bool {
	if !n.isLeaf() {
		if idx, ok := rectChildIndex(n.bounds, r); ok {
			removed := n.children[idx].delete(id, r, capacity)
			if removed {
				n.mergeIfPossible(capacity)
			}
			return removed
		}
	}
	for i, e := range n.bucket {
		if e.ID == id && e.Rect == r {
			n.bucket[i] = n.bucket[len(n.bucket)-1]
			n.bucket = n.bucket[:len(n.bucket)-1]
			n.mergeIfPossible(capacity)
			return true
		}
	}
	return false
}

// mergeIfPossible folds n's four children (plus n's own retained bucket)
// back into a single leaf once all four children are themselves leaves and
// the combined entry count fits within capacity.
func (n *rectNode[T]) mergeIfPossible(capacity int) {
	if n.isLeaf() {
		return
	}
	total := len(n.bucket)
	for _, c := range n.children {
		if !c.isLeaf() {
			return
		}
		total += len(c.bucket)
	}
	if total > capacity {
		return
	}
	merged := make([]RectEntry[T], 0, total)
	merged = append(merged, n.bucket...)
	for _, c := range n.children {
		merged = append(merged, c.bucket...)
	}
	n.bucket = merged
	n.children = nil
}

// query appends every entry in the subtree rooted at n whose rect
// intersects rng to out (§4.D Range query emits rects whose stored bounds
// intersect the query rect).
func (n *rectNode[T]) query(rng Rect[T], out []RectEntry[T]) []RectEntry[T] {
	if !n.bounds.Intersects(rng) {
		return out
	}
	if rng.ContainsRect(n.bounds) {
		return n.appendAll(out)
	}
	for _, e := range n.bucket {
		if rng.Intersects(e.Rect) {
			out = append(out, e)
		}
	}
	if !n.isLeaf() {
		for _, c := range n.children {
			out = c.query(rng, out)
		}
	}
	return out
}

// appendAll emits every entry in the subtree without a predicate check.
// Safe because every entry anywhere under n is, by construction, fully
// contained within n.bounds, so once rng fully contains n.bounds every
// entry trivially intersects rng.
func (n *rectNode[T]) appendAll(out []RectEntry[T]) []RectEntry[T] {
	out = append(out, n.bucket...)
	if !n.isLeaf() {
		for _, c := range n.children {
			out = c.appendAll(out)
		}
	}
	return out
}
