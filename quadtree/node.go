package quadtree

// UnlimitedDepth marks a tree as never being forced to stop splitting by
// depth (§9 Open Questions: "max_depth = 0" is a valid, different, choice —
// a single leaf that never splits — so unlimited needs its own sentinel).
const UnlimitedDepth = -1

// pointNode is either a leaf (children == nil, entries holds the bucket) or
// an internal node (children != nil, entries unused) with exactly four
// children in NW,NE,SW,SE order. There is no parent back-pointer (§9:
// "Recursive node ownership without cycles") — callers that need to walk
// back up (merge propagation) do so by recursing with the path on the call
// stack instead.
type pointNode[T Coord] struct {
	bounds   Rect[T]
	depth    int
	entries  []Entry[T]
	children *[4]*pointNode[T]
}

func newPointLeaf[T Coord](bounds Rect[T], depth int) *pointNode[T] {
	return &pointNode[T]{bounds: bounds, depth: depth}
}

func (n *pointNode[T]) isLeaf() bool { return n.children == nil }

// count returns the number of live entries in the subtree rooted at n.
func (n *pointNode[T]) count() int {
	if n.isLeaf() {
		return len(n.entries)
	}
	total := 0
	for _, c := range n.children {
		total += c.count()
	}
	return total
}

// canSplit reports whether n is allowed to subdivide further.
func (n *pointNode[T]) canSplit(maxDepth int) bool {
	return maxDepth == UnlimitedDepth || n.depth < maxDepth
}

// insert places e into the subtree rooted at n, splitting n if it overflows
// capacity and is allowed to (§4.B Insert steps 2-3). n.bounds is assumed to
// already contain e.Point — the root-bounds check happens once, in Tree.Insert.
func (n *pointNode[T]) insert(e Entry[T], capacity int, maxDepth int) {
	if !n.isLeaf() {
		idx := childFor(n.bounds, e.Point)
		n.children[idx].insert(e, capacity, maxDepth)
		return
	}

	n.entries = append(n.entries, e)
	if len(n.entries) > capacity && n.canSplit(maxDepth) {
		n.split(capacity, maxDepth)
	}
}

// split turns a leaf into an internal node, redistributing its bucket into
// four new leaf children. A split never cascades eagerly (§4.B step 3): a
// child that ends up over capacity waits for its own next insert to split.
func (n *pointNode[T]) split(capacity int, maxDepth int) {
	nw, ne, sw, se := Subdivide(n.bounds)
	children := [4]*pointNode[T]{
		newPointLeaf[T](nw, n.depth+1),
		newPointLeaf[T](ne, n.depth+1),
		newPointLeaf[T](sw, n.depth+1),
		newPointLeaf[T](se, n.depth+1),
	}
	old := n.entries
	n.entries = nil
	n.children = &children
	for _, e := range old {
		idx := childFor(n.bounds, e.Point)
		children[idx].entries = append(children[idx].entries, e)
	}
}

// delete removes the entry matching id and point exactly from the subtree
// rooted at n, reporting whether it found one. mergeIfPossible is invoked on
// the way back up for every internal node on the path once an entry has been
// removed, so the caller (Tree.Delete) doesn't need a second descent to find
// the merge point.
func (n *pointNode[T]) delete(id uint64, p Point[T], capacity int) bool {
	if n.isLeaf() {
		for i, e := range n.entries {
			if e.ID == id && e.Point == p {
				n.entries[i] = n.entries[len(n.entries)-1]
				n.entries = n.entries[:len(n.entries)-1]
				return true
			}
		}
		return false
	}

	idx := childFor(n.bounds, p)
	removed := n.children[idx].delete(id, p, capacity)
	if removed {
		n.mergeIfPossible(capacity)
	}
	return removed
}

// mergeIfPossible folds n's four children back into a single leaf when all
// four are leaves and their combined size fits in one bucket (§3 invariant
//3, §8 P7).
func (n *pointNode[T]) mergeIfPossible(capacity int) {
	if n.isLeaf() {
		return
	}
	total := 0
	for _, c := range n.children {
		if !c.isLeaf() {
			return
		}
		total += len(c.entries)
	}
	if total > capacity {
		return
	}
	merged := make([]Entry[T], 0, total)
	for _, c := range n.children {
		merged = append(merged, c.entries...)
	}
	n.entries = merged
	n.children = nil
}

// query appends every entry in the subtree rooted at n whose point lies in
// rng to out, pruning disjoint subtrees and short-circuiting fully-covered
// ones (§4.B Range query).
func (n *pointNode[T]) query(rng Rect[T], out []Entry[T]) []Entry[T] {
	if !n.bounds.Intersects(rng) {
		return out
	}
	if rng.ContainsRect(n.bounds) {
		return n.appendAll(out)
	}
	if n.isLeaf() {
		for _, e := range n.entries {
			if rng.ContainsPoint(e.Point) {
				out = append(out, e)
			}
		}
		return out
	}
	for _, c := range n.children {
		out = c.query(rng, out)
	}
	return out
}

// appendAll emits every entry in the subtree without any predicate check,
// used once a query rect is known to fully contain a node's bounds.
func (n *pointNode[T]) appendAll(out []Entry[T]) []Entry[T] {
	if n.isLeaf() {
		return append(out, n.entries...)
	}
	for _, c := range n.children {
		out = c.appendAll(out)
	}
	return out
}
