package quadtree

// RectTree is a bounded-region rectangle quadtree over coordinate type T.
// It mirrors Tree's operations but stores axis-aligned rectangles instead
// of points, with overlap semantics in place of point containment (§4.B
// rect variant). The zero value is not usable; construct one with
// NewRectTree.
//
// Like Tree, RectTree is single-writer: mutating calls must not run
// concurrently with each other or with reads (§5).
type RectTree[T Coord] struct {
	bounds   Rect[T]
	capacity int
	maxDepth int
	root     *rectNode[T]
	nextID   uint64
	size     int
}

// NewRectTree constructs an empty RectTree. bounds must satisfy Rect's
// min<=max invariant; capacity must be >= 1; maxDepth must be >= 0 or
// UnlimitedDepth.
func NewRectTree[T Coord](bounds Rect[T], capacity int, maxDepth int) (*RectTree[T], error) {
	if _, err := NewRect(bounds.MinX, bounds.MinY, bounds.MaxX, bounds.MaxY); err != nil {
		return nil, err
	}
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	if maxDepth != UnlimitedDepth && maxDepth < 0 {
		return nil, ErrInvalidCapacity
	}
	return &RectTree[T]{
		bounds:   bounds,
		capacity: capacity,
		maxDepth: maxDepth,
		root:     newRectLeaf[T](bounds, 0),
	}, nil
}

// Bounds, Capacity, MaxDepth and Size are all O(1) accessors (§4.C).
func (t *RectTree[T]) Bounds() Rect[T] { return t.bounds }
func (t *RectTree[T]) Capacity() int   { return t.capacity }
func (t *RectTree[T]) MaxDepth() int   { return t.maxDepth }
func (t *RectTree[T]) Size() int       { return t.size }
func (t *RectTree[T]) Kind() CoordKind { return kindOf[T]() }

// Insert adds r under an auto-assigned id (§4.B Insert, §4.C).
func (t *RectTree[T]) Insert(r Rect[T]) (uint64, error) {
	id := t.nextID
	if err := t.InsertWithID(r, id); err != nil {
		return 0, err
	}
	return id, nil
}

// InsertWithID adds r under a caller-supplied id. Like Tree, the core
// doesn't enforce id uniqueness — that's ObjectMap's job. If id >= the
// tree's auto-assignment counter, the counter advances past it.
func (t *RectTree[T]) InsertWithID(r Rect[T], id uint64) error {
	if !t.bounds.ContainsRect(r) {
		return ErrOutOfBounds
	}
	t.root.insert(RectEntry[T]{ID: id, Rect: r}, t.capacity, t.maxDepth)
	t.size++
	if id >= t.nextID {
		t.nextID = id + 1
	}
	return nil
}

// InsertMany inserts rects in order, stopping at the first one outside
// bounds, same stop-at-first-failure contract as Tree.InsertMany.
func (t *RectTree[T]) InsertMany(rects []Rect[T]) (int, error) {
	for i, r := range rects {
		if _, err := t.Insert(r); err != nil {
			return i, &InsertManyError{Index: i, Err: err}
		}
	}
	return len(rects), nil
}

// InsertManyAtomic inserts all rects only if every one is within bounds;
// on any failure nothing is inserted.
func (t *RectTree[T]) InsertManyAtomic(rects []Rect[T]) error {
	for i, r := range rects {
		if !t.bounds.ContainsRect(r) {
			return &InsertManyError{Index: i, Err: ErrOutOfBounds}
		}
	}
	for _, r := range rects {
		_, _ = t.Insert(r)
	}
	return nil
}

// InsertManyBulk is the array-interchange-friendly entry point for rects:
// parallel min/max coordinate slices instead of a slice of Rect structs.
// ids may be nil, in which case every rect gets an auto-assigned id.
func (t *RectTree[T]) InsertManyBulk(minXs, minYs, maxXs, maxYs []T, ids []uint64) (int, error) {
	n := len(minXs)
	if len(minYs) != n || len(maxXs) != n || len(maxYs) != n {
		return 0, newFormatError(FormatTruncated, "coordinate slice length mismatch")
	}
	if ids != nil && len(ids) != n {
		return 0, newFormatError(FormatTruncated, "ids length mismatch")
	}
	for i := 0; i < n; i++ {
		r, err := NewRect(minXs[i], minYs[i], maxXs[i], maxYs[i])
		if err != nil {
			return i, &InsertManyError{Index: i, Err: err}
		}
		if ids != nil {
			err = t.InsertWithID(r, ids[i])
		} else {
			_, err = t.Insert(r)
		}
		if err != nil {
			return i, &InsertManyError{Index: i, Err: err}
		}
	}
	return n, nil
}

// Delete removes the entry matching id and rect exactly (§4.B rect variant
// "Deletion requires matching id and stored bounds exactly").
func (t *RectTree[T]) Delete(id uint64, r Rect[T]) bool {
	if !t.bounds.ContainsRect(r) {
		return false
	}
	removed := t.root.delete(id, r, t.capacity)
	if removed {
		t.size--
	}
	return removed
}

// Query returns every live entry whose stored rect intersects rng (§4.B
// rect variant "Range query emits rects whose stored bounds intersect the
// query rect").
func (t *RectTree[T]) Query(rng Rect[T]) []RectEntry[T] {
	return t.root.query(rng, nil)
}
