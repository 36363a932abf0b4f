package quadtree

// Tree is a bounded-region point quadtree over coordinate type T. The zero
// value is not usable; construct one with NewTree.
//
// Tree is single-writer: mutating calls (Insert*, Delete) must
// not run concurrently with each other or with reads, but concurrent reads
// (Query, NearestNeighbors, Bytes, the accessors) against an otherwise
// unmodified Tree are safe (§5).
type Tree[T Coord] struct {
	bounds   Rect[T]
	capacity int
	maxDepth int
	root     *pointNode[T]
	nextID   uint64
	size     int
}

// NewTree constructs an empty Tree. bounds must satisfy Rect's min<=max
// invariant; capacity must be >= 1; maxDepth must be >= 0 or UnlimitedDepth.
func NewTree[T Coord](bounds Rect[T], capacity int, maxDepth int) (*Tree[T], error) {
	if _, err := NewRect(bounds.MinX, bounds.MinY, bounds.MaxX, bounds.MaxY); err != nil {
		return nil, err
	}
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	if maxDepth != UnlimitedDepth && maxDepth < 0 {
		return nil, ErrInvalidCapacity
	}
	return &Tree[T]{
		bounds:   bounds,
		capacity: capacity,
		maxDepth: maxDepth,
		root:     newPointLeaf[T](bounds, 0),
	}, nil
}

// Bounds, Capacity, MaxDepth and Size are all O(1) accessors (§4.C).
func (t *Tree[T]) Bounds() Rect[T] { return t.bounds }
func (t *Tree[T]) Capacity() int   { return t.capacity }
func (t *Tree[T]) MaxDepth() int   { return t.maxDepth }
func (t *Tree[T]) Size() int       { return t.size }
func (t *Tree[T]) Kind() CoordKind { return kindOf[T]() }

// Insert adds p to the tree under an auto-assigned id (§4.B Insert, §4.C).
func (t *Tree[T]) Insert(p Point[T]) (uint64, error) {
	id := t.nextID
	if err := t.InsertWithID(p, id); err != nil {
		return 0, err
	}
	return id, nil
}

// InsertWithID adds p under a caller-supplied id. The core does not enforce
// id uniqueness (§3 Id) — that's ObjectMap's job when the caller wants it.
// If id >= the tree's internal auto-assignment counter, the counter is
// advanced past it so a later auto-assigned Insert can't collide.
func (t *Tree[T]) InsertWithID(p Point[T], id uint64) error {
	if !t.bounds.ContainsPoint(p) {
		return ErrOutOfBounds
	}
	t.root.insert(Entry[T]{ID: id, Point: p}, t.capacity, t.maxDepth)
	t.size++
	if id >= t.nextID {
		t.nextID = id + 1
	}
	return nil
}

// InsertManyError reports how many of a bulk insert's points made it in
// before the first out-of-bounds point was hit (§4.C insert_many, §7 kind 4
// "default contract reports (inserted_count, first_error)").
type InsertManyError struct {
	Index int
	Err   error
}

func (e *InsertManyError) Error() string {
	return e.Err.Error()
}

func (e *InsertManyError) Unwrap() error { return e.Err }

// InsertMany inserts points in order, stopping at the first point outside
// bounds. It returns the number of points successfully inserted and, if it
// stopped early, an *InsertManyError naming the failing index. This is the
// "report first failing index and stop" contract the spec fixes; use
// InsertManyAtomic for all-or-nothing semantics instead.
func (t *Tree[T]) InsertMany(points []Point[T]) (int, error) {
	for i, p := range points {
		if _, err := t.Insert(p); err != nil {
			return i, &InsertManyError{Index: i, Err: err}
		}
	}
	return len(points), nil
}

// InsertManyAtomic inserts all points only if every one is within bounds;
// on any failure nothing is inserted and the tree is left unchanged. This
// is the named all-or-nothing alternative §9's Open Questions permits.
func (t *Tree[T]) InsertManyAtomic(points []Point[T]) error {
	for i, p := range points {
		if !t.bounds.ContainsPoint(p) {
			return &InsertManyError{Index: i, Err: ErrOutOfBounds}
		}
	}
	for _, p := range points {
		_, _ = t.Insert(p)
	}
	return nil
}

// InsertManyBulk is the array-interchange-friendly entry point (§4.C
// insert_many_bulk): it takes parallel coordinate slices instead of a slice
// of Point structs, so a caller holding a dense numeric array (e.g. one
// decoded from another language's FFI boundary, which is itself out of
// scope per §1) doesn't have to box each point first. ids may be nil, in
// which case every point gets an auto-assigned id; otherwise it must have
// the same length as xs/ys.
func (t *Tree[T]) InsertManyBulk(xs, ys []T, ids []uint64) (int, error) {
	if len(xs) != len(ys) {
		return 0, newFormatError(FormatTruncated, "xs and ys length mismatch")
	}
	if ids != nil && len(ids) != len(xs) {
		return 0, newFormatError(FormatTruncated, "ids length mismatch")
	}
	for i := range xs {
		p := Point[T]{X: xs[i], Y: ys[i]}
		var err error
		if ids != nil {
			err = t.InsertWithID(p, ids[i])
		} else {
			_, err = t.Insert(p)
		}
		if err != nil {
			return i, &InsertManyError{Index: i, Err: err}
		}
	}
	return len(xs), nil
}

// Delete removes the entry with the given id at the given exact point,
// merging ancestor nodes back into leaves where possible (§4.B Delete).
func (t *Tree[T]) Delete(id uint64, p Point[T]) bool {
	if !t.bounds.ContainsPoint(p) {
		return false
	}
	removed := t.root.delete(id, p, t.capacity)
	if removed {
		t.size--
	}
	return removed
}

// Query returns every live entry whose point lies in rng under the
// half-open containment rule, in traversal order (§4.B Range query,
// §4.C query). Callers needing a specific order must sort the result.
func (t *Tree[T]) Query(rng Rect[T]) []Entry[T] {
	return t.root.query(rng, nil)
}
