package quadtree

// ObjectMap is the bidirectional id<->handle side table described in §3/§9
// ("An implementation should not require handles to be hashable by value —
// identity hashing ... is sufficient"). H is constrained to comparable so
// the map can use Go's native map equality directly: for pointer or
// interface handles that's identity, for value handles it's structural
// equality, and neither needs a custom hash function.
type ObjectMap[H comparable] struct {
	byID     map[uint64]H
	byHandle map[H]uint64
}

// NewObjectMap constructs an empty ObjectMap.
func NewObjectMap[H comparable]() *ObjectMap[H] {
	return &ObjectMap[H]{
		byID:     make(map[uint64]H),
		byHandle: make(map[H]uint64),
	}
}

// ErrDuplicateHandle is returned by Bind when handle is already bound to a
// different id, and ErrDuplicateID when id is already bound to a different
// handle — the uniqueness ObjectMap enforces that the bare tree core
// doesn't (§3 Id: "The core does not itself enforce id uniqueness").
var (
	ErrDuplicateHandle = &mapError{"handle already bound"}
	ErrDuplicateID     = &mapError{"id already bound"}
)

type mapError struct{ msg string }

func (e *mapError) Error() string { return e.msg }

// Bind associates id with handle. It fails if either side is already bound
// to something else, keeping the mapping one-to-one in both directions.
func (m *ObjectMap[H]) Bind(id uint64, handle H) error {
	if existing, ok := m.byID[id]; ok && existing != handle {
		return ErrDuplicateID
	}
	if existing, ok := m.byHandle[handle]; ok && existing != id {
		return ErrDuplicateHandle
	}
	m.byID[id] = handle
	m.byHandle[handle] = id
	return nil
}

// Unbind removes the association for id, if any, reporting whether one was
// found.
func (m *ObjectMap[H]) Unbind(id uint64) bool {
	handle, ok := m.byID[id]
	if !ok {
		return false
	}
	delete(m.byID, id)
	delete(m.byHandle, handle)
	return true
}

// UnbindHandle removes the association for handle, if any.
func (m *ObjectMap[H]) UnbindHandle(handle H) bool {
	id, ok := m.byHandle[handle]
	if !ok {
		return false
	}
	delete(m.byHandle, handle)
	delete(m.byID, id)
	return true
}

// Handle looks up the handle bound to id.
func (m *ObjectMap[H]) Handle(id uint64) (H, bool) {
	h, ok := m.byID[id]
	return h, ok
}

// ID looks up the id bound to handle.
func (m *ObjectMap[H]) ID(handle H) (uint64, bool) {
	id, ok := m.byHandle[handle]
	return id, ok
}

// Len reports the number of bound pairs.
func (m *ObjectMap[H]) Len() int { return len(m.byID) }

// ObjectTree pairs a Tree with an ObjectMap so callers can insert and query
// by caller-meaningful handle (a pointer, a struct key, a string id)
// instead of juggling the raw uint64 ids themselves.
type ObjectTree[T Coord, H comparable] struct {
	Tree    *Tree[T]
	Objects *ObjectMap[H]
}

// NewObjectTree constructs an ObjectTree wrapping a fresh Tree.
func NewObjectTree[T Coord, H comparable](bounds Rect[T], capacity int, maxDepth int) (*ObjectTree[T, H], error) {
	tree, err := NewTree[T](bounds, capacity, maxDepth)
	if err != nil {
		return nil, err
	}
	return &ObjectTree[T, H]{Tree: tree, Objects: NewObjectMap[H]()}, nil
}

// InsertObject inserts p under a fresh id and binds that id to handle. If
// handle is already bound, the point is not inserted.
func (ot *ObjectTree[T, H]) InsertObject(p Point[T], handle H) (uint64, error) {
	if _, ok := ot.Objects.ID(handle); ok {
		return 0, ErrDuplicateHandle
	}
	id, err := ot.Tree.Insert(p)
	if err != nil {
		return 0, err
	}
	if err := ot.Objects.Bind(id, handle); err != nil {
		ot.Tree.Delete(id, p)
		return 0, err
	}
	return id, nil
}

// DeleteByHandle removes the point bound to handle, unbinding it from the
// object map as well. p must match the stored point exactly, same as
// Tree.Delete.
func (ot *ObjectTree[T, H]) DeleteByHandle(handle H, p Point[T]) bool {
	id, ok := ot.Objects.ID(handle)
	if !ok {
		return false
	}
	if !ot.Tree.Delete(id, p) {
		return false
	}
	ot.Objects.Unbind(id)
	return true
}

// QueryHandles returns the handles bound to every entry in rng, skipping
// any entry whose id has no bound handle.
func (ot *ObjectTree[T, H]) QueryHandles(rng Rect[T]) []H {
	entries := ot.Tree.Query(rng)
	out := make([]H, 0, len(entries))
	for _, e := range entries {
		if h, ok := ot.Objects.Handle(e.ID); ok {
			out = append(out, h)
		}
	}
	return out
}

// RectObjectTree is ObjectTree's rect-tree counterpart.
type RectObjectTree[T Coord, H comparable] struct {
	Tree    *RectTree[T]
	Objects *ObjectMap[H]
}

// NewRectObjectTree constructs a RectObjectTree wrapping a fresh RectTree.
func NewRectObjectTree[T Coord, H comparable](bounds Rect[T], capacity int, maxDepth int) (*RectObjectTree[T, H], error) {
	tree, err := NewRectTree[T](bounds, capacity, maxDepth)
	if err != nil {
		return nil, err
	}
	return &RectObjectTree[T, H]{Tree: tree, Objects: NewObjectMap[H]()}, nil
}

// InsertObject inserts r under a fresh id and binds that id to handle.
func (ot *RectObjectTree[T, H]) InsertObject(r Rect[T], handle H) (uint64, error) {
	if _, ok := ot.Objects.ID(handle); ok {
		return 0, ErrDuplicateHandle
	}
	id, err := ot.Tree.Insert(r)
	if err != nil {
		return 0, err
	}
	if err := ot.Objects.Bind(id, handle); err != nil {
		ot.Tree.Delete(id, r)
		return 0, err
	}
	return id, nil
}

// DeleteByHandle removes the rect bound to handle, unbinding it too.
func (ot *RectObjectTree[T, H]) DeleteByHandle(handle H, r Rect[T]) bool {
	id, ok := ot.Objects.ID(handle)
	if !ok {
		return false
	}
	if !ot.Tree.Delete(id, r) {
		return false
	}
	ot.Objects.Unbind(id)
	return true
}

// QueryHandles returns the handles bound to every entry in rng.
func (ot *RectObjectTree[T, H]) QueryHandles(rng Rect[T]) []H {
	entries := ot.Tree.Query(rng)
	out := make([]H, 0, len(entries))
	for _, e := range entries {
		if h, ok := ot.Objects.Handle(e.ID); ok {
			out = append(out, h)
		}
	}
	return out
}
