package quadtree

// Point is a pair of coordinates in the tree's coord type.
type Point[T Coord] struct {
	X, Y T
}

// Entry is an indexed point, the unit a Tree's leaf bucket stores and
// range/k-NN queries return (§3 Entry).
type Entry[T Coord] struct {
	ID    uint64
	Point Point[T]
}

// RectEntry is the rect-tree counterpart of Entry.
type RectEntry[T Coord] struct {
	ID   uint64
	Rect Rect[T]
}

// Rect is an axis-aligned rectangle. The zero value is the degenerate rect
// at the origin, which contains no point; construct one with NewRect, which
// enforces MinX<=MaxX && MinY<=MaxY.
type Rect[T Coord] struct {
	MinX, MinY, MaxX, MaxY T
}

// NewRect validates and builds a Rect. It's the only way to get a Rect with
// the invariant already checked, used by both the tree constructors and by
// callers building query rectangles.
func NewRect[T Coord](minX, minY, maxX, maxY T) (Rect[T], error) {
	if minX > maxX || minY > maxY {
		return Rect[T]{}, ErrInvalidBounds
	}
	return Rect[T]{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}, nil
}

// Width and Height report the rect's extent on each axis.
func (r Rect[T]) Width() T  { return r.MaxX - r.MinX }
func (r Rect[T]) Height() T { return r.MaxY - r.MinY }

// ContainsPoint reports whether p lies in r under the half-open rule:
// closed on the min edge, open on the max edge. A point exactly on MaxX or
// MaxY is NOT contained — this is what makes a universe's own bounds
// rejecting its max corner (§8 B1/S6) and what makes subdivide's four
// children tile the parent without gaps or double-counting.
func (r Rect[T]) ContainsPoint(p Point[T]) bool {
	return p.X >= r.MinX && p.X < r.MaxX && p.Y >= r.MinY && p.Y < r.MaxY
}

// ContainsRect reports whether r fully contains other, using the same
// half-open rule on each axis: other's min corner must be >= r's min corner,
// and other's max corner must be <= r's max corner (closed, unlike point
// containment's open max — a rect's own max edge coinciding with the
// outer's max edge is still "inside", since a point queried against other
// right at its max edge would already be rejected by ContainsPoint).
func (r Rect[T]) ContainsRect(other Rect[T]) bool {
	return other.MinX >= r.MinX && other.MaxX <= r.MaxX &&
		other.MinY >= r.MinY && other.MaxY <= r.MaxY
}

// Intersects reports whether r and other share any point, under the same
// half-open rule as ContainsPoint: two rects that only touch along a
// boundary line share no actual point (the line itself belongs to at most
// one of them on each axis), so touching edges do not count as overlap.
func (r Rect[T]) Intersects(other Rect[T]) bool {
	return r.MinX < other.MaxX && other.MinX < r.MaxX &&
		r.MinY < other.MaxY && other.MinY < r.MaxY
}

// Quadrant identifies one of a node's four children.
type Quadrant uint8

const (
	NW Quadrant = iota
	NE
	SW
	SE
)

func (q Quadrant) String() string {
	switch q {
	case NW:
		return "NW"
	case NE:
		return "NE"
	case SW:
		return "SW"
	case SE:
		return "SE"
	default:
		return "?"
	}
}

// QuadrantOf returns which quadrant of r contains p, using the midpoint
// split below. Ties on the midpoint go east/north: x < midX picks the west
// half, x >= midX picks the east half (and symmetrically for y), matching
// Subdivide's child boundaries exactly so insert and query agree on which
// child owns a boundary point.
func QuadrantOf[T Coord](r Rect[T], p Point[T]) Quadrant {
	midX := mid(r.MinX, r.MaxX)
	midY := mid(r.MinY, r.MaxY)
	east := p.X >= midX
	north := p.Y >= midY
	switch {
	case !east && north:
		return NW
	case east && north:
		return NE
	case !east && !north:
		return SW
	default:
		return SE
	}
}

// Subdivide splits r into four child rects that exactly tile it under the
// half-open containment rule: no gaps, no overlap, and a point's
// QuadrantOf result always matches the unique child whose Rect.ContainsPoint
// is true for it.
func Subdivide[T Coord](r Rect[T]) (nw, ne, sw, se Rect[T]) {
	midX := mid(r.MinX, r.MaxX)
	midY := mid(r.MinY, r.MaxY)
	nw = Rect[T]{MinX: r.MinX, MinY: midY, MaxX: midX, MaxY: r.MaxY}
	ne = Rect[T]{MinX: midX, MinY: midY, MaxX: r.MaxX, MaxY: r.MaxY}
	sw = Rect[T]{MinX: r.MinX, MinY: r.MinY, MaxX: midX, MaxY: midY}
	se = Rect[T]{MinX: midX, MinY: r.MinY, MaxX: r.MaxX, MaxY: midY}
	return
}

// childFor returns the index (matching Quadrant's iota order: NW,NE,SW,SE)
// of the child rect (as produced by Subdivide) that contains p.
func childFor[T Coord](r Rect[T], p Point[T]) int {
	return int(QuadrantOf(r, p))
}

// distanceSquaredToRect returns the squared Euclidean distance, computed in
// f64, from p to the nearest point of r — zero if p is inside r. This is
// the lower-bound distance the k-NN engine (knn.go) uses to prune subtrees.
func distanceSquaredToRect[T Coord](r Rect[T], p Point[T]) float64 {
	dx := clampedAxisDistance(toF64(p.X), toF64(r.MinX), toF64(r.MaxX))
	dy := clampedAxisDistance(toF64(p.Y), toF64(r.MinY), toF64(r.MaxY))
	return dx*dx + dy*dy
}

func clampedAxisDistance(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo - v
	case v > hi:
		return v - hi
	default:
		return 0
	}
}

// distanceSquared returns the squared Euclidean distance between two points,
// computed in f64 per §3/§4.F's instruction to promote f32 math to avoid
// cancellation.
func distanceSquared[T Coord](a, b Point[T]) float64 {
	dx := toF64(a.X) - toF64(b.X)
	dy := toF64(a.Y) - toF64(b.Y)
	return dx*dx + dy*dy
}
