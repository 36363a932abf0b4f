package quadtree

// Coord is the set of numeric types a Tree or RectTree can be instantiated
// over: two signed integer widths and two floating point widths. A Tree's
// coord type is fixed at construction and never changes, so every hot path
// in this package (descent, split, merge, query) is monomorphized by the Go
// compiler for the chosen type instead of branching on a runtime tag.
//
// Coord values are compared with the ordinary <, <=, >, >= operators and
// combined with + and - directly; every type in the set supports both
// without wrapping behavior differing in a way this package depends on, and
// bounds are assumed to stay far enough from the type's domain edges that
// integer coordinates never overflow (see SPEC_FULL.md §4.H).
type Coord interface {
	~int32 | ~int64 | ~float32 | ~float64
}

// CoordKind tags a Coord's underlying type for the serialized format (§6)
// and for host code that needs to pick a concrete Go type at runtime, e.g.
// after reading a blob's header byte. It has no role in any hot loop.
type CoordKind uint8

const (
	KindI32 CoordKind = 0
	KindI64 CoordKind = 1
	KindF32 CoordKind = 2
	KindF64 CoordKind = 3
)

func (k CoordKind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	default:
		return "unknown"
	}
}

// kindOf returns the CoordKind tag for the type parameter T. It's called by
// Kind, when a blob's header is written or checked, and by readCoord for
// each coordinate decoded from a blob, never inside the descent/query hot
// path.
func kindOf[T Coord]() CoordKind {
	var zero T
	switch any(zero).(type) {
	case int32:
		return KindI32
	case int64:
		return KindI64
	case float32:
		return KindF32
	default:
		return KindF64
	}
}

// toF64 promotes a coordinate to float64 for distance math. For f32 this is
// an up-conversion (done in f64 from here on, per §3's "reduce
// cancellation" requirement); for the integer types it's exact up to
// float64's 53-bit mantissa, which comfortably covers any coordinate a
// bounded-universe tree would realistically hold.
func toF64[T Coord](v T) float64 {
	return float64(v)
}

// mid returns the midpoint of [lo, hi] in T, used by subdivide (geometry.go).
// Because Rect's invariant guarantees hi >= lo, hi-lo is never negative, so
// integer division here is already floor division (Go truncates toward
// zero, which equals flooring for non-negative operands) — no separate
// floor-division branch is needed for the integer coord types.
func mid[T Coord](lo, hi T) T {
	return lo + (hi-lo)/2
}
