package quadtree

import "testing"

func TestKindOf(t *testing.T) {
	if k := kindOf[int32](); k != KindI32 {
		t.Errorf("kindOf[int32]() = %v, want %v", k, KindI32)
	}
	if k := kindOf[int64](); k != KindI64 {
		t.Errorf("kindOf[int64]() = %v, want %v", k, KindI64)
	}
	if k := kindOf[float32](); k != KindF32 {
		t.Errorf("kindOf[float32]() = %v, want %v", k, KindF32)
	}
	if k := kindOf[float64](); k != KindF64 {
		t.Errorf("kindOf[float64]() = %v, want %v", k, KindF64)
	}
}

func TestCoordKindString(t *testing.T) {
	cases := map[CoordKind]string{
		KindI32:         "i32",
		KindI64:         "i64",
		KindF32:         "f32",
		KindF64:         "f64",
		CoordKind(0xFF): "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("CoordKind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestMid(t *testing.T) {
	if got := mid(int32(0), int32(10)); got != 5 {
		t.Errorf("mid(0,10) = %d, want 5", got)
	}
	// truncation toward zero equals flooring for non-negative operands
	if got := mid(int32(0), int32(9)); got != 4 {
		t.Errorf("mid(0,9) = %d, want 4", got)
	}
	if got := mid(float64(0), float64(1)); got != 0.5 {
		t.Errorf("mid(0,1) = %v, want 0.5", got)
	}
}

func TestToF64(t *testing.T) {
	if got := toF64(float32(1.5)); got != 1.5 {
		t.Errorf("toF64(float32(1.5)) = %v, want 1.5", got)
	}
	if got := toF64(int32(42)); got != 42 {
		t.Errorf("toF64(int32(42)) = %v, want 42", got)
	}
}
