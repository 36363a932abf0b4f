package quadtree

import (
	"math/rand"
	"testing"
)

func worldTree(t *testing.T, capacity, maxDepth int) *Tree[float64] {
	t.Helper()
	bounds, err := NewRect(0.0, 0.0, 100.0, 100.0)
	if err != nil {
		t.Fatalf("NewRect: %v", err)
	}
	tree, err := NewTree[float64](bounds, capacity, maxDepth)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	return tree
}

func TestNewTreeRejectsBadCapacity(t *testing.T) {
	bounds, _ := NewRect(0.0, 0.0, 10.0, 10.0)
	if _, err := NewTree[float64](bounds, 0, UnlimitedDepth); err != ErrInvalidCapacity {
		t.Errorf("NewTree with capacity 0: err = %v, want ErrInvalidCapacity", err)
	}
	if _, err := NewTree[float64](bounds, -1, UnlimitedDepth); err != ErrInvalidCapacity {
		t.Errorf("NewTree with negative capacity: err = %v, want ErrInvalidCapacity", err)
	}
	if _, err := NewTree[float64](bounds, 4, -2); err != ErrInvalidCapacity {
		t.Errorf("NewTree with maxDepth -2: err = %v, want ErrInvalidCapacity", err)
	}
}

func TestTreeAccessors(t *testing.T) {
	tree := worldTree(t, 4, 8)
	if tree.Capacity() != 4 {
		t.Errorf("Capacity() = %d, want 4", tree.Capacity())
	}
	if tree.MaxDepth() != 8 {
		t.Errorf("MaxDepth() = %d, want 8", tree.MaxDepth())
	}
	if tree.Size() != 0 {
		t.Errorf("Size() = %d, want 0", tree.Size())
	}
	if tree.Kind() != KindF64 {
		t.Errorf("Kind() = %v, want KindF64", tree.Kind())
	}
}

func TestInsertOutOfBounds(t *testing.T) {
	tree := worldTree(t, 4, UnlimitedDepth)
	// max corner is excluded by the half-open rule.
	if _, err := tree.Insert(Point[float64]{100, 100}); err != ErrOutOfBounds {
		t.Errorf("Insert at max corner: err = %v, want ErrOutOfBounds", err)
	}
	if _, err := tree.Insert(Point[float64]{-1, 50}); err != ErrOutOfBounds {
		t.Errorf("Insert west of bounds: err = %v, want ErrOutOfBounds", err)
	}
}

func TestInsertAssignsIncreasingIDs(t *testing.T) {
	tree := worldTree(t, 4, UnlimitedDepth)
	var ids []uint64
	for i := 0; i < 5; i++ {
		id, err := tree.Insert(Point[float64]{float64(i), float64(i)})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ids = append(ids, id)
	}
	for i, id := range ids {
		if id != uint64(i) {
			t.Errorf("ids[%d] = %d, want %d", i, id, i)
		}
	}
	if tree.Size() != 5 {
		t.Errorf("Size() = %d, want 5", tree.Size())
	}
}

func TestInsertWithIDAdvancesCounter(t *testing.T) {
	tree := worldTree(t, 4, UnlimitedDepth)
	if err := tree.InsertWithID(Point[float64]{1, 1}, 100); err != nil {
		t.Fatalf("InsertWithID: %v", err)
	}
	id, err := tree.Insert(Point[float64]{2, 2})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id != 101 {
		t.Errorf("auto-assigned id after InsertWithID(_, 100) = %d, want 101", id)
	}
}

// Inserting more than capacity points into the same leaf forces a split;
// every point inserted must still be queryable afterward.
func TestInsertTriggersSplit(t *testing.T) {
	tree := worldTree(t, 2, UnlimitedDepth)
	for i := 0; i < 20; i++ {
		if _, err := tree.Insert(Point[float64]{float64(i % 10), float64(i % 10)}); err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
	}
	if tree.Size() != 20 {
		t.Errorf("Size() = %d, want 20", tree.Size())
	}
	full, _ := NewRect(0.0, 0.0, 100.0, 100.0)
	if got := len(tree.Query(full)); got != 20 {
		t.Errorf("Query(full bounds) returned %d entries, want 20", got)
	}
}

func TestDeleteRemovesExactMatch(t *testing.T) {
	tree := worldTree(t, 4, UnlimitedDepth)
	p := Point[float64]{10, 10}
	id, _ := tree.Insert(p)

	if tree.Delete(id, Point[float64]{10, 11}) {
		t.Error("Delete succeeded against a non-matching point")
	}
	if !tree.Delete(id, p) {
		t.Error("Delete failed against the exact stored point")
	}
	if tree.Size() != 0 {
		t.Errorf("Size() after delete = %d, want 0", tree.Size())
	}
	if tree.Delete(id, p) {
		t.Error("second Delete of the same id/point succeeded")
	}
}

// After enough deletes bring a subtree back under capacity, its children
// must merge back into a single leaf (§8 P7).
func TestDeleteMergesChildrenBackToLeaf(t *testing.T) {
	tree := worldTree(t, 2, UnlimitedDepth)
	var ids []uint64
	for i := 0; i < 6; i++ {
		id, err := tree.Insert(Point[float64]{float64(i), float64(i)})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ids = append(ids, id)
	}
	if tree.root.isLeaf() {
		t.Fatal("root should have split after 6 inserts at capacity 2")
	}
	for i := 0; i < 5; i++ {
		tree.Delete(ids[i], Point[float64]{float64(i), float64(i)})
	}
	if !tree.root.isLeaf() {
		t.Error("root should have merged back into a leaf once only 1 entry remained")
	}
	full, _ := NewRect(0.0, 0.0, 100.0, 100.0)
	if got := len(tree.Query(full)); got != 1 {
		t.Errorf("Query(full bounds) after merging returned %d entries, want 1", got)
	}
}

func TestQueryPrunesAndMatchesHalfOpen(t *testing.T) {
	tree := worldTree(t, 4, UnlimitedDepth)
	tree.Insert(Point[float64]{5, 5})
	tree.Insert(Point[float64]{50, 50})
	tree.Insert(Point[float64]{95, 95})
	tree.Insert(Point[float64]{10, 10}) // on the query's max corner: excluded

	rng, _ := NewRect(0.0, 0.0, 10.0, 10.0)
	got := tree.Query(rng)
	if len(got) != 1 || got[0].Point != (Point[float64]{5, 5}) {
		t.Errorf("Query({0,0,10,10}) = %v, want just {5,5}", got)
	}
}

func TestInsertMany(t *testing.T) {
	tree := worldTree(t, 4, UnlimitedDepth)
	points := []Point[float64]{{1, 1}, {2, 2}, {200, 200}, {3, 3}}
	n, err := tree.InsertMany(points)
	if n != 2 {
		t.Errorf("InsertMany stopped after %d points, want 2", n)
	}
	var imErr *InsertManyError
	if err == nil {
		t.Fatal("InsertMany with an out-of-bounds point returned nil error")
	} else if !asInsertManyError(err, &imErr) {
		t.Fatalf("InsertMany error type = %T, want *InsertManyError", err)
	} else if imErr.Index != 2 {
		t.Errorf("InsertManyError.Index = %d, want 2", imErr.Index)
	}
	if tree.Size() != 2 {
		t.Errorf("Size() after partial InsertMany = %d, want 2", tree.Size())
	}
}

func asInsertManyError(err error, target **InsertManyError) bool {
	e, ok := err.(*InsertManyError)
	if ok {
		*target = e
	}
	return ok
}

func TestInsertManyAtomicRejectsAnyFailureWithoutPartialInsert(t *testing.T) {
	tree := worldTree(t, 4, UnlimitedDepth)
	points := []Point[float64]{{1, 1}, {2, 2}, {200, 200}}
	if err := tree.InsertManyAtomic(points); err == nil {
		t.Error("InsertManyAtomic with an out-of-bounds point returned nil error")
	}
	if tree.Size() != 0 {
		t.Errorf("Size() after failed InsertManyAtomic = %d, want 0 (all-or-nothing)", tree.Size())
	}

	ok := []Point[float64]{{1, 1}, {2, 2}, {3, 3}}
	if err := tree.InsertManyAtomic(ok); err != nil {
		t.Errorf("InsertManyAtomic with all in-bounds points: err = %v", err)
	}
	if tree.Size() != 3 {
		t.Errorf("Size() after successful InsertManyAtomic = %d, want 3", tree.Size())
	}
}

func TestInsertManyBulkMismatchedSlices(t *testing.T) {
	tree := worldTree(t, 4, UnlimitedDepth)
	if _, err := tree.InsertManyBulk([]float64{1, 2}, []float64{1}, nil); err == nil {
		t.Error("InsertManyBulk with mismatched xs/ys lengths returned nil error")
	}
	if _, err := tree.InsertManyBulk([]float64{1, 2}, []float64{1, 2}, []uint64{5}); err == nil {
		t.Error("InsertManyBulk with mismatched ids length returned nil error")
	}
}

func TestInsertManyBulkWithExplicitIDs(t *testing.T) {
	tree := worldTree(t, 4, UnlimitedDepth)
	n, err := tree.InsertManyBulk([]float64{1, 2, 3}, []float64{1, 2, 3}, []uint64{10, 20, 30})
	if err != nil {
		t.Fatalf("InsertManyBulk: %v", err)
	}
	if n != 3 {
		t.Errorf("InsertManyBulk inserted %d, want 3", n)
	}
	full, _ := NewRect(0.0, 0.0, 100.0, 100.0)
	got := tree.Query(full)
	seen := map[uint64]bool{}
	for _, e := range got {
		seen[e.ID] = true
	}
	for _, want := range []uint64{10, 20, 30} {
		if !seen[want] {
			t.Errorf("missing entry with id %d after InsertManyBulk", want)
		}
	}
}

// A randomized sweep: every point inserted must be found by a full query,
// deletion must remove exactly the requested entries, and Size() must track
// the net effect at all times.
func TestTreeRandomSweep(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := worldTree(t, 4, UnlimitedDepth)

	type inserted struct {
		id uint64
		p  Point[float64]
	}
	var live []inserted

	for i := 0; i < 500; i++ {
		p := Point[float64]{X: rng.Float64() * 100, Y: rng.Float64() * 100}
		id, err := tree.Insert(p)
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		live = append(live, inserted{id, p})
	}
	if tree.Size() != len(live) {
		t.Fatalf("Size() = %d, want %d", tree.Size(), len(live))
	}

	full, _ := NewRect(0.0, 0.0, 100.0, 100.0)
	if got := len(tree.Query(full)); got != len(live) {
		t.Fatalf("Query(full) returned %d entries, want %d", got, len(live))
	}

	// delete every third one
	var remaining []inserted
	for i, e := range live {
		if i%3 == 0 {
			if !tree.Delete(e.id, e.p) {
				t.Fatalf("Delete(%d, %v) failed", e.id, e.p)
			}
		} else {
			remaining = append(remaining, e)
		}
	}
	if tree.Size() != len(remaining) {
		t.Fatalf("Size() after deletes = %d, want %d", tree.Size(), len(remaining))
	}
	if got := len(tree.Query(full)); got != len(remaining) {
		t.Fatalf("Query(full) after deletes returned %d entries, want %d", got, len(remaining))
	}
}
