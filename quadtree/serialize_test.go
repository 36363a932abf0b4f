package quadtree

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestTreeBytesRoundTrip(t *testing.T) {
	bounds, _ := NewRect(0.0, 0.0, 100.0, 100.0)
	tree, _ := NewTree[float64](bounds, 4, 8)
	tree.Insert(Point[float64]{1, 1})
	tree.Insert(Point[float64]{50, 50})
	tree.Insert(Point[float64]{90, 90})

	blob := tree.Bytes()
	decoded, err := DecodeTree[float64](blob, false)
	if err != nil {
		t.Fatalf("DecodeTree: %v", err)
	}
	if decoded.Capacity() != tree.Capacity() || decoded.MaxDepth() != tree.MaxDepth() {
		t.Errorf("decoded capacity/maxDepth = %d/%d, want %d/%d",
			decoded.Capacity(), decoded.MaxDepth(), tree.Capacity(), tree.MaxDepth())
	}
	if decoded.Size() != tree.Size() {
		t.Errorf("decoded Size() = %d, want %d", decoded.Size(), tree.Size())
	}

	full, _ := NewRect(0.0, 0.0, 100.0, 100.0)
	got := decoded.Query(full)
	if len(got) != 3 {
		t.Fatalf("decoded Query(full) returned %d entries, want 3", len(got))
	}
}

func TestTreeBytesRoundTripIntCoord(t *testing.T) {
	bounds, _ := NewRect(int32(0), int32(0), int32(1000), int32(1000))
	tree, _ := NewTree[int32](bounds, 4, UnlimitedDepth)
	tree.InsertWithID(Point[int32]{10, 20}, 7)
	tree.InsertWithID(Point[int32]{500, 500}, 8)

	blob := tree.Bytes()
	decoded, err := DecodeTree[int32](blob, false)
	if err != nil {
		t.Fatalf("DecodeTree: %v", err)
	}
	if decoded.Size() != 2 {
		t.Errorf("decoded Size() = %d, want 2", decoded.Size())
	}
	full, _ := NewRect(int32(0), int32(0), int32(1000), int32(1000))
	ids := map[uint64]bool{}
	for _, e := range decoded.Query(full) {
		ids[e.ID] = true
	}
	if !ids[7] || !ids[8] {
		t.Errorf("decoded tree missing expected ids, got %v", ids)
	}
}

func TestDecodeTreeRejectsBadMagic(t *testing.T) {
	bounds, _ := NewRect(0.0, 0.0, 10.0, 10.0)
	tree, _ := NewTree[float64](bounds, 4, UnlimitedDepth)
	blob := tree.Bytes()
	blob[0] ^= 0xFF

	_, err := DecodeTree[float64](blob, false)
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Kind != FormatBadMagic {
		t.Errorf("DecodeTree with corrupted magic: err = %v, want FormatBadMagic", err)
	}
}

func TestDecodeTreeRejectsCRCMismatch(t *testing.T) {
	bounds, _ := NewRect(0.0, 0.0, 10.0, 10.0)
	tree, _ := NewTree[float64](bounds, 4, UnlimitedDepth)
	tree.Insert(Point[float64]{1, 1})
	blob := tree.Bytes()
	blob[len(blob)-1] ^= 0xFF

	_, err := DecodeTree[float64](blob, false)
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Kind != FormatCRCMismatch {
		t.Errorf("DecodeTree with corrupted CRC: err = %v, want FormatCRCMismatch", err)
	}
}

// A truncated blob must be rejected rather than silently misparsed (io.Read
// on bytes.Reader can return short reads without erroring).
func TestDecodeTreeRejectsTruncatedBlob(t *testing.T) {
	bounds, _ := NewRect(0.0, 0.0, 10.0, 10.0)
	tree, _ := NewTree[float64](bounds, 4, UnlimitedDepth)
	tree.Insert(Point[float64]{1, 1})
	tree.Insert(Point[float64]{5, 5})
	blob := tree.Bytes()

	truncated := blob[:len(blob)/2]
	if _, err := DecodeTree[float64](truncated, false); err == nil {
		t.Error("DecodeTree on a truncated blob returned nil error")
	}
}

func TestDecodeTreeRejectsWrongCoordType(t *testing.T) {
	bounds, _ := NewRect(0.0, 0.0, 10.0, 10.0)
	tree, _ := NewTree[float64](bounds, 4, UnlimitedDepth)
	blob := tree.Bytes()

	_, err := DecodeTree[int32](blob, false)
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Kind != FormatCoordTypeMismatch {
		t.Errorf("DecodeTree[int32] of an f64 blob: err = %v, want FormatCoordTypeMismatch", err)
	}
}

func TestDecodeTreeRejectsRectTreeBlob(t *testing.T) {
	bounds, _ := NewRect(0.0, 0.0, 10.0, 10.0)
	rtree, _ := NewRectTree[float64](bounds, 4, UnlimitedDepth)
	blob := rtree.Bytes()

	_, err := DecodeTree[float64](blob, false)
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Kind != FormatCoordTypeMismatch {
		t.Errorf("DecodeTree of a rect-tree blob: err = %v, want FormatCoordTypeMismatch", err)
	}
}

func TestRectTreeBytesRoundTrip(t *testing.T) {
	bounds, _ := NewRect(0.0, 0.0, 100.0, 100.0)
	tree, _ := NewRectTree[float64](bounds, 2, UnlimitedDepth)
	tree.Insert(mustTestRect(1, 1, 5, 5))
	tree.Insert(mustTestRect(40, 40, 60, 60)) // will straddle once split
	tree.Insert(mustTestRect(90, 90, 95, 95))

	blob := tree.Bytes()
	decoded, err := DecodeRectTree[float64](blob, false)
	if err != nil {
		t.Fatalf("DecodeRectTree: %v", err)
	}
	if decoded.Size() != 3 {
		t.Errorf("decoded Size() = %d, want 3", decoded.Size())
	}
	full := mustTestRect(0, 0, 100, 100)
	if got := len(decoded.Query(full)); got != 3 {
		t.Errorf("decoded Query(full) returned %d entries, want 3", got)
	}
}

// encodeUint32Handle/decodeUint32Handle are a minimal fixed-width handle
// codec used only to exercise the object-map chunk in tests.
func encodeUint32Handle(h uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, h)
	return b
}

func decodeUint32Handle(b []byte) (uint32, int, error) {
	if len(b) < 4 {
		return 0, 0, errors.New("short handle payload")
	}
	return binary.LittleEndian.Uint32(b), 4, nil
}

func TestTreeWithObjectsRoundTrip(t *testing.T) {
	bounds, _ := NewRect(0.0, 0.0, 100.0, 100.0)
	tree, _ := NewTree[float64](bounds, 4, UnlimitedDepth)
	objects := NewObjectMap[uint32]()

	id1, _ := tree.Insert(Point[float64]{1, 1})
	objects.Bind(id1, 111)
	id2, _ := tree.Insert(Point[float64]{2, 2})
	objects.Bind(id2, 222)

	blob := EncodeTreeWithObjects(tree, objects, encodeUint32Handle)

	decodedTree, decodedObjects, err := DecodeTreeWithObjects[float64, uint32](blob, decodeUint32Handle)
	if err != nil {
		t.Fatalf("DecodeTreeWithObjects: %v", err)
	}
	if decodedTree.Size() != 2 {
		t.Errorf("decoded tree Size() = %d, want 2", decodedTree.Size())
	}
	if decodedObjects.Len() != 2 {
		t.Errorf("decoded objects Len() = %d, want 2", decodedObjects.Len())
	}
	if h, ok := decodedObjects.Handle(id1); !ok || h != 111 {
		t.Errorf("decoded Handle(%d) = (%d, %v), want (111, true)", id1, h, ok)
	}
	if h, ok := decodedObjects.Handle(id2); !ok || h != 222 {
		t.Errorf("decoded Handle(%d) = (%d, %v), want (222, true)", id2, h, ok)
	}
}

func TestDecodeTreePlainRejectsObjectsBlobUnlessAllowed(t *testing.T) {
	bounds, _ := NewRect(0.0, 0.0, 100.0, 100.0)
	tree, _ := NewTree[float64](bounds, 4, UnlimitedDepth)
	objects := NewObjectMap[uint32]()
	id, _ := tree.Insert(Point[float64]{1, 1})
	objects.Bind(id, 1)

	blob := EncodeTreeWithObjects(tree, objects, encodeUint32Handle)

	if _, err := DecodeTree[float64](blob, false); err != ErrObjectsDisallowed {
		t.Errorf("DecodeTree(allowObjects=false) on a blob with objects: err = %v, want ErrObjectsDisallowed", err)
	}

	decoded, err := DecodeTree[float64](blob, true)
	if err != nil {
		t.Fatalf("DecodeTree(allowObjects=true): %v", err)
	}
	if decoded.Size() != 1 {
		t.Errorf("decoded Size() = %d, want 1", decoded.Size())
	}
}

func TestRectTreeWithObjectsRoundTrip(t *testing.T) {
	bounds, _ := NewRect(0.0, 0.0, 100.0, 100.0)
	tree, _ := NewRectTree[float64](bounds, 4, UnlimitedDepth)
	objects := NewObjectMap[uint32]()

	id, _ := tree.Insert(mustTestRect(1, 1, 5, 5))
	objects.Bind(id, 99)

	blob := EncodeRectTreeWithObjects(tree, objects, encodeUint32Handle)
	decodedTree, decodedObjects, err := DecodeRectTreeWithObjects[float64, uint32](blob, decodeUint32Handle)
	if err != nil {
		t.Fatalf("DecodeRectTreeWithObjects: %v", err)
	}
	if decodedTree.Size() != 1 {
		t.Errorf("decoded tree Size() = %d, want 1", decodedTree.Size())
	}
	if h, ok := decodedObjects.Handle(id); !ok || h != 99 {
		t.Errorf("decoded Handle(%d) = (%d, %v), want (99, true)", id, h, ok)
	}
}

func TestDecodeTreeWithObjectsRejectsBlobWithoutObjectMap(t *testing.T) {
	bounds, _ := NewRect(0.0, 0.0, 10.0, 10.0)
	tree, _ := NewTree[float64](bounds, 4, UnlimitedDepth)
	blob := tree.Bytes()

	_, _, err := DecodeTreeWithObjects[float64, uint32](blob, decodeUint32Handle)
	var fe *FormatError
	if !errors.As(err, &fe) || fe.Kind != FormatObjectsDisallowed {
		t.Errorf("DecodeTreeWithObjects on a plain blob: err = %v, want FormatObjectsDisallowed", err)
	}
}
