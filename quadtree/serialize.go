package quadtree

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"
	"sort"
)

// magic, version and the crc table are fixed per §6's binary format.
var (
	formatMagic = [8]byte{'F', 'Q', 'T', 0, 'F', 'M', 'T', 0}
	crc32cTable = crc32.MakeTable(crc32.Castagnoli)
)

const formatVersion uint16 = 1

const (
	flagHasObjectMap uint16 = 1 << 0
	flagRectTree     uint16 = 1 << 1
)

const unlimitedDepthWire uint32 = 0xFFFFFFFF

func encodeMaxDepth(maxDepth int) uint32 {
	if maxDepth == UnlimitedDepth {
		return unlimitedDepthWire
	}
	return uint32(maxDepth)
}

func decodeMaxDepth(wire uint32) int {
	if wire == unlimitedDepthWire {
		return UnlimitedDepth
	}
	return int(wire)
}

// writeCoord appends v's wire representation to buf. The four Coord types
// are the only ones that ever instantiate T, so a type switch here is exact,
// not a fallback — this is the one place the format needs to know which of
// the four concrete types it's looking at.
func writeCoord[T Coord](buf *bytes.Buffer, v T) {
	switch x := any(v).(type) {
	case int32:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(x))
		buf.Write(b[:])
	case int64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(x))
		buf.Write(b[:])
	case float32:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(x))
		buf.Write(b[:])
	case float64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(x))
		buf.Write(b[:])
	}
}

func readCoord[T Coord](r *bytes.Reader) (T, error) {
	var zero T
	switch kindOf[T]() {
	case KindI32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return zero, newFormatError(FormatTruncated, "coord")
		}
		return any(int32(binary.LittleEndian.Uint32(b[:]))).(T), nil
	case KindI64:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return zero, newFormatError(FormatTruncated, "coord")
		}
		return any(int64(binary.LittleEndian.Uint64(b[:]))).(T), nil
	case KindF32:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return zero, newFormatError(FormatTruncated, "coord")
		}
		return any(math.Float32frombits(binary.LittleEndian.Uint32(b[:]))).(T), nil
	default:
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return zero, newFormatError(FormatTruncated, "coord")
		}
		return any(math.Float64frombits(binary.LittleEndian.Uint64(b[:]))).(T), nil
	}
}

func writeRect[T Coord](buf *bytes.Buffer, r Rect[T]) {
	writeCoord(buf, r.MinX)
	writeCoord(buf, r.MinY)
	writeCoord(buf, r.MaxX)
	writeCoord(buf, r.MaxY)
}

func readRect[T Coord](r *bytes.Reader) (Rect[T], error) {
	minX, err := readCoord[T](r)
	if err != nil {
		return Rect[T]{}, err
	}
	minY, err := readCoord[T](r)
	if err != nil {
		return Rect[T]{}, err
	}
	maxX, err := readCoord[T](r)
	if err != nil {
		return Rect[T]{}, err
	}
	maxY, err := readCoord[T](r)
	if err != nil {
		return Rect[T]{}, err
	}
	return NewRect(minX, minY, maxX, maxY)
}

func writeHeader[T Coord](buf *bytes.Buffer, flags uint16, capacity, maxDepth int, bounds Rect[T], nextID uint64, entryCount uint64) {
	buf.Write(formatMagic[:])
	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], formatVersion)
	buf.Write(u16[:])
	binary.LittleEndian.PutUint16(u16[:], flags)
	buf.Write(u16[:])
	buf.WriteByte(byte(kindOf[T]()))
	buf.Write([]byte{0, 0, 0})
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(capacity))
	buf.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], encodeMaxDepth(maxDepth))
	buf.Write(u32[:])
	writeRect(buf, bounds)
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], nextID)
	buf.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], entryCount)
	buf.Write(u64[:])
}

// decodedHeader holds every fixed-width field before the entry stream.
type decodedHeader[T Coord] struct {
	flags      uint16
	capacity   int
	maxDepth   int
	bounds     Rect[T]
	nextID     uint64
	entryCount uint64
}

func readHeader[T Coord](r *bytes.Reader, wantRect bool) (decodedHeader[T], error) {
	var out decodedHeader[T]
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != formatMagic {
		return out, newFormatError(FormatBadMagic, "")
	}
	var u16 [2]byte
	if _, err := io.ReadFull(r, u16[:]); err != nil {
		return out, newFormatError(FormatTruncated, "version")
	}
	if binary.LittleEndian.Uint16(u16[:]) != formatVersion {
		return out, newFormatError(FormatVersionMismatch, "")
	}
	if _, err := io.ReadFull(r, u16[:]); err != nil {
		return out, newFormatError(FormatTruncated, "flags")
	}
	out.flags = binary.LittleEndian.Uint16(u16[:])
	if wantRect != (out.flags&flagRectTree != 0) {
		return out, newFormatError(FormatCoordTypeMismatch, "tree shape does not match requested decoder")
	}
	coordByte, err := r.ReadByte()
	if err != nil {
		return out, newFormatError(FormatTruncated, "coord_type")
	}
	if CoordKind(coordByte) > KindF64 {
		return out, newFormatError(FormatBadCoordType, "")
	}
	if CoordKind(coordByte) != kindOf[T]() {
		return out, newFormatError(FormatCoordTypeMismatch, "")
	}
	var reserved [3]byte
	if _, err := io.ReadFull(r, reserved[:]); err != nil {
		return out, newFormatError(FormatTruncated, "reserved")
	}
	var u32 [4]byte
	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return out, newFormatError(FormatTruncated, "capacity")
	}
	out.capacity = int(binary.LittleEndian.Uint32(u32[:]))
	if out.capacity < 1 {
		return out, newFormatError(FormatBadCoordType, "capacity")
	}
	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return out, newFormatError(FormatTruncated, "max_depth")
	}
	out.maxDepth = decodeMaxDepth(binary.LittleEndian.Uint32(u32[:]))
	bounds, err := readRect[T](r)
	if err != nil {
		return out, newFormatError(FormatBadBounds, "")
	}
	out.bounds = bounds
	var u64 [8]byte
	if _, err := io.ReadFull(r, u64[:]); err != nil {
		return out, newFormatError(FormatTruncated, "next_id")
	}
	out.nextID = binary.LittleEndian.Uint64(u64[:])
	if _, err := io.ReadFull(r, u64[:]); err != nil {
		return out, newFormatError(FormatTruncated, "entry_count")
	}
	out.entryCount = binary.LittleEndian.Uint64(u64[:])
	return out, nil
}

// skipObjectChunk consumes an opaque object-map chunk (object_count,
// object_ids, object_bytes-prefixed handle payload) without interpreting
// it, used when a caller asked for a plain Tree/RectTree decode of a blob
// that happens to carry one.
func skipObjectChunk(r *bytes.Reader) error {
	var u64 [8]byte
	if _, err := io.ReadFull(r, u64[:]); err != nil {
		return newFormatError(FormatTruncated, "object_count")
	}
	objectCount := binary.LittleEndian.Uint64(u64[:])
	if _, err := r.Seek(int64(objectCount)*8, 1); err != nil {
		return newFormatError(FormatTruncated, "object_ids")
	}
	if _, err := io.ReadFull(r, u64[:]); err != nil {
		return newFormatError(FormatTruncated, "object_bytes")
	}
	objectBytes := binary.LittleEndian.Uint64(u64[:])
	if _, err := r.Seek(int64(objectBytes), 1); err != nil {
		return newFormatError(FormatTruncated, "object payload")
	}
	return nil
}

func appendCRC(buf *bytes.Buffer) []byte {
	sum := crc32.Checksum(buf.Bytes(), crc32cTable)
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], sum)
	buf.Write(u32[:])
	return buf.Bytes()
}

// verifyCRC checks the magic first, so a blob that is not in this format at
// all reports FormatBadMagic rather than a CRC mismatch, then checks the
// trailing crc32c and returns the body it covers.
func verifyCRC(blob []byte) ([]byte, error) {
	if len(blob) >= len(formatMagic) && !bytes.Equal(blob[:len(formatMagic)], formatMagic[:]) {
		return nil, newFormatError(FormatBadMagic, "")
	}
	if len(blob) < 4 {
		return nil, newFormatError(FormatTruncated, "crc32c")
	}
	body, tail := blob[:len(blob)-4], blob[len(blob)-4:]
	want := binary.LittleEndian.Uint32(tail)
	got := crc32.Checksum(body, crc32cTable)
	if want != got {
		return nil, newFormatError(FormatCRCMismatch, "")
	}
	return body, nil
}

// Bytes serializes t into the self-describing binary format (§4.G, §6): not
// the node topology, just the structural header and the entry stream, which
// from_bytes rebuilds via one bulk quadrant-sorting pass rather than
// per-item insert_many validation.
func (t *Tree[T]) Bytes() []byte {
	entries := t.root.appendAll(nil)
	buf := &bytes.Buffer{}
	writeHeader(buf, 0, t.capacity, t.maxDepth, t.bounds, t.nextID, uint64(len(entries)))
	for _, e := range entries {
		var u64 [8]byte
		binary.LittleEndian.PutUint64(u64[:], e.ID)
		buf.Write(u64[:])
		writeCoord(buf, e.Point.X)
		writeCoord(buf, e.Point.Y)
	}
	return appendCRC(buf)
}

// EncodeTreeWithObjects serializes t together with an ObjectMap, setting
// the has_object_map flag and appending the id-keyed handle chunk. The
// handle payload's encoding is host-defined (§6: "handle payload follows in
// a host-defined encoding"); encodeHandle supplies it and its output is
// concatenated in object_ids order, length-prefixed as a whole.
func EncodeTreeWithObjects[T Coord, H comparable](t *Tree[T], objects *ObjectMap[H], encodeHandle func(H) []byte) []byte {
	entries := t.root.appendAll(nil)
	buf := &bytes.Buffer{}
	writeHeader(buf, flagHasObjectMap, t.capacity, t.maxDepth, t.bounds, t.nextID, uint64(len(entries)))
	for _, e := range entries {
		var u64 [8]byte
		binary.LittleEndian.PutUint64(u64[:], e.ID)
		buf.Write(u64[:])
		writeCoord(buf, e.Point.X)
		writeCoord(buf, e.Point.Y)
	}
	writeObjectChunk(buf, objects, encodeHandle)
	return appendCRC(buf)
}

// writeObjectChunk appends the object_count/object_ids/object_bytes+payload
// chunk described in §6, ordering ids ascending for determinism.
func writeObjectChunk[H comparable](buf *bytes.Buffer, objects *ObjectMap[H], encodeHandle func(H) []byte) {
	ids := make([]uint64, 0, objects.Len())
	for id := range objects.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(len(ids)))
	buf.Write(u64[:])
	for _, id := range ids {
		binary.LittleEndian.PutUint64(u64[:], id)
		buf.Write(u64[:])
	}
	payload := &bytes.Buffer{}
	for _, id := range ids {
		h, _ := objects.Handle(id)
		payload.Write(encodeHandle(h))
	}
	binary.LittleEndian.PutUint64(u64[:], uint64(payload.Len()))
	buf.Write(u64[:])
	buf.Write(payload.Bytes())
}

// readObjectChunk is writeObjectChunk's counterpart: it reads the id list
// and the length-prefixed payload, then calls the caller-supplied
// decodeHandle once per id, each call starting where the previous handle
// ended. Payload bytes left over after the last handle are not checked.
func readObjectChunk[H comparable](r *bytes.Reader, decodeHandle func([]byte) (H, int, error)) (*ObjectMap[H], error) {
	var u64 [8]byte
	if _, err := io.ReadFull(r, u64[:]); err != nil {
		return nil, newFormatError(FormatTruncated, "object_count")
	}
	objectCount := binary.LittleEndian.Uint64(u64[:])
	ids := make([]uint64, objectCount)
	for i := range ids {
		if _, err := io.ReadFull(r, u64[:]); err != nil {
			return nil, newFormatError(FormatTruncated, "object_ids")
		}
		ids[i] = binary.LittleEndian.Uint64(u64[:])
	}
	if _, err := io.ReadFull(r, u64[:]); err != nil {
		return nil, newFormatError(FormatTruncated, "object_bytes")
	}
	objectBytes := binary.LittleEndian.Uint64(u64[:])
	payload := make([]byte, objectBytes)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, newFormatError(FormatTruncated, "object payload")
	}
	objects := NewObjectMap[H]()
	off := 0
	for _, id := range ids {
		if off > len(payload) {
			return nil, newFormatError(FormatTruncated, "object payload")
		}
		h, n, err := decodeHandle(payload[off:])
		if err != nil {
			return nil, newFormatError(FormatTruncated, "object payload: "+err.Error())
		}
		off += n
		if err := objects.Bind(id, h); err != nil {
			return nil, newFormatError(FormatTruncated, "object payload: "+err.Error())
		}
	}
	return objects, nil
}

// DecodeTreeWithObjects is DecodeTree's counterpart for blobs written with
// EncodeTreeWithObjects: it requires the object map chunk to be present and
// reconstructs it via decodeHandle, which must report how many bytes of the
// payload it consumed for each handle.
func DecodeTreeWithObjects[T Coord, H comparable](blob []byte, decodeHandle func([]byte) (H, int, error)) (*Tree[T], *ObjectMap[H], error) {
	body, err := verifyCRC(blob)
	if err != nil {
		return nil, nil, err
	}
	r := bytes.NewReader(body)
	h, err := readHeader[T](r, false)
	if err != nil {
		return nil, nil, err
	}
	if h.flags&flagHasObjectMap == 0 {
		return nil, nil, newFormatError(FormatObjectsDisallowed, "blob carries no object map")
	}
	t, err := NewTree[T](h.bounds, h.capacity, h.maxDepth)
	if err != nil {
		return nil, nil, err
	}
	entries := make([]Entry[T], 0, h.entryCount)
	for i := uint64(0); i < h.entryCount; i++ {
		var idBuf [8]byte
		if _, err := io.ReadFull(r, idBuf[:]); err != nil {
			return nil, nil, newFormatError(FormatTruncated, "entry id")
		}
		id := binary.LittleEndian.Uint64(idBuf[:])
		x, err := readCoord[T](r)
		if err != nil {
			return nil, nil, err
		}
		y, err := readCoord[T](r)
		if err != nil {
			return nil, nil, err
		}
		p := Point[T]{X: x, Y: y}
		if !h.bounds.ContainsPoint(p) {
			return nil, nil, newFormatError(FormatEntryOutOfBounds, "")
		}
		entries = append(entries, Entry[T]{ID: id, Point: p})
	}
	objects, err := readObjectChunk[H](r, decodeHandle)
	if err != nil {
		return nil, nil, err
	}
	bulkLoadPoints(t, entries)
	t.nextID = h.nextID
	return t, objects, nil
}

// DecodeTree parses a blob produced by Bytes. If the blob carries an object
// map chunk and allowObjects is false, decoding fails with
// ErrObjectsDisallowed; if allowObjects is true the chunk is skipped (the
// plain Tree type has nowhere to put reconstructed handles — use
// DecodeTreeWithObjects for that).
func DecodeTree[T Coord](blob []byte, allowObjects bool) (*Tree[T], error) {
	body, err := verifyCRC(blob)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(body)
	h, err := readHeader[T](r, false)
	if err != nil {
		return nil, err
	}
	t, err := NewTree[T](h.bounds, h.capacity, h.maxDepth)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry[T], 0, h.entryCount)
	for i := uint64(0); i < h.entryCount; i++ {
		var idBuf [8]byte
		if _, err := io.ReadFull(r, idBuf[:]); err != nil {
			return nil, newFormatError(FormatTruncated, "entry id")
		}
		id := binary.LittleEndian.Uint64(idBuf[:])
		x, err := readCoord[T](r)
		if err != nil {
			return nil, err
		}
		y, err := readCoord[T](r)
		if err != nil {
			return nil, err
		}
		p := Point[T]{X: x, Y: y}
		if !h.bounds.ContainsPoint(p) {
			return nil, newFormatError(FormatEntryOutOfBounds, "")
		}
		entries = append(entries, Entry[T]{ID: id, Point: p})
	}
	if h.flags&flagHasObjectMap != 0 {
		if !allowObjects {
			return nil, ErrObjectsDisallowed
		}
		if err := skipObjectChunk(r); err != nil {
			return nil, err
		}
	}
	bulkLoadPoints(t, entries)
	t.nextID = h.nextID
	return t, nil
}

// bulkLoadPoints rebuilds t's tree from a flat entry list by recursively
// sorting into quadrants and splitting on overflow, the single bulk pass
// §4.G describes as faster than repeated insert_many descents.
func bulkLoadPoints[T Coord](t *Tree[T], entries []Entry[T]) {
	t.root = bulkBuildPointNode(t.bounds, 0, entries, t.capacity, t.maxDepth)
	t.size = len(entries)
}

func bulkBuildPointNode[T Coord](bounds Rect[T], depth int, entries []Entry[T], capacity, maxDepth int) *pointNode[T] {
	n := newPointLeaf[T](bounds, depth)
	if len(entries) <= capacity || !n.canSplit(maxDepth) {
		n.entries = entries
		return n
	}
	nw, ne, sw, se := Subdivide(bounds)
	var buckets [4][]Entry[T]
	for _, e := range entries {
		idx := childFor(bounds, e.Point)
		buckets[idx] = append(buckets[idx], e)
	}
	children := [4]*pointNode[T]{
		bulkBuildPointNode(nw, depth+1, buckets[NW], capacity, maxDepth),
		bulkBuildPointNode(ne, depth+1, buckets[NE], capacity, maxDepth),
		bulkBuildPointNode(sw, depth+1, buckets[SW], capacity, maxDepth),
		bulkBuildPointNode(se, depth+1, buckets[SE], capacity, maxDepth),
	}
	n.children = &children
	return n
}

// Bytes serializes a RectTree, mirroring Tree.Bytes with the rect_tree flag
// bit set and a 4-coord geom per entry instead of 2.
func (t *RectTree[T]) Bytes() []byte {
	entries := t.root.appendAll(nil)
	buf := &bytes.Buffer{}
	writeHeader(buf, flagRectTree, t.capacity, t.maxDepth, t.bounds, t.nextID, uint64(len(entries)))
	for _, e := range entries {
		var u64 [8]byte
		binary.LittleEndian.PutUint64(u64[:], e.ID)
		buf.Write(u64[:])
		writeRect(buf, e.Rect)
	}
	return appendCRC(buf)
}

// EncodeRectTreeWithObjects mirrors EncodeTreeWithObjects for RectTree.
func EncodeRectTreeWithObjects[T Coord, H comparable](t *RectTree[T], objects *ObjectMap[H], encodeHandle func(H) []byte) []byte {
	entries := t.root.appendAll(nil)
	buf := &bytes.Buffer{}
	writeHeader(buf, flagRectTree|flagHasObjectMap, t.capacity, t.maxDepth, t.bounds, t.nextID, uint64(len(entries)))
	for _, e := range entries {
		var u64 [8]byte
		binary.LittleEndian.PutUint64(u64[:], e.ID)
		buf.Write(u64[:])
		writeRect(buf, e.Rect)
	}
	writeObjectChunk(buf, objects, encodeHandle)
	return appendCRC(buf)
}

// DecodeRectTreeWithObjects mirrors DecodeTreeWithObjects for RectTree.
func DecodeRectTreeWithObjects[T Coord, H comparable](blob []byte, decodeHandle func([]byte) (H, int, error)) (*RectTree[T], *ObjectMap[H], error) {
	body, err := verifyCRC(blob)
	if err != nil {
		return nil, nil, err
	}
	r := bytes.NewReader(body)
	h, err := readHeader[T](r, true)
	if err != nil {
		return nil, nil, err
	}
	if h.flags&flagHasObjectMap == 0 {
		return nil, nil, newFormatError(FormatObjectsDisallowed, "blob carries no object map")
	}
	t, err := NewRectTree[T](h.bounds, h.capacity, h.maxDepth)
	if err != nil {
		return nil, nil, err
	}
	entries := make([]RectEntry[T], 0, h.entryCount)
	for i := uint64(0); i < h.entryCount; i++ {
		var idBuf [8]byte
		if _, err := io.ReadFull(r, idBuf[:]); err != nil {
			return nil, nil, newFormatError(FormatTruncated, "entry id")
		}
		id := binary.LittleEndian.Uint64(idBuf[:])
		rect, err := readRect[T](r)
		if err != nil {
			return nil, nil, err
		}
		if !h.bounds.ContainsRect(rect) {
			return nil, nil, newFormatError(FormatEntryOutOfBounds, "")
		}
		entries = append(entries, RectEntry[T]{ID: id, Rect: rect})
	}
	objects, err := readObjectChunk[H](r, decodeHandle)
	if err != nil {
		return nil, nil, err
	}
	bulkLoadRects(t, entries)
	t.nextID = h.nextID
	return t, objects, nil
}

// DecodeRectTree is RectTree's counterpart to DecodeTree.
func DecodeRectTree[T Coord](blob []byte, allowObjects bool) (*RectTree[T], error) {
	body, err := verifyCRC(blob)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(body)
	h, err := readHeader[T](r, true)
	if err != nil {
		return nil, err
	}
	t, err := NewRectTree[T](h.bounds, h.capacity, h.maxDepth)
	if err != nil {
		return nil, err
	}
	entries := make([]RectEntry[T], 0, h.entryCount)
	for i := uint64(0); i < h.entryCount; i++ {
		var idBuf [8]byte
		if _, err := io.ReadFull(r, idBuf[:]); err != nil {
			return nil, newFormatError(FormatTruncated, "entry id")
		}
		id := binary.LittleEndian.Uint64(idBuf[:])
		rect, err := readRect[T](r)
		if err != nil {
			return nil, err
		}
		if !h.bounds.ContainsRect(rect) {
			return nil, newFormatError(FormatEntryOutOfBounds, "")
		}
		entries = append(entries, RectEntry[T]{ID: id, Rect: rect})
	}
	if h.flags&flagHasObjectMap != 0 {
		if !allowObjects {
			return nil, ErrObjectsDisallowed
		}
		if err := skipObjectChunk(r); err != nil {
			return nil, err
		}
	}
	bulkLoadRects(t, entries)
	t.nextID = h.nextID
	return t, nil
}

func bulkLoadRects[T Coord](t *RectTree[T], entries []RectEntry[T]) {
	t.root = bulkBuildRectNode(t.bounds, 0, entries, t.capacity, t.maxDepth)
	t.size = len(entries)
}

// bulkBuildRectNode mirrors bulkBuildPointNode but keeps straddling rects
// (ones no single child fully contains) in the parent's own bucket instead
// of recursing them, matching rectNode.split's placement rule.
func bulkBuildRectNode[T Coord](bounds Rect[T], depth int, entries []RectEntry[T], capacity, maxDepth int) *rectNode[T] {
	n := newRectLeaf[T](bounds, depth)
	if len(entries) <= capacity || !n.canSplit(maxDepth) {
		n.bucket = entries
		return n
	}
	nw, ne, sw, se := Subdivide(bounds)
	var buckets [4][]RectEntry[T]
	var retained []RectEntry[T]
	for _, e := range entries {
		if idx, ok := rectChildIndex(bounds, e.Rect); ok {
			buckets[idx] = append(buckets[idx], e)
		} else {
			retained = append(retained, e)
		}
	}
	children := [4]*rectNode[T]{
		bulkBuildRectNode(nw, depth+1, buckets[NW], capacity, maxDepth),
		bulkBuildRectNode(ne, depth+1, buckets[NE], capacity, maxDepth),
		bulkBuildRectNode(sw, depth+1, buckets[SW], capacity, maxDepth),
		bulkBuildRectNode(se, depth+1, buckets[SE], capacity, maxDepth),
	}
	n.bucket = retained
	n.children = &children
	return n
}
