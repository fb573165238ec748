package wire

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spreadcoin/spreadd/util/chainhash"
)

// cacheState is the parse state of a decoded entity.
type cacheState uint8

const (
	// stateUnparsed means only the raw bytes are known. The entity's
	// fields are materialized on first access.
	stateUnparsed cacheState = iota

	// stateParsed means the fields are materialized and raw is still a
	// faithful serialization of them.
	stateParsed

	// stateDirty means a field changed after the last serialization and
	// raw is stale.
	stateDirty
)

// noParent marks an arena entry without an enclosing entity.
const noParent = -1

// cacheEntry is the cache bookkeeping of a single entity.
type cacheEntry struct {
	state  cacheState
	raw    []byte
	parent int
	hash   *chainhash.Hash
}

// cacheArena holds the cache entries of an entity tree: a block, its header,
// its transactions and their inputs and outputs. Entities refer to entries by
// handle and each entry refers to its enclosing entity by handle, so
// invalidation walks up the tree without pointers from child to parent.
type cacheArena struct {
	entries []cacheEntry
}

func newCacheArena() *cacheArena {
	return &cacheArena{}
}

// alloc adds an entry and returns its handle.
func (a *cacheArena) alloc(state cacheState, raw []byte, parent int) int {
	a.entries = append(a.entries, cacheEntry{
		state:  state,
		raw:    raw,
		parent: parent,
	})
	return len(a.entries) - 1
}

// invalidate marks the entry and all of its ancestors dirty. Siblings are
// left alone.
func (a *cacheArena) invalidate(handle int) {
	for handle != noParent {
		entry := &a.entries[handle]
		entry.state = stateDirty
		entry.raw = nil
		entry.hash = nil
		handle = entry.parent
	}
}

// cacheRef binds an entity to its entry in an arena.
type cacheRef struct {
	arena  *cacheArena
	handle int
}

// newCacheRef allocates a root entry in a fresh arena. New entities have no
// serialization yet, so they start dirty.
func newCacheRef() cacheRef {
	arena := newCacheArena()
	return cacheRef{arena: arena, handle: arena.alloc(stateDirty, nil, noParent)}
}

func (ref cacheRef) entry() *cacheEntry {
	return &ref.arena.entries[ref.handle]
}

func (ref cacheRef) state() cacheState {
	return ref.entry().state
}

// isParsed reports whether the entity's fields are materialized.
func (ref cacheRef) isParsed() bool {
	return ref.state() != stateUnparsed
}

// isCached reports whether the stored bytes are a faithful serialization.
func (ref cacheRef) isCached() bool {
	return ref.state() != stateDirty
}

// invalidate marks the entity and its ancestors dirty.
func (ref cacheRef) invalidate() {
	ref.arena.invalidate(ref.handle)
}

// markParsed records that the fields were materialized from raw.
func (ref cacheRef) markParsed() {
	entry := ref.entry()
	if entry.state == stateUnparsed {
		entry.state = stateParsed
	}
}

// store records a fresh serialization.
func (ref cacheRef) store(raw []byte) {
	entry := ref.entry()
	entry.raw = raw
	entry.state = stateParsed
}

// move copies the entity's entry into arena under parent and returns the new
// reference. The state, bytes and hash memo travel with it.
func (ref cacheRef) move(arena *cacheArena, parent int) cacheRef {
	old := *ref.entry()
	handle := arena.alloc(old.state, old.raw, parent)
	arena.entries[handle].hash = old.hash
	return cacheRef{arena: arena, handle: handle}
}

// encoder serializes an entity's fields.
type encoder func(w io.Writer) error

// bytes returns the cached serialization, re-encoding with enc when the
// entity is dirty.
func (ref cacheRef) bytes(sizeHint int, enc encoder) ([]byte, error) {
	entry := ref.entry()
	if entry.state != stateDirty {
		return entry.raw, nil
	}
	buf := newBufferSized(sizeHint)
	err := enc(buf)
	if err != nil {
		return nil, err
	}
	raw := buf.Bytes()
	ref.store(raw)
	return raw, nil
}

// doubleHash returns the memoized double-SHA256 of the entity's bytes.
func (ref cacheRef) doubleHash(sizeHint int, enc encoder) (*chainhash.Hash, error) {
	raw, err := ref.bytes(sizeHint, enc)
	if err != nil {
		return nil, err
	}
	entry := ref.entry()
	if entry.hash == nil {
		hash := chainhash.DoubleHashH(raw)
		entry.hash = &hash
	}
	hash := *entry.hash
	return &hash, nil
}

// byteReader reads from an in-memory buffer and hands out sub-slices of it,
// which lets decoded entities keep their exact byte range without copying.
type byteReader struct {
	buf []byte
	off int
}

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

// Read implements io.Reader.
func (r *byteReader) Read(p []byte) (int, error) {
	if r.off >= len(r.buf) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, r.buf[r.off:])
	r.off += n
	return n, nil
}

// ReadByte implements io.ByteReader.
func (r *byteReader) ReadByte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, io.EOF
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

// next returns the next n bytes as a capped sub-slice.
func (r *byteReader) next(n int) ([]byte, error) {
	if n < 0 || len(r.buf)-r.off < n {
		r.off = len(r.buf)
		return nil, errors.WithStack(io.ErrUnexpectedEOF)
	}
	b := r.buf[r.off : r.off+n : r.off+n]
	r.off += n
	return b, nil
}

func (r *byteReader) offset() int {
	return r.off
}

// since returns the bytes consumed from start up to the current offset.
func (r *byteReader) since(start int) []byte {
	return r.buf[start:r.off:r.off]
}

// asByteReader returns r itself when it is already a byteReader. Otherwise it
// runs scan over r while recording every consumed byte, and returns a
// byteReader over the recorded bytes so the caller can decode exactly the
// bytes the entity occupies.
func asByteReader(r io.Reader, scan func(io.Reader) error) (*byteReader, error) {
	if br, ok := r.(*byteReader); ok {
		return br, nil
	}
	captured := newBufferSized(0)
	err := scan(io.TeeReader(r, captured))
	if err != nil {
		return nil, err
	}
	return newByteReader(captured.Bytes()), nil
}
