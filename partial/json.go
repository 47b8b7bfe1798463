// Package partial implements an incremental extractor of JSON array elements.
//
// The extractor accumulates raw response bytes as they arrive, in chunks cut
// at arbitrary positions, and recognizes complete JSON values at a configured
// nesting level without ever parsing the whole document. Each complete value
// is handed to a pluggable decoder; the consumed bytes are then discarded, so
// memory stays bounded by roughly one pending element.
package partial

import (
	"encoding/json"
	"fmt"

	"github.com/arloliu/jsonstream/errs"
	"github.com/arloliu/jsonstream/internal/pool"
)

// DecodeFunc turns the exact byte slice of one complete JSON value into a T.
type DecodeFunc[T any] func([]byte) (T, error)

// JSONDecode returns the default DecodeFunc backed by encoding/json.
func JSONDecode[T any]() DecodeFunc[T] {
	return func(raw []byte) (T, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return v, err
		}

		return v, nil
	}
}

// JSON extracts elements of type T from an incrementally growing byte buffer.
//
// The level parameter is the nesting depth at which elements are recognized:
// level 1 extracts the elements of a top-level array, level N extracts from
// an array nested N-1 containers deep, and level 0 treats the whole body as
// a single element. The level must address the elements of an array; keys of
// an object at the target depth are not meaningful elements.
//
// Not safe for concurrent use; one producer pushes and pulls in turn.
type JSON[T any] struct {
	buf    *pool.ByteBuffer
	decode DecodeFunc[T]

	level    int
	pos      int // scan cursor; bytes before it have been classified
	start    int // start of the open element, -1 when none
	depth    int // bracket/brace nesting depth at the cursor
	inString bool
	escaped  bool
}

// New creates an extractor for elements at the given nesting level. The
// capacity is a pre-size hint for the byte buffer; decode is invoked with
// the exact bytes of each complete element.
func New[T any](capacity, level int, decode DecodeFunc[T]) *JSON[T] {
	return &JSON[T]{
		buf:    pool.GetByteBuffer(capacity),
		decode: decode,
		level:  level,
		start:  -1,
	}
}

// Push appends bytes to the buffer. It has no parsing side effect; the scan
// happens in Next.
func (p *JSON[T]) Push(b []byte) {
	p.buf.MustWrite(b)
}

// Buffered reports the number of unconsumed bytes.
func (p *JSON[T]) Buffered() int {
	if p.buf == nil {
		return 0
	}

	return p.buf.Len()
}

// Next scans from the last unconsumed position and returns the next complete
// element. It returns (zero, false, nil) when no complete element is
// buffered yet, in which case the buffer is left untouched. On success the
// element's bytes and the trailing separator are dropped from the buffer.
// A nesting underflow wraps errs.ErrMalformedJSON; a decoder failure wraps
// errs.ErrDecode. Errors are not recoverable.
func (p *JSON[T]) Next() (T, bool, error) {
	var zero T

	data := p.buf.Bytes()
	for ; p.pos < len(data); p.pos++ {
		c := data[p.pos]

		if p.inString {
			switch {
			case p.escaped:
				p.escaped = false
			case c == '\\':
				p.escaped = true
			case c == '"':
				p.inString = false
			}

			continue
		}

		switch c {
		case '"':
			p.inString = true
			if p.start < 0 && p.depth == p.level {
				p.start = p.pos
			}
		case '{', '[':
			if p.start < 0 && p.depth == p.level {
				p.start = p.pos
			}
			p.depth++
		case '}', ']':
			p.depth--
			if p.start >= 0 {
				if p.depth == p.level-1 {
					// the enclosing array closed; the element ended
					// just before this bracket
					return p.emit(p.pos, false)
				}
				if p.level == 0 && p.depth == 0 {
					// level 0 extracts the whole top-level container;
					// its own closer is the last byte of the element
					return p.emit(p.pos, true)
				}
			}
			if p.depth < 0 {
				return zero, false, fmt.Errorf("%w: unexpected %q at offset %d", errs.ErrMalformedJSON, c, p.pos)
			}
		case ',':
			if p.depth == p.level && p.start >= 0 {
				return p.emit(p.pos, false)
			}
		case ' ', '\t', '\n', '\r', ':':
			// structural filler, never starts an element
		default:
			// scalar start: numbers, true, false, null
			if p.start < 0 && p.depth == p.level {
				p.start = p.pos
			}
		}
	}

	return zero, false, nil
}

// emit decodes the open element ending at the boundary byte at end
// (excluded unless inclusive), then drops the consumed prefix: element
// bytes plus boundary.
func (p *JSON[T]) emit(end int, inclusive bool) (T, bool, error) {
	var zero T

	stop := end
	if inclusive {
		stop++
	}

	raw := p.buf.Bytes()[p.start:stop]
	v, err := p.decode(raw)
	if err != nil {
		return zero, false, fmt.Errorf("%w: %s", errs.ErrDecode, err)
	}

	p.buf.Discard(end + 1)
	p.pos = 0
	p.start = -1

	return v, true, nil
}

// Close releases the buffer. The extractor must not be used afterwards.
func (p *JSON[T]) Close() {
	if p.buf == nil {
		return
	}

	pool.PutByteBuffer(p.buf)
	p.buf = nil
}
