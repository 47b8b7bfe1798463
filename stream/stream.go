// Package stream decodes a JSON array delivered as a chunked, possibly
// gzip-compressed HTTP response into typed elements, yielding each element
// as soon as its bytes have arrived.
//
// A Stream is a pull-based state machine over a transport response future:
//
//	Connecting -> Collecting | CollectingError | EncodingError -> Done
//
// One call to Next performs as many internal transitions as needed and
// returns to the caller only with a decoded element, a terminal error, the
// exhaustion signal, or when genuinely blocked on the transport. Memory
// stays bounded: the byte buffer holds roughly one pending element, and a
// compressed body is decoded one chunk at a time through a fixed output
// window.
//
// All failures are terminal. Callers observe zero or more elements, then
// either clean exhaustion (io.EOF) or exactly one error, and io.EOF on every
// call thereafter.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/arloliu/jsonstream/errs"
	"github.com/arloliu/jsonstream/inflate"
	"github.com/arloliu/jsonstream/internal/alloc"
	"github.com/arloliu/jsonstream/internal/options"
	"github.com/arloliu/jsonstream/internal/pool"
	"github.com/arloliu/jsonstream/partial"
	"github.com/arloliu/jsonstream/transport"
)

// maxErrorBodyPrealloc caps the Content-Length pre-sizing of the error-body
// buffer, so a hostile header cannot force a large allocation.
const maxErrorBodyPrealloc = 4096

type phase uint8

const (
	phaseConnecting phase = iota
	phaseCollecting
	phaseCollectingError
	phaseEncodingError
	phaseDone
)

// Stats reports progress counters for one stream.
type Stats struct {
	// BytesIn counts raw body bytes pulled from the transport.
	BytesIn uint64
	// BytesOut counts bytes handed to the element extractor, after
	// decompression when the body is compressed.
	BytesOut uint64
	// Digest is the xxHash64 of the bytes counted by BytesOut.
	Digest uint64
}

// Stream incrementally decodes a JSON array response into values of type T.
//
// Not safe for concurrent use: exactly one consumer drives the stream. All
// state lives for one response only; nothing persists across requests.
type Stream[T any] struct {
	future transport.Future
	decode partial.DecodeFunc[T]

	level    int
	capacity int

	phase    phase
	resp     *transport.Response
	json     *partial.JSON[T]
	engine   *inflate.Engine
	encoding ContentEncoding
	initErr  error

	status  int
	errBody *pool.ByteBuffer

	bytesIn  uint64
	bytesOut uint64
	digest   *xxhash.Digest
}

// New creates a Stream decoding elements with encoding/json.
// The future is awaited on the first call to Next.
func New[T any](future transport.Future, opts ...Option) (*Stream[T], error) {
	return NewWithDecoder(future, partial.JSONDecode[T](), opts...)
}

// NewWithDecoder creates a Stream with a caller-supplied value decoder,
// invoked with the exact byte slice of each complete element.
func NewWithDecoder[T any](future transport.Future, decode partial.DecodeFunc[T], opts ...Option) (*Stream[T], error) {
	if future == nil {
		return nil, fmt.Errorf("%w: nil response future", errs.ErrProtocol)
	}
	if decode == nil {
		return nil, fmt.Errorf("%w: nil decode function", errs.ErrProtocol)
	}

	cfg := &settings{level: DefaultLevel, capacity: DefaultCapacity}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return &Stream[T]{
		future:   future,
		decode:   decode,
		level:    cfg.level,
		capacity: cfg.capacity,
		digest:   xxhash.New(),
	}, nil
}

// Next returns the next decoded element. It blocks only while awaiting the
// response or the next body chunk; everything else happens synchronously
// inside the call. Exhaustion is signalled with io.EOF, stable under
// repeated calls. Every other error is terminal and is followed by io.EOF.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	for {
		v, stop, err := s.step(ctx)
		if stop {
			return v, err
		}
	}
}

// All returns an iterator over the remaining elements. Iteration stops
// silently at exhaustion and after yielding one terminal error; the stream
// is closed when the loop ends, including early breaks.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer func() { _ = s.Close() }()

		for {
			v, err := s.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Done reports whether the stream reached its terminal state.
func (s *Stream[T]) Done() bool {
	return s.phase == phaseDone
}

// Stats returns the stream's progress counters.
func (s *Stream[T]) Stats() Stats {
	return Stats{
		BytesIn:  s.bytesIn,
		BytesOut: s.bytesOut,
		Digest:   s.digest.Sum64(),
	}
}

// Close abandons the stream: it releases the byte buffer, finalizes the
// decompression engine, and closes the transport body. Safe to call at any
// point and any number of times.
func (s *Stream[T]) Close() error {
	s.shutdown()
	s.phase = phaseDone

	return nil
}

// step performs one state transition. It returns stop=false when the
// transition produced nothing to report and the machine should advance
// again within the same Next call.
func (s *Stream[T]) step(ctx context.Context) (T, bool, error) {
	var zero T

	switch s.phase {
	case phaseConnecting:
		return s.stepConnecting(ctx)
	case phaseCollecting:
		return s.stepCollecting(ctx)
	case phaseCollectingError:
		return s.stepCollectingError(ctx)
	case phaseEncodingError:
		err := s.initErr
		s.fail()

		return zero, true, fmt.Errorf("%w: %s", errs.ErrEncoding, err)
	default: // phaseDone: fused
		return zero, true, io.EOF
	}
}

// stepConnecting awaits the response and classifies it: success, empty,
// or API error.
func (s *Stream[T]) stepConnecting(ctx context.Context) (T, bool, error) {
	var zero T

	resp, err := s.future(ctx)
	if err != nil {
		s.phase = phaseDone
		return zero, true, fmt.Errorf("%w: %s", errs.ErrTransport, err)
	}

	s.resp = resp
	s.encoding = ParseContentEncoding(resp.Header.Get("Content-Encoding"))

	switch resp.Status {
	case http.StatusOK:
		s.json = partial.New(s.capacity, s.level, s.decode)
		if s.encoding == EncodingGzip {
			engine, err := inflate.New(alloc.NewBridge())
			if err != nil {
				s.initErr = err
				s.phase = phaseEncodingError
				return zero, false, nil
			}
			s.engine = engine
		}
		s.phase = phaseCollecting
	case http.StatusNoContent:
		s.shutdown()
		s.phase = phaseDone
	default:
		s.status = resp.Status
		s.errBody = pool.GetByteBuffer(min(contentLength(resp.Header), maxErrorBodyPrealloc))
		s.phase = phaseCollectingError
	}

	return zero, false, nil
}

// stepCollecting drains the extractor first, then pulls the next body chunk
// through the engine (compressed) or straight into the extractor (raw).
func (s *Stream[T]) stepCollecting(ctx context.Context) (T, bool, error) {
	var zero T

	v, ok, err := s.json.Next()
	if err != nil {
		s.fail()
		return zero, true, err
	}
	if ok {
		return v, true, nil
	}

	chunk, err := s.resp.Body.Next(ctx)
	if errors.Is(err, io.EOF) {
		s.shutdown()
		s.phase = phaseDone

		return zero, true, io.EOF
	}
	if err != nil {
		s.fail()
		return zero, true, fmt.Errorf("%w: %s", errs.ErrIO, err)
	}

	s.bytesIn += uint64(len(chunk))
	if s.engine != nil {
		if err := s.engine.Feed(chunk, s.ingest); err != nil {
			s.fail()
			return zero, true, err
		}
	} else {
		s.ingest(chunk)
	}

	return zero, false, nil
}

// stepCollectingError accumulates the error body; the API error is reported
// only once the body has been fully drained.
func (s *Stream[T]) stepCollectingError(ctx context.Context) (T, bool, error) {
	var zero T

	chunk, err := s.resp.Body.Next(ctx)
	if errors.Is(err, io.EOF) {
		status := s.status
		body := s.errBody.Bytes()

		if !utf8.Valid(body) {
			s.fail()
			return zero, true, fmt.Errorf("%w: error body is not valid utf-8", errs.ErrMalformedJSON)
		}

		apiErr := &errs.APIError{Status: status, Body: string(body)}
		s.fail()

		return zero, true, apiErr
	}
	if err != nil {
		s.fail()
		return zero, true, fmt.Errorf("%w: %s", errs.ErrIO, err)
	}

	s.bytesIn += uint64(len(chunk))
	s.errBody.MustWrite(chunk)

	return zero, false, nil
}

// ingest routes decoded body bytes into the extractor, updating counters.
func (s *Stream[T]) ingest(b []byte) {
	s.bytesOut += uint64(len(b))
	_, _ = s.digest.Write(b)
	s.json.Push(b)
}

// fail moves to the terminal state, releasing every resource.
func (s *Stream[T]) fail() {
	s.shutdown()
	s.phase = phaseDone
}

// shutdown releases resources exactly once each; nil fields mean already
// released.
func (s *Stream[T]) shutdown() {
	if s.json != nil {
		s.json.Close()
		s.json = nil
	}
	if s.engine != nil {
		_ = s.engine.Close()
		s.engine = nil
	}
	if s.errBody != nil {
		pool.PutByteBuffer(s.errBody)
		s.errBody = nil
	}
	if s.resp != nil {
		_ = s.resp.Body.Close()
		s.resp = nil
	}
}
