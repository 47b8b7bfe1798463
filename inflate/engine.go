// Package inflate wraps an incremental decompression engine for one
// compressed response body.
//
// The engine is push-driven: Feed hands it one body chunk and synchronously
// drains every byte the chunk decompresses to through a fixed-size output
// window, delivering each window's worth of output to a sink as it is
// produced. Framing is auto-detected from the first bytes of the stream
// (gzip, zlib, or raw deflate), matching the permissive behavior of
// Content-Encoding: gzip in the wild.
//
// The reader-based inflate implementations are bridged to the push model by
// a dedicated goroutine: the engine goroutine blocks reading input, Feed
// hands it chunks through an input handshake and collects output until the
// engine is starved again. From the caller's point of view a Feed call is
// fully synchronous; no work happens between calls.
//
// Working memory (the output window and every delivered output block) is
// obtained from an allocator bridge and released exactly once, on every
// exit path.
package inflate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/arloliu/jsonstream/errs"
	"github.com/arloliu/jsonstream/internal/alloc"
)

// WindowSize is the size of the fixed output scratch window. Output is
// delivered to the sink in blocks of at most this many bytes.
const WindowSize = 1024

// Engine decompresses one response body incrementally.
// Not safe for concurrent use; one goroutine feeds and closes it.
type Engine struct {
	bridge *alloc.Bridge
	window []byte

	in   chan []byte
	req  chan struct{}
	out  chan []byte
	fail chan error
	quit chan struct{}

	closeOnce sync.Once
	starved   bool
	finished  bool
	err       error
}

// New creates an engine drawing working memory from bridge and starts its
// goroutine. Window allocation failure is an engine-init failure.
func New(bridge *alloc.Bridge) (*Engine, error) {
	if bridge == nil {
		return nil, fmt.Errorf("%w: nil allocator bridge", errs.ErrEngineInit)
	}

	window := bridge.Allocate(1, WindowSize)
	if window == nil {
		return nil, fmt.Errorf("%w: output window allocation failed", errs.ErrEngineInit)
	}

	e := &Engine{
		bridge: bridge,
		window: window,
		in:     make(chan []byte),
		req:    make(chan struct{}),
		out:    make(chan []byte),
		fail:   make(chan error),
		quit:   make(chan struct{}),
	}
	go e.run()

	return e, nil
}

// Feed decompresses one whole chunk, delivering produced output blocks to
// sink in order. It returns only once the chunk is fully consumed, the
// compressed stream has ended, or the engine reports a fatal status; a fatal
// status wraps errs.ErrEncoding and is terminal. Chunks arriving after the
// compressed stream ended are ignored. The sink must not retain the block
// it is handed; the bytes are released when the sink returns.
func (e *Engine) Feed(chunk []byte, sink func([]byte)) error {
	if e.err != nil {
		return e.err
	}
	if e.finished || len(chunk) == 0 {
		return nil
	}

	// The engine accepts input only when starved; collect pending output
	// until it asks for more.
	if !e.starved {
		if err := e.drain(sink); err != nil || e.finished {
			return err
		}
	}

	select {
	case e.in <- chunk:
		e.starved = false
	case err := <-e.fail:
		return e.fatal(err)
	case <-e.quit:
		return errs.ErrClosed
	}

	return e.drain(sink)
}

// Finished reports whether the compressed stream ended cleanly.
func (e *Engine) Finished() bool {
	return e.finished
}

// Close tears the engine down. It is idempotent; the engine goroutine
// releases the bridge blocks it holds on exit.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.quit)
	})

	return nil
}

// drain collects engine events until the engine is starved for input again.
func (e *Engine) drain(sink func([]byte)) error {
	for {
		select {
		case <-e.req:
			e.starved = true
			return nil
		case blk := <-e.out:
			sink(blk)
			e.bridge.Free(blk)
		case err := <-e.fail:
			return e.fatal(err)
		case <-e.quit:
			return errs.ErrClosed
		}
	}
}

// fatal records a terminal engine status. A clean end of the compressed
// stream is not an error; anything else poisons the engine.
func (e *Engine) fatal(err error) error {
	if errors.Is(err, io.EOF) {
		e.finished = true
		return nil
	}

	e.err = fmt.Errorf("%w: %s", errs.ErrEncoding, err)

	return e.err
}

// run is the engine goroutine: sniff the framing, then pump windows of
// decompressed output until the stream ends, a fatal status occurs, or the
// engine is closed.
func (e *Engine) run() {
	defer e.bridge.Free(e.window)

	src := &feedSource{engine: e}
	zr, err := newFramedReader(src)
	if err != nil {
		e.report(err)
		return
	}

	for {
		n, err := zr.Read(e.window)
		if n > 0 {
			blk := e.bridge.Allocate(uint(n), 1)
			if blk == nil {
				e.report(errors.New("output block allocation failed"))
				return
			}
			copy(blk, e.window[:n])

			select {
			case e.out <- blk:
			case <-e.quit:
				e.bridge.Free(blk)
				return
			}
		}
		if err != nil {
			e.report(err)
			return
		}
	}
}

func (e *Engine) report(err error) {
	select {
	case e.fail <- err:
	case <-e.quit:
	}
}

// feedSource adapts the input handshake to io.Reader for the inflate
// libraries. It runs on the engine goroutine: when out of bytes it signals
// starvation on req and blocks for the next chunk on in.
type feedSource struct {
	engine *Engine
	cur    []byte
}

func (s *feedSource) Read(p []byte) (int, error) {
	e := s.engine
	for len(s.cur) == 0 {
		select {
		case e.req <- struct{}{}:
		case <-e.quit:
			return 0, io.ErrClosedPipe
		}

		select {
		case chunk := <-e.in:
			s.cur = chunk
		case <-e.quit:
			return 0, io.ErrClosedPipe
		}
	}

	n := copy(p, s.cur)
	s.cur = s.cur[n:]

	return n, nil
}

// newFramedReader sniffs the first two bytes of the stream and constructs
// the matching decompressor: gzip magic, zlib header, or raw deflate.
// This is the auto-detection usually spelled windowBits=47 in zlib.
func newFramedReader(src io.Reader) (io.Reader, error) {
	var magic [2]byte
	if _, err := io.ReadFull(src, magic[:]); err != nil {
		return nil, err
	}

	full := io.MultiReader(bytes.NewReader(magic[:]), src)
	switch {
	case magic[0] == 0x1f && magic[1] == 0x8b:
		zr, err := gzip.NewReader(full)
		if err != nil {
			return nil, err
		}
		// A response body carries one stream; in multistream mode the
		// reader would block waiting for another gzip member instead of
		// reporting the end of the first one.
		zr.Multistream(false)

		return zr, nil
	case magic[0]&0x0f == 8 && (uint16(magic[0])<<8|uint16(magic[1]))%31 == 0:
		return zlib.NewReader(full)
	default:
		return flate.NewReader(full), nil
	}
}
