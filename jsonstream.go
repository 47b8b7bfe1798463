// Package jsonstream decodes large JSON arrays from HTTP responses
// incrementally, yielding one decoded element at a time while the body is
// still downloading.
//
// Elements become available as soon as their bytes arrive, so memory stays
// bounded by the largest single element rather than the whole response.
// Gzip-compressed bodies are decompressed on the fly through a fixed-size
// window.
//
// # Core Features
//
//   - Pull-based iteration: elements are produced only when asked for
//   - Incremental element extraction at a configurable nesting level
//   - Transparent gzip decompression (zlib and raw deflate auto-detected)
//   - Pluggable per-element decoding (encoding/json by default)
//   - Non-2xx responses surfaced as a single APIError with the body text
//   - Per-stream byte counters and an xxHash64 digest of the decoded bytes
//
// # Basic Usage
//
// Streaming the elements of a top-level array:
//
//	import "github.com/arloliu/jsonstream"
//
//	type City struct {
//	    Name    string `json:"name"`
//	    Country string `json:"country"`
//	}
//
//	client, _ := jsonstream.NewClient()
//	s, _ := jsonstream.Get[City](client, "https://example.com/cities.json")
//	defer s.Close()
//
//	for city, err := range s.All(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(city.Name)
//	}
//
// Pulling elements one at a time:
//
//	for {
//	    city, err := s.Next(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    process(city)
//	}
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the stream
// package, simplifying the most common use cases. For custom transports,
// element decoders, or direct access to the extractor and decompression
// engine, use the stream, partial, and inflate packages directly.
package jsonstream

import (
	"net/http"

	"github.com/arloliu/jsonstream/partial"
	"github.com/arloliu/jsonstream/stream"
	"github.com/arloliu/jsonstream/transport"
)

// Option configures a stream.
type Option = stream.Option

// DecodeFunc turns the raw bytes of one element into a value.
type DecodeFunc[T any] = partial.DecodeFunc[T]

// WithLevel sets the nesting level elements are extracted from.
// Level 1 (the default) yields the elements of a top-level array.
func WithLevel(level int) Option {
	return stream.WithLevel(level)
}

// WithCapacity sets the initial element buffer capacity in bytes.
func WithCapacity(capacity int) Option {
	return stream.WithCapacity(capacity)
}

// NewClient returns an *http.Client tuned for streaming: transparent
// response decompression is disabled so compressed bytes reach the stream
// intact.
func NewClient(opts ...transport.ClientOption) (*http.Client, error) {
	return transport.NewClient(opts...)
}

// New creates a stream over the response produced by future, decoding each
// element into T with encoding/json.
func New[T any](future transport.Future, opts ...Option) (*stream.Stream[T], error) {
	return stream.New[T](future, opts...)
}

// NewWithDecoder is New with a custom element decoder.
func NewWithDecoder[T any](future transport.Future, decode DecodeFunc[T], opts ...Option) (*stream.Stream[T], error) {
	return stream.NewWithDecoder(future, decode, opts...)
}

// Get creates a stream over a GET request issued through client.
// The request is not sent until the stream is first pulled from.
func Get[T any](client *http.Client, url string, opts ...Option) (*stream.Stream[T], error) {
	return stream.New[T](transport.Get(client, url), opts...)
}
