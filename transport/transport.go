// Package transport adapts an HTTP client into the asynchronous response
// contract consumed by the stream package: a future resolving to a status,
// headers, and a sequence of body chunks.
//
// The stream decodes Content-Encoding itself, so clients built here disable
// the transparent decompression of net/http.
package transport

import (
	"context"
	"io"
	"net/http"
)

// ChunkSize is the read size used when slicing an HTTP body into chunks.
const ChunkSize = 8 * 1024

// Response is a transport response: status, headers, and a chunked body.
type Response struct {
	Status int
	Header http.Header
	Body   Body
}

// Body is a pull-based sequence of byte chunks. Next returns io.EOF once the
// body is exhausted, and keeps returning it. The returned chunk is owned by
// the caller and stays valid across calls.
type Body interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Future is an asynchronous operation yielding a Response. It is executed
// lazily: nothing happens until it is awaited with a context.
type Future func(ctx context.Context) (*Response, error)

// Do returns a Future executing req on client when awaited.
func Do(client *http.Client, req *http.Request) Future {
	return func(ctx context.Context) (*Response, error) {
		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}

		return FromHTTP(resp), nil
	}
}

// Get returns a Future issuing a GET for url on client when awaited.
func Get(client *http.Client, url string) Future {
	return func(ctx context.Context) (*Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}

		return FromHTTP(resp), nil
	}
}

// FromHTTP wraps a received *http.Response into the transport contract.
func FromHTTP(resp *http.Response) *Response {
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   &httpBody{rc: resp.Body},
	}
}

// httpBody slices a response body into ChunkSize reads.
type httpBody struct {
	rc  io.ReadCloser
	err error // sticky: io.EOF after exhaustion, or the failed read's error
}

func (b *httpBody) Next(ctx context.Context) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := make([]byte, ChunkSize)
	for {
		n, err := b.rc.Read(buf)
		if n > 0 {
			// A read may return data and a terminal error together;
			// deliver the data now and the error on the next call.
			b.err = err
			return buf[:n], nil
		}
		if err != nil {
			b.err = err
			return nil, err
		}
	}
}

func (b *httpBody) Close() error {
	return b.rc.Close()
}
