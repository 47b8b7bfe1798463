// Package errs defines the error taxonomy shared by all jsonstream packages.
//
// Every terminal stream failure wraps exactly one of the sentinel errors
// below, so callers can classify failures with errors.Is without parsing
// error strings:
//
//	_, err := stream.Next(ctx)
//	if errors.Is(err, errs.ErrEncoding) {
//	    // the compressed body could not be decoded
//	}
//
// API-level failures (a non-success HTTP status) carry the status code and
// the drained response body in an *APIError.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport indicates the request itself failed before a response
	// was received (dial, TLS, or protocol-level failure).
	ErrTransport = errors.New("transport request failed")

	// ErrProtocol indicates the stream was constructed or driven in a way
	// that violates its contract.
	ErrProtocol = errors.New("protocol violation")

	// ErrIO indicates a body chunk could not be read from the transport.
	ErrIO = errors.New("body read failed")

	// ErrDecode indicates the value decoder rejected a complete element.
	ErrDecode = errors.New("element decode failed")

	// ErrMalformedJSON indicates the byte stream is not structurally valid,
	// or an error body was not valid text.
	ErrMalformedJSON = errors.New("malformed json")

	// ErrEncoding indicates the decompression engine reported a fatal
	// status while decoding the compressed body.
	ErrEncoding = errors.New("content decoding failed")

	// ErrEngineInit indicates the decompression engine could not be set up
	// for a compressed response.
	ErrEngineInit = errors.New("inflate engine initialization failed")

	// ErrClosed indicates an operation on a stream or engine that has
	// already been closed.
	ErrClosed = errors.New("already closed")
)

// APIError reports a non-success HTTP status together with the fully drained
// response body. It is only produced after the entire error body has been
// received, regardless of how many chunks it arrived in.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Body)
}

// Is reports whether target is an *APIError with the same status.
// A zero Status on the target matches any status.
func (e *APIError) Is(target error) bool {
	var apiErr *APIError
	if !errors.As(target, &apiErr) {
		return false
	}

	return apiErr.Status == 0 || apiErr.Status == e.Status
}
