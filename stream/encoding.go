package stream

import (
	"net/http"
	"strconv"
)

// ContentEncoding classifies the Content-Encoding response header.
// Only gzip-style encodings select the compressed path; any other value, or
// an absent header, selects the raw path.
type ContentEncoding uint8

const (
	EncodingNone ContentEncoding = iota
	EncodingGzip
)

// ParseContentEncoding maps a Content-Encoding header value to its
// classification.
func ParseContentEncoding(value string) ContentEncoding {
	if value == "gzip" {
		return EncodingGzip
	}

	return EncodingNone
}

func (e ContentEncoding) String() string {
	if e == EncodingGzip {
		return "gzip"
	}

	return "none"
}

// contentLength parses the Content-Length header, returning 0 when it is
// absent or unusable. It is only a pre-sizing hint for the error-body
// buffer, never a framing decision.
func contentLength(header http.Header) int {
	n, err := strconv.Atoi(header.Get("Content-Length"))
	if err != nil || n < 0 {
		return 0
	}

	return n
}
