// Package extract picks sub-values out of decoded stream elements using
// standard JSONPath expressions (e.g. "$.user.name", "$..items[0]").
//
// A compiled Path is reusable across elements, which is the common pattern
// when the same field is pulled from every element of a stream.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/theory/jsonpath"

	"github.com/arloliu/jsonstream/errs"
)

var (
	// ErrInvalidPath indicates the JSONPath expression failed to compile.
	ErrInvalidPath = errors.New("invalid jsonpath")

	// ErrNotFound indicates the query matched nothing in the element.
	// Check with errors.Is or IsNotFound.
	ErrNotFound = errors.New("not found")
)

// IsNotFound reports whether err indicates the queried value was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Path is a compiled JSONPath query.
type Path struct {
	path *jsonpath.Path
}

// Compile parses a JSONPath expression.
func Compile(expr string) (*Path, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: expression is empty", ErrInvalidPath)
	}

	path, err := jsonpath.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPath, expr, err)
	}

	return &Path{path: path}, nil
}

// Select returns all values matching the query within element.
// The element must be a decoded JSON value (map[string]any, []any,
// or a scalar), as produced by decoding a stream element into any.
func (p *Path) Select(element any) []any {
	return p.path.Select(element)
}

// First returns the first value matching the query, or ErrNotFound.
func (p *Path) First(element any) (any, error) {
	results := p.path.Select(element)
	if len(results) == 0 {
		return nil, ErrNotFound
	}

	return results[0], nil
}

// FirstString is First with non-string matches rendered via fmt.Sprintf.
func (p *Path) FirstString(element any) (string, error) {
	result, err := p.First(element)
	if err != nil {
		return "", err
	}

	if str, ok := result.(string); ok {
		return str, nil
	}

	return fmt.Sprintf("%v", result), nil
}

// FromBytes decodes a raw JSON element and returns the first match for
// expr. Convenience for one-off queries; compile the path once when
// querying many elements.
func FromBytes(raw []byte, expr string) (any, error) {
	path, err := Compile(expr)
	if err != nil {
		return nil, err
	}

	var element any
	if err := json.Unmarshal(raw, &element); err != nil {
		return nil, fmt.Errorf("%w: element is not valid JSON: %v", errs.ErrDecode, err)
	}

	return path.First(element)
}
