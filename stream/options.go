package stream

import (
	"fmt"

	"github.com/arloliu/jsonstream/internal/options"
)

const (
	// DefaultLevel extracts the elements of a top-level array.
	DefaultLevel = 1
	// DefaultCapacity is the initial byte buffer size hint.
	DefaultCapacity = 4 * 1024
)

type settings struct {
	level    int
	capacity int
}

// Option configures a Stream at construction time.
type Option = options.Option[*settings]

// WithLevel sets the nesting depth at which array elements are extracted.
// Level 1 (the default) extracts the elements of a top-level array; level N
// extracts from an array nested N-1 containers deep; level 0 treats the
// whole body as one element.
func WithLevel(level int) Option {
	return options.New(func(s *settings) error {
		if level < 0 {
			return fmt.Errorf("level must be non-negative, got %d", level)
		}
		s.level = level

		return nil
	})
}

// WithCapacity sets the initial size hint for the byte buffer that
// accumulates unconsumed body bytes.
func WithCapacity(capacity int) Option {
	return options.New(func(s *settings) error {
		if capacity < 0 {
			return fmt.Errorf("capacity must be non-negative, got %d", capacity)
		}
		s.capacity = capacity

		return nil
	})
}
