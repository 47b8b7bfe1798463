// Package options implements the functional option plumbing shared by the
// configurable constructors in this module.
package options

// Option configures a value of type T and may reject its argument.
type Option[T any] interface {
	apply(T) error
}

type funcOption[T any] func(T) error

func (f funcOption[T]) apply(target T) error {
	return f(target)
}

// New wraps fn as an Option; fn reports invalid arguments as errors.
func New[T any](fn func(T) error) Option[T] {
	return funcOption[T](fn)
}

// Apply runs opts against target in order, stopping at the first error.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	return nil
}
