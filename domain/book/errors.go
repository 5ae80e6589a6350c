package book

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument rejects non-positive prices or quantities.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLevelNotFound is returned by Remove when no level rests at the price.
	ErrLevelNotFound = errors.New("price level not found")

	// ErrOverRemove is returned by Remove when the requested quantity exceeds
	// the resting quantity. The book is left untouched; negative inventory is
	// a corrupted state, never a clamp.
	ErrOverRemove = errors.New("remove exceeds resting quantity")
)

// InvariantError reports a corrupted book state: negative quantity, or a
// zero-quantity level still resting. It is raised via panic because the
// process must not keep trading on a corrupted book.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "book invariant violated: " + e.Msg
}

func invariantf(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
