// Package handoff provides a one-shot ownership transfer primitive.
//
// A Cell starts out holding a resource that several components can see but
// only one may own. The first Take moves the resource out and leaves the
// cell permanently empty; every later Take fails with ErrTaken.
package handoff

import (
	"errors"
	"sync/atomic"
)

// ErrTaken is returned when the resource has already been taken.
var ErrTaken = errors.New("resource already taken")

// Cell holds a value until it is taken exactly once. It is safe for concurrent use.
type Cell[T any] struct {
	v atomic.Pointer[T]
}

// NewCell returns a cell holding v.
func NewCell[T any](v T) *Cell[T] {
	c := &Cell[T]{}
	c.v.Store(&v)
	return c
}

// Take returns the held value and empties the cell.
func (c *Cell[T]) Take() (T, error) {
	p := c.v.Swap(nil)
	if p == nil {
		var zero T
		return zero, ErrTaken
	}
	return *p, nil
}

// Taken reports whether the value has been taken.
func (c *Cell[T]) Taken() bool {
	return c.v.Load() == nil
}
