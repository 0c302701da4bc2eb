// Package history keeps a bounded number of recently relayed chunks.
package history

import (
	"errors"
	"fmt"
)

// ErrInvalidSize - stack capacity must be positive.
var ErrInvalidSize = errors.New("history: stack size must be greater than 0")

// Stack - accumulates a limited number of items in push order.
// When stack is full, every push overwrites the oldest item.
// Stack is owned by the event loop and is not safe for concurrent use.
type Stack[T any] struct {
	data  []T
	start int
	size  int
}

// NewStack - builds history stack with given capacity.
func NewStack[T any](max int) (*Stack[T], error) {
	if max <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, max)
	}
	return &Stack[T]{data: make([]T, max)}, nil
}

// Cap - returns stack capacity.
func (s *Stack[T]) Cap() int {
	return len(s.data)
}

// Len - returns number of currently kept items.
func (s *Stack[T]) Len() int {
	return s.size
}

// Push - adds item to history.
func (s *Stack[T]) Push(item T) {
	if s.size < len(s.data) {
		s.data[(s.start+s.size)%len(s.data)] = item
		s.size++
		return
	}
	s.data[s.start] = item
	s.start = (s.start + 1) % len(s.data)
}

// Tail - makes copy of last n items into resulting slice, the oldest goes first.
// Negative n is treated as its absolute value.
func (s *Stack[T]) Tail(n int) []T {
	if n < 0 {
		n = -n
	}
	if n > s.size {
		n = s.size
	}
	tail := make([]T, n)
	for i := 0; i < n; i++ {
		tail[i] = s.data[(s.start+s.size-n+i)%len(s.data)]
	}
	return tail
}
