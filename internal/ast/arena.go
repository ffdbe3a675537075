package ast

import "fortio.org/safecast"

// Arena stores values addressed by 1-based uint32 indices. Elements are
// heap-allocated individually so pointers returned by Get stay valid while
// the arena grows.
type Arena[T any] struct {
	data []*T
}

// NewArena creates an arena with capacity for capHint elements.
func NewArena[T any](capHint uint) *Arena[T] {
	return &Arena[T]{
		data: make([]*T, 0, capHint),
	}
}

// Allocate stores value and returns its index (1-based).
func (a *Arena[T]) Allocate(value T) uint32 {
	v := value
	a.data = append(a.data, &v)
	return safecast.MustConv[uint32](len(a.data))
}

func (a *Arena[T]) Get(index uint32) *T {
	if index == 0 || int(index) > len(a.data) {
		return nil
	}
	return a.data[index-1]
}

func (a *Arena[T]) Len() uint32 {
	return safecast.MustConv[uint32](len(a.data))
}
