// Package memory provides object recycling for the hot path. The book
// creates and erases price levels constantly in a crossed market; pooling
// keeps that churn off the garbage collector.
package memory

import "sync"

// Pool is a typed object pool over sync.Pool.
type Pool[T any] struct {
	p *sync.Pool
}

func NewPool[T any](ctor func() *T) *Pool[T] {
	return &Pool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
	}
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

// Put returns v to the pool. The caller resets the object first; pooled
// values come back with whatever state they were put away with.
func (p *Pool[T]) Put(v *T) {
	p.p.Put(v)
}
