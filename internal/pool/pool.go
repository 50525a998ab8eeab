// Package pool provides a typed sync.Pool.
package pool

import "sync"

// Pool recycles values of type T. Values are reset before they are reused.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(*T)
}

func New[T any](reset func(*T)) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return new(T)
			},
		},
		reset: reset,
	}
}

func (p *Pool[T]) Get() *T {
	return p.pool.Get().(*T)
}

func (p *Pool[T]) Put(v *T) {
	if p.reset != nil {
		p.reset(v)
	}
	p.pool.Put(v)
}
