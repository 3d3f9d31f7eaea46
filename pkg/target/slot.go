// Package target provides liveness-checked, non-owning references to objects
// that may be swapped or torn down while commands bound to them are still
// around. Resolution is always explicit and fallible: nothing here hands out
// a pointer to an object whose owner has released it.
package target

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrExpired reports that the referenced object has been released.
var ErrExpired = errors.New("target: expired")

// cell is one binding of a slot. Its liveness flag only ever goes from true
// to false, so a Ref that saw it alive can cheaply re-check it later.
type cell[T any] struct {
	gen   uint64
	obj   *T
	alive atomic.Bool
}

// Slot holds the currently bound target of a rebindable command. The zero
// value is an empty slot.
type Slot[T any] struct {
	mu  sync.Mutex
	gen uint64
	cur *cell[T]
}

// Bind points the slot at obj and returns the lease that keeps it alive.
// Refs resolved before the call keep pointing at whatever they resolved;
// rebinding does not release the previous lease.
func (s *Slot[T]) Bind(obj *T) *Lease {
	if obj == nil {
		panic("target: Bind with nil object")
	}
	s.mu.Lock()
	s.gen++
	c := &cell[T]{gen: s.gen, obj: obj}
	c.alive.Store(true)
	s.cur = c
	s.mu.Unlock()

	return &Lease{release: func() {
		c.alive.Store(false)
		s.mu.Lock()
		if s.cur == c {
			s.cur = nil
		}
		s.mu.Unlock()
	}}
}

// Release drops the current binding, if any, and expires every Ref that
// resolved it.
func (s *Slot[T]) Release() {
	s.mu.Lock()
	c := s.cur
	s.cur = nil
	s.mu.Unlock()
	if c != nil {
		c.alive.Store(false)
	}
}

// Resolve returns a reference to the currently bound target.
func (s *Slot[T]) Resolve() (Ref[T], error) {
	s.mu.Lock()
	c := s.cur
	s.mu.Unlock()
	if c == nil || !c.alive.Load() {
		return Ref[T]{}, ErrExpired
	}
	return Ref[T]{c: c}, nil
}

// Generation counts binds; 0 means the slot was never bound.
func (s *Slot[T]) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Ref is a resolved, non-owning reference to one binding of a slot.
type Ref[T any] struct {
	c *cell[T]
}

// Get returns the target while its lease is held.
func (r Ref[T]) Get() (*T, error) {
	if r.c == nil {
		return nil, ErrExpired
	}
	if !r.c.alive.Load() {
		return nil, fmt.Errorf("%w: generation %d", ErrExpired, r.c.gen)
	}
	return r.c.obj, nil
}

// Alive reports whether Get would succeed.
func (r Ref[T]) Alive() bool { return r.c != nil && r.c.alive.Load() }

// Lease is held by whoever owns a bound object. Releasing it expires every
// Ref that resolved that binding.
type Lease struct {
	once    sync.Once
	release func()
}

// Release is idempotent.
func (l *Lease) Release() {
	if l == nil {
		return
	}
	l.once.Do(l.release)
}
