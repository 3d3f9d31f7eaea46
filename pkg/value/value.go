// Package value holds the dynamically typed argument values that commands
// consume. A Value pairs a concrete Go value with the Type descriptor it was
// created under; producers compare descriptors, never the dynamic values.
package value

import (
	"fmt"
	"reflect"
	"sync"
)

// Type describes the static type of an argument. Two descriptors are equal
// exactly when they describe the same Go type, so Type is safe to compare
// with == and to use as a map key.
type Type struct {
	rt reflect.Type
}

// TypeOf returns the descriptor for T.
func TypeOf[T any]() Type {
	return Type{rt: reflect.TypeFor[T]()}
}

// Valid reports whether t describes a type at all.
func (t Type) Valid() bool { return t.rt != nil }

// Reflect exposes the underlying reflect.Type for codecs.
func (t Type) Reflect() reflect.Type { return t.rt }

// String returns the registered name of t, or the Go spelling if it has none.
func (t Type) String() string {
	if t.rt == nil {
		return "<invalid>"
	}
	if n, ok := NameOf(t); ok {
		return n
	}
	return t.rt.String()
}

// New returns a pointer to a fresh zero value of t.
func (t Type) New() any {
	return reflect.New(t.rt).Interface()
}

// Value is a handle to one argument. Get may be called from any goroutine and
// returns the current value; for constants it never changes.
type Value interface {
	Type() Type
	Get() any
}

// Const is an immutable argument.
type Const[T any] struct {
	v T
}

// Of wraps v as an immutable argument.
func Of[T any](v T) Value { return Const[T]{v: v} }

func (c Const[T]) Type() Type { return TypeOf[T]() }
func (c Const[T]) Get() any   { return c.v }

// Value returns the wrapped value with its static type.
func (c Const[T]) Value() T { return c.v }

// Var is a mutable argument. A command bound to a Var reads it when the
// action runs and again each time its completion is evaluated.
type Var[T any] struct {
	mu sync.RWMutex
	v  T
}

// NewVar creates a Var holding v.
func NewVar[T any](v T) *Var[T] { return &Var[T]{v: v} }

func (x *Var[T]) Type() Type { return TypeOf[T]() }

func (x *Var[T]) Get() any { return x.Load() }

// Load returns the current value.
func (x *Var[T]) Load() T {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.v
}

// Set replaces the current value.
func (x *Var[T]) Set(v T) {
	x.mu.Lock()
	x.v = v
	x.mu.Unlock()
}

// dynamic is a constant built from a reflect.Value when T is not known at
// compile time (decoders, scripts).
type dynamic struct {
	t Type
	v any
}

func (d dynamic) Type() Type { return d.t }
func (d dynamic) Get() any   { return d.v }

// As extracts the current value of v as a T.
func As[T any](v Value) (T, bool) {
	var zero T
	if v == nil || v.Type() != TypeOf[T]() {
		return zero, false
	}
	out, ok := v.Get().(T)
	return out, ok
}

// Types returns the descriptors of args in order.
func Types(args []Value) []Type {
	out := make([]Type, len(args))
	for i, a := range args {
		if a != nil {
			out[i] = a.Type()
		}
	}
	return out
}

// Snapshot reads every argument once. A nil entry is reported as an error
// rather than dereferenced.
func Snapshot(args []Value) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		if a == nil {
			return nil, fmt.Errorf("value: argument %d is nil", i)
		}
		out[i] = a.Get()
	}
	return out, nil
}
