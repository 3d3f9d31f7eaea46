package command

import (
	"fmt"

	"github.com/joeydtaylor/steeze-command/pkg/target"
	"github.com/joeydtaylor/steeze-command/pkg/value"
)

// WeakBinding is a command whose target object lives in a target.Slot. The
// slot is resolved each time a handle is submitted, so rebinding the slot
// affects every later dispatch and none of the earlier ones.
type WeakBinding struct {
	name     string
	sig      Signature
	proc     Processor
	inverted bool
	pin      func() (*resolved, error)
}

// WeakFunc is the type-erased shape of weak actions and predicates.
type WeakFunc[T any] func(obj *T, args []any) bool

// WeakN builds a weak binding of any arity. As with NewN, a nil done
// completes the command once its action has run, inverted or not.
func WeakN[T any](name string, proc Processor, slot *target.Slot[T], sig Signature, action, done WeakFunc[T], opts ...Option) *WeakBinding {
	if name == "" || slot == nil || action == nil {
		panic("command: name, slot and action required")
	}
	o := applyOpts(opts)
	if done == nil {
		done, o.inverted = func(*T, []any) bool { return true }, false
	}
	w := &WeakBinding{
		name:     name,
		sig:      Sig(sig.Args...),
		proc:     proc,
		inverted: o.inverted,
	}
	w.pin = func() (*resolved, error) {
		ref, err := slot.Resolve()
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", name, ErrTargetExpired, err)
		}
		call := func(fn WeakFunc[T]) func([]any) (bool, error) {
			return func(args []any) (bool, error) {
				obj, err := ref.Get()
				if err != nil {
					return false, fmt.Errorf("%s: %w: %v", name, ErrTargetExpired, err)
				}
				return fn(obj, args), nil
			}
		}
		return &resolved{action: call(action), done: call(done)}, nil
	}
	return w
}

func Weak0[T any](name string, proc Processor, slot *target.Slot[T], action func(*T) bool, done func(*T) bool, opts ...Option) *WeakBinding {
	var d WeakFunc[T]
	if done != nil {
		d = func(o *T, _ []any) bool { return done(o) }
	}
	return WeakN(name, proc, slot, Sig(),
		func(o *T, _ []any) bool { return action(o) }, d, opts...)
}

func Weak1[T, A any](name string, proc Processor, slot *target.Slot[T], action func(*T, A) bool, done func(*T, A) bool, opts ...Option) *WeakBinding {
	var d WeakFunc[T]
	if done != nil {
		d = func(o *T, a []any) bool { return done(o, arg[A](a, 0)) }
	}
	return WeakN(name, proc, slot, Sig(value.TypeOf[A]()),
		func(o *T, a []any) bool { return action(o, arg[A](a, 0)) }, d, opts...)
}

func Weak2[T, A, B any](name string, proc Processor, slot *target.Slot[T], action func(*T, A, B) bool, done func(*T, A, B) bool, opts ...Option) *WeakBinding {
	var d WeakFunc[T]
	if done != nil {
		d = func(o *T, a []any) bool { return done(o, arg[A](a, 0), arg[B](a, 1)) }
	}
	return WeakN(name, proc, slot, Sig(value.TypeOf[A](), value.TypeOf[B]()),
		func(o *T, a []any) bool { return action(o, arg[A](a, 0), arg[B](a, 1)) }, d, opts...)
}

func Weak3[T, A, B, C any](name string, proc Processor, slot *target.Slot[T], action func(*T, A, B, C) bool, done func(*T, A, B, C) bool, opts ...Option) *WeakBinding {
	var d WeakFunc[T]
	if done != nil {
		d = func(o *T, a []any) bool { return done(o, arg[A](a, 0), arg[B](a, 1), arg[C](a, 2)) }
	}
	return WeakN(name, proc, slot, Sig(value.TypeOf[A](), value.TypeOf[B](), value.TypeOf[C]()),
		func(o *T, a []any) bool { return action(o, arg[A](a, 0), arg[B](a, 1), arg[C](a, 2)) }, d, opts...)
}

func Weak4[T, A, B, C, D any](name string, proc Processor, slot *target.Slot[T], action func(*T, A, B, C, D) bool, done func(*T, A, B, C, D) bool, opts ...Option) *WeakBinding {
	var d WeakFunc[T]
	if done != nil {
		d = func(o *T, a []any) bool { return done(o, arg[A](a, 0), arg[B](a, 1), arg[C](a, 2), arg[D](a, 3)) }
	}
	return WeakN(name, proc, slot, Sig(value.TypeOf[A](), value.TypeOf[B](), value.TypeOf[C](), value.TypeOf[D]()),
		func(o *T, a []any) bool { return action(o, arg[A](a, 0), arg[B](a, 1), arg[C](a, 2), arg[D](a, 3)) }, d, opts...)
}

func (w *WeakBinding) Name() string         { return w.name }
func (w *WeakBinding) Signature() Signature { return Sig(w.sig.Args...) }
func (w *WeakBinding) Inverted() bool       { return w.inverted }

// Bind produces a handle for args after checking them against the signature.
// The slot is not consulted until the handle is submitted.
func (w *WeakBinding) Bind(args ...value.Value) (Handle, error) {
	if err := w.sig.Check(args); err != nil {
		return nil, fmt.Errorf("%s: %w", w.name, err)
	}
	return newDispatch(w, args), nil
}

func (w *WeakBinding) commandName() string         { return w.name }
func (w *WeakBinding) signature() Signature        { return w.sig }
func (w *WeakBinding) processor() Processor        { return w.proc }
func (w *WeakBinding) isInverted() bool            { return w.inverted }
func (w *WeakBinding) resolve() (*resolved, error) { return w.pin() }
