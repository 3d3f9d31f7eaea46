package command

import (
	"fmt"

	"github.com/joeydtaylor/steeze-command/pkg/value"
)

// Processor is the owning component's execution agent. Submit must not
// block; an accepted action runs exactly once, on the processor's own
// goroutine, after every action it accepted earlier.
type Processor interface {
	Submit(action func()) bool
}

// Kind tells in-process bindings apart from forwarding proxies.
type Kind int

const (
	KindLocal Kind = iota
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindRemote:
		return "remote"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Func is the type-erased shape of actions and predicates. Arguments arrive
// already checked against the signature.
type Func func(args []any) bool

// Binding pairs an action, its completion predicate and the processor that
// runs it. A binding is never mutated once built; handles share it.
type Binding struct {
	name     string
	sig      Signature
	action   Func
	done     Func
	proc     Processor
	inverted bool
	kind     Kind
}

// Option tweaks a binding while it is being built.
type Option func(*bindOpts)

type bindOpts struct {
	inverted bool
}

// WithInversion reports the command done exactly while its predicate is
// false, for operations of the form "block while the condition holds".
func WithInversion() Option {
	return func(o *bindOpts) { o.inverted = true }
}

func applyOpts(opts []Option) bindOpts {
	var o bindOpts
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// NewN builds a binding of any arity. A nil done completes the command as
// soon as its action has run; inversion has nothing to invert then and is
// ignored.
func NewN(name string, proc Processor, sig Signature, action, done Func, opts ...Option) *Binding {
	if name == "" || action == nil {
		panic("command: name and action required")
	}
	o := applyOpts(opts)
	if done == nil {
		done, o.inverted = always, false
	}
	return &Binding{
		name:     name,
		sig:      Sig(sig.Args...),
		action:   action,
		done:     done,
		proc:     proc,
		inverted: o.inverted,
		kind:     KindLocal,
	}
}

// NewProxy builds a forwarding binding for transports. Proxies can be kept
// as simple commands but never published through a factory.
func NewProxy(name string, proc Processor, sig Signature, action, done Func, opts ...Option) *Binding {
	b := NewN(name, proc, sig, action, done, opts...)
	b.kind = KindRemote
	return b
}

func New0(name string, proc Processor, action func() bool, done func() bool, opts ...Option) *Binding {
	return NewN(name, proc, Sig(),
		func([]any) bool { return action() },
		erase0(done), opts...)
}

func New1[A any](name string, proc Processor, action func(A) bool, done func(A) bool, opts ...Option) *Binding {
	return NewN(name, proc, Sig(value.TypeOf[A]()),
		func(a []any) bool { return action(arg[A](a, 0)) },
		erase1(done), opts...)
}

func New2[A, B any](name string, proc Processor, action func(A, B) bool, done func(A, B) bool, opts ...Option) *Binding {
	return NewN(name, proc, Sig(value.TypeOf[A](), value.TypeOf[B]()),
		func(a []any) bool { return action(arg[A](a, 0), arg[B](a, 1)) },
		erase2(done), opts...)
}

func New3[A, B, C any](name string, proc Processor, action func(A, B, C) bool, done func(A, B, C) bool, opts ...Option) *Binding {
	return NewN(name, proc, Sig(value.TypeOf[A](), value.TypeOf[B](), value.TypeOf[C]()),
		func(a []any) bool { return action(arg[A](a, 0), arg[B](a, 1), arg[C](a, 2)) },
		erase3(done), opts...)
}

func New4[A, B, C, D any](name string, proc Processor, action func(A, B, C, D) bool, done func(A, B, C, D) bool, opts ...Option) *Binding {
	return NewN(name, proc, Sig(value.TypeOf[A](), value.TypeOf[B](), value.TypeOf[C](), value.TypeOf[D]()),
		func(a []any) bool { return action(arg[A](a, 0), arg[B](a, 1), arg[C](a, 2), arg[D](a, 3)) },
		erase4(done), opts...)
}

func (b *Binding) Name() string         { return b.name }
func (b *Binding) Signature() Signature { return Sig(b.sig.Args...) }
func (b *Binding) Inverted() bool       { return b.inverted }
func (b *Binding) Kind() Kind           { return b.kind }
func (b *Binding) Processor() Processor { return b.proc }

// Bind produces a handle for args after checking them against the signature.
func (b *Binding) Bind(args ...value.Value) (Handle, error) {
	if err := b.sig.Check(args); err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	return newDispatch(b, args), nil
}

// clone returns an independent copy sharing the same functions.
func (b *Binding) clone() *Binding {
	c := *b
	c.sig = Sig(b.sig.Args...)
	return &c
}

// source is what a handle dispatches through: a fixed binding or a weak one.
type source interface {
	commandName() string
	signature() Signature
	processor() Processor
	isInverted() bool
	resolve() (*resolved, error)
}

// resolved is a source pinned to one target for the lifetime of a dispatch.
type resolved struct {
	action func(args []any) (bool, error)
	done   func(args []any) (bool, error)
}

func (b *Binding) commandName() string  { return b.name }
func (b *Binding) signature() Signature { return b.sig }
func (b *Binding) processor() Processor { return b.proc }
func (b *Binding) isInverted() bool     { return b.inverted }

func (b *Binding) resolve() (*resolved, error) {
	return &resolved{
		action: func(a []any) (bool, error) { return b.action(a), nil },
		done:   func(a []any) (bool, error) { return b.done(a), nil },
	}, nil
}

func always([]any) bool { return true }

// arg reads position i as an A. A nil interface argument yields the zero A.
func arg[A any](args []any, i int) A {
	v, _ := args[i].(A)
	return v
}

func erase0(fn func() bool) Func {
	if fn == nil {
		return nil
	}
	return func([]any) bool { return fn() }
}

func erase1[A any](fn func(A) bool) Func {
	if fn == nil {
		return nil
	}
	return func(a []any) bool { return fn(arg[A](a, 0)) }
}

func erase2[A, B any](fn func(A, B) bool) Func {
	if fn == nil {
		return nil
	}
	return func(a []any) bool { return fn(arg[A](a, 0), arg[B](a, 1)) }
}

func erase3[A, B, C any](fn func(A, B, C) bool) Func {
	if fn == nil {
		return nil
	}
	return func(a []any) bool { return fn(arg[A](a, 0), arg[B](a, 1), arg[C](a, 2)) }
}

func erase4[A, B, C, D any](fn func(A, B, C, D) bool) Func {
	if fn == nil {
		return nil
	}
	return func(a []any) bool { return fn(arg[A](a, 0), arg[B](a, 1), arg[C](a, 2), arg[D](a, 3)) }
}
