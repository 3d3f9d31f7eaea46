package command

import "github.com/joeydtaylor/steeze-command/pkg/value"

// Command0..Command4 wrap an Invoker found by a statically typed lookup so
// callers bind Go values instead of value.Value lists.

type Command0 struct{ Invoker }

func (c Command0) With() (Handle, error) { return c.Bind() }

// Call binds and submits in one step.
func (c Command0) Call() (Handle, error) { return submitted(c.With()) }

type Command1[A any] struct{ Invoker }

func (c Command1[A]) With(a A) (Handle, error) { return c.Bind(value.Of(a)) }
func (c Command1[A]) Call(a A) (Handle, error) { return submitted(c.With(a)) }

type Command2[A, B any] struct{ Invoker }

func (c Command2[A, B]) With(a A, b B) (Handle, error) {
	return c.Bind(value.Of(a), value.Of(b))
}
func (c Command2[A, B]) Call(a A, b B) (Handle, error) { return submitted(c.With(a, b)) }

type Command3[A, B, C any] struct{ Invoker }

func (c Command3[A, B, C]) With(a A, b B, cc C) (Handle, error) {
	return c.Bind(value.Of(a), value.Of(b), value.Of(cc))
}
func (c Command3[A, B, C]) Call(a A, b B, cc C) (Handle, error) {
	return submitted(c.With(a, b, cc))
}

type Command4[A, B, C, D any] struct{ Invoker }

func (c Command4[A, B, C, D]) With(a A, b B, cc C, d D) (Handle, error) {
	return c.Bind(value.Of(a), value.Of(b), value.Of(cc), value.Of(d))
}
func (c Command4[A, B, C, D]) Call(a A, b B, cc C, d D) (Handle, error) {
	return submitted(c.With(a, b, cc, d))
}

func Get0(r *Repository, name string) (Command0, error) {
	inv, err := r.Command(name, Sig())
	return Command0{inv}, err
}

func Get1[A any](r *Repository, name string) (Command1[A], error) {
	inv, err := r.Command(name, Sig(value.TypeOf[A]()))
	return Command1[A]{inv}, err
}

func Get2[A, B any](r *Repository, name string) (Command2[A, B], error) {
	inv, err := r.Command(name, Sig(value.TypeOf[A](), value.TypeOf[B]()))
	return Command2[A, B]{inv}, err
}

func Get3[A, B, C any](r *Repository, name string) (Command3[A, B, C], error) {
	inv, err := r.Command(name, Sig(value.TypeOf[A](), value.TypeOf[B](), value.TypeOf[C]()))
	return Command3[A, B, C]{inv}, err
}

func Get4[A, B, C, D any](r *Repository, name string) (Command4[A, B, C, D], error) {
	inv, err := r.Command(name, Sig(value.TypeOf[A](), value.TypeOf[B](), value.TypeOf[C](), value.TypeOf[D]()))
	return Command4[A, B, C, D]{inv}, err
}

func submitted(h Handle, err error) (Handle, error) {
	if err != nil {
		return nil, err
	}
	if err := h.Submit(); err != nil {
		return h, err
	}
	return h, nil
}
