package command

import (
	"fmt"

	"github.com/joeydtaylor/steeze-command/pkg/value"
)

// ArgMeta documents one argument for help and introspection surfaces.
type ArgMeta struct {
	Name        string
	Description string
}

// Arg is shorthand for ArgMeta{name, description}.
func Arg(name, description string) ArgMeta {
	return ArgMeta{Name: name, Description: description}
}

// Factory produces handles for one registered name from dynamically typed
// argument lists.
type Factory struct {
	name        string
	description string
	args        []ArgMeta
	proto       source
}

func newFactory(proto source, description string, args []ArgMeta) (*Factory, error) {
	if len(args) != proto.signature().Arity() {
		return nil, fmt.Errorf("%s: %w: %d argument descriptions for arity %d",
			proto.commandName(), ErrInvalidArguments, len(args), proto.signature().Arity())
	}
	return &Factory{
		name:        proto.commandName(),
		description: description,
		args:        append([]ArgMeta(nil), args...),
		proto:       proto,
	}, nil
}

func (f *Factory) Name() string         { return f.name }
func (f *Factory) Description() string  { return f.description }
func (f *Factory) Args() []ArgMeta      { return append([]ArgMeta(nil), f.args...) }
func (f *Factory) Signature() Signature { return Sig(f.proto.signature().Args...) }

// Produce validates args and returns a new Created handle. Nothing is built
// when validation fails.
func (f *Factory) Produce(args []value.Value) (Handle, error) {
	if err := f.proto.signature().Check(args); err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	return newDispatch(f.proto, args), nil
}

// Description is an introspection snapshot of one factory.
type Description struct {
	Name        string           `json:"name" cbor:"name"`
	Description string           `json:"description" cbor:"description"`
	Args        []ArgDescription `json:"args" cbor:"args"`
}

type ArgDescription struct {
	Name        string `json:"name" cbor:"name"`
	Description string `json:"description" cbor:"description"`
	Type        string `json:"type" cbor:"type"`
}

func (f *Factory) describe() Description {
	sig := f.proto.signature()
	d := Description{Name: f.name, Description: f.description, Args: make([]ArgDescription, len(f.args))}
	for i, a := range f.args {
		d.Args[i] = ArgDescription{Name: a.Name, Description: a.Description, Type: sig.Args[i].String()}
	}
	return d
}
