package command

import (
	"fmt"
	"strings"

	"github.com/joeydtaylor/steeze-command/pkg/value"
)

// Signature is the ordered list of argument types a command accepts. The
// completion result is always a bool.
type Signature struct {
	Args []value.Type
}

// Sig builds a signature from argument descriptors.
func Sig(args ...value.Type) Signature {
	return Signature{Args: append([]value.Type(nil), args...)}
}

func (s Signature) Arity() int { return len(s.Args) }

// Equal compares descriptors position by position.
func (s Signature) Equal(o Signature) bool {
	if len(s.Args) != len(o.Args) {
		return false
	}
	for i := range s.Args {
		if s.Args[i] != o.Args[i] {
			return false
		}
	}
	return true
}

// Check validates args against s: first the count, then each position.
func (s Signature) Check(args []value.Value) error {
	if len(args) != len(s.Args) {
		return fmt.Errorf("%w: want %d arguments, got %d", ErrInvalidArguments, len(s.Args), len(args))
	}
	for i, a := range args {
		if a == nil {
			return fmt.Errorf("%w: argument %d is nil", ErrInvalidArguments, i)
		}
		if a.Type() != s.Args[i] {
			return fmt.Errorf("%w: argument %d is %s, want %s", ErrInvalidArguments, i, a.Type(), s.Args[i])
		}
	}
	return nil
}

func (s Signature) String() string {
	parts := make([]string, len(s.Args))
	for i, t := range s.Args {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, ", ") + ") bool"
}
