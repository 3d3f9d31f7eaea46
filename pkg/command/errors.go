package command

import "errors"

var (
	// ErrNotFound: no command is registered under the requested name.
	ErrNotFound = errors.New("command: not found")
	// ErrDuplicateName: the name is already taken in either repository map.
	ErrDuplicateName = errors.New("command: duplicate name")
	// ErrInvalidArguments: argument count or type does not match the signature.
	ErrInvalidArguments = errors.New("command: invalid arguments")
	// ErrUnsupportedBindingKind: a non-local binding went through the native path.
	ErrUnsupportedBindingKind = errors.New("command: unsupported binding kind")
	// ErrTargetExpired: the weak target was released before or during dispatch.
	ErrTargetExpired = errors.New("command: target expired")
	// ErrAlreadyDispatched: the handle is past the state the call requires.
	ErrAlreadyDispatched = errors.New("command: already dispatched")
	// ErrProcessorRejected: the owning processor refused the action.
	ErrProcessorRejected = errors.New("command: processor rejected submission")
	// ErrActionFailed: the action ran and reported failure.
	ErrActionFailed = errors.New("command: action failed")
	// ErrActionPanicked: the action panicked; the processor recovered.
	ErrActionPanicked = errors.New("command: action panicked")
)
