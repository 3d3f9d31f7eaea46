package core

import (
	"errors"
	"net/http"

	"github.com/joeydtaylor/steeze-command/pkg/command"
)

// InvokeRequest is the body of POST /components/{c}/commands/{name}.
type InvokeRequest struct {
	Args []any `json:"args" cbor:"args"`
}

// Dispatch reports a remote handle. Code and Error are set once it failed.
type Dispatch struct {
	ID        string `json:"id" cbor:"id"`
	Component string `json:"component" cbor:"component"`
	Command   string `json:"command" cbor:"command"`
	State     string `json:"state" cbor:"state"`
	Code      string `json:"code,omitempty" cbor:"code,omitempty"`
	Error     string `json:"error,omitempty" cbor:"error,omitempty"`
}

type ComponentList struct {
	Components []string `json:"components" cbor:"components"`
}

type ErrorBody struct {
	Code  string `json:"code" cbor:"code"`
	Error string `json:"error" cbor:"error"`
}

type errorMapping struct {
	err    error
	code   string
	status int
}

var errorTable = []errorMapping{
	{command.ErrNotFound, "not_found", http.StatusNotFound},
	{command.ErrDuplicateName, "duplicate_name", http.StatusConflict},
	{command.ErrAlreadyDispatched, "already_dispatched", http.StatusConflict},
	{command.ErrInvalidArguments, "invalid_arguments", http.StatusBadRequest},
	{command.ErrTargetExpired, "target_expired", http.StatusGone},
	{command.ErrProcessorRejected, "processor_rejected", http.StatusServiceUnavailable},
	{command.ErrUnsupportedBindingKind, "unsupported_binding_kind", http.StatusUnprocessableEntity},
	{command.ErrActionFailed, "action_failed", http.StatusUnprocessableEntity},
	{command.ErrActionPanicked, "action_panicked", http.StatusUnprocessableEntity},
	{ErrNoRelay, "no_relay", http.StatusServiceUnavailable},
}

// ErrorCode maps err onto its wire code and HTTP status.
func ErrorCode(err error) (string, int) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.code, m.status
		}
	}
	return "internal", http.StatusInternalServerError
}

// ErrorForCode is the inverse of ErrorCode; unknown codes yield nil.
func ErrorForCode(code string) error {
	for _, m := range errorTable {
		if m.code == code {
			return m.err
		}
	}
	return nil
}
