package core

import (
	"context"
	"errors"
)

// Invocation is a fire-and-forget command call carried over a relay.
type Invocation struct {
	ID        string            `json:"id" cbor:"id"`
	Component string            `json:"component" cbor:"component"`
	Command   string            `json:"command" cbor:"command"`
	Args      []any             `json:"args" cbor:"args"`
	Headers   map[string]string `json:"headers,omitempty" cbor:"headers,omitempty"`
}

// RelayPublisher sends invocations to peers. Completion is not reported
// back.
type RelayPublisher interface {
	Publish(ctx context.Context, inv Invocation) error
}

type NoopRelay struct{}

func (NoopRelay) Publish(context.Context, Invocation) error { return ErrNoRelay }

var ErrNoRelay = errors.New("relay: no publisher configured")
