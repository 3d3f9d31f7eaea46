package remote

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/joeydtaylor/steeze-command/pkg/codec"
	"github.com/joeydtaylor/steeze-command/pkg/command"
	"github.com/joeydtaylor/steeze-command/pkg/core"
	"github.com/joeydtaylor/steeze-command/pkg/value"
	"go.uber.org/zap"
)

// Proxy is a remote command prototype.
type Proxy struct {
	c    *Client
	name string
	sig  command.Signature
}

func (p *Proxy) Name() string                 { return p.name }
func (p *Proxy) Signature() command.Signature { return command.Sig(p.sig.Args...) }

func (p *Proxy) Bind(args ...value.Value) (command.Handle, error) {
	if err := p.sig.Check(args); err != nil {
		return nil, fmt.Errorf("%s: %w", p.name, err)
	}
	return newHandle(p, args), nil
}

type handle struct {
	p     *Proxy
	args  []value.Value
	state atomic.Int32
	// accepted is set once the peer queued the action.
	accepted atomic.Bool

	mu  sync.Mutex
	id  string
	err error
}

func newHandle(p *Proxy, args []value.Value) *handle {
	return &handle{p: p, args: append([]value.Value(nil), args...)}
}

func (h *handle) Name() string                 { return h.p.name }
func (h *handle) Args() []value.Value          { return append([]value.Value(nil), h.args...) }
func (h *handle) State() command.State         { return command.State(h.state.Load()) }
func (h *handle) Clone() command.Handle        { return newHandle(h.p, h.args) }
func (h *handle) Condition() command.Condition { return &condition{h: h} }

func (h *handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// ID returns the peer's dispatch ticket, empty until submitted.
func (h *handle) ID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id
}

func (h *handle) fail(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	h.state.Store(int32(command.Failed))
}

// Submit posts the current argument values. A peer that cannot be reached
// counts as a rejecting processor.
func (h *handle) Submit() error {
	if !h.state.CompareAndSwap(int32(command.Created), int32(command.Dispatched)) {
		return fmt.Errorf("%s: %w (state %s)", h.Name(), command.ErrAlreadyDispatched, h.State())
	}
	raw, err := codec.EncodeArgs(h.args)
	if err != nil {
		err = fmt.Errorf("%s: %w: %v", h.Name(), command.ErrInvalidArguments, err)
		h.fail(err)
		return err
	}

	c := h.p.c
	ctx, cancel := c.ctx()
	defer cancel()
	var d core.Dispatch
	err = c.do(ctx, http.MethodPost, c.endpoint("components", c.component, "commands", h.p.name), core.InvokeRequest{Args: raw}, &d)
	if err != nil {
		if unreachable(err) {
			err = fmt.Errorf("%s: %w: %v", h.Name(), command.ErrProcessorRejected, err)
		} else {
			err = fmt.Errorf("%s: %w", h.Name(), err)
		}
		h.fail(err)
		return err
	}
	h.mu.Lock()
	h.id = d.ID
	h.mu.Unlock()
	if d.State != command.Failed.String() {
		h.accepted.Store(true)
	}
	h.apply(d)
	return nil
}

// Evaluate polls the ticket while the handle is in flight. Transport errors
// leave the state as it was.
func (h *handle) Evaluate() command.State {
	st := h.State()
	if st != command.Dispatched && st != command.Pending && st != command.Done {
		return st
	}
	id := h.ID()
	if id == "" {
		return st
	}
	c := h.p.c
	ctx, cancel := c.ctx()
	defer cancel()
	var d core.Dispatch
	if err := c.do(ctx, http.MethodGet, c.endpoint("dispatches", id), nil, &d); err != nil {
		if unreachable(err) {
			c.log.Debug("dispatch poll failed", zap.String("id", id), zap.Error(err))
			return st
		}
		h.fail(fmt.Errorf("%s: %w", h.Name(), err))
		return command.Failed
	}
	h.apply(d)
	return h.State()
}

func (h *handle) apply(d core.Dispatch) {
	st, ok := command.ParseState(d.State)
	if !ok {
		return
	}
	if st == command.Failed {
		err := core.ErrorForCode(d.Code)
		if err == nil {
			err = fmt.Errorf("remote: %s", d.Error)
		} else {
			err = fmt.Errorf("%s: %w: %s", h.Name(), err, d.Error)
		}
		h.fail(err)
		return
	}
	h.state.Store(int32(st))
}

// Reset returns a handle that failed before the peer accepted it to Created
// and drops its ticket on the peer.
func (h *handle) Reset() error {
	switch st := h.State(); {
	case st == command.Created:
		return nil
	case st == command.Failed && h.accepted.Load():
		return fmt.Errorf("%s: %w (accepted by peer)", h.Name(), command.ErrAlreadyDispatched)
	case st == command.Failed:
	default:
		return fmt.Errorf("%s: %w (state %s)", h.Name(), command.ErrAlreadyDispatched, st)
	}
	h.mu.Lock()
	id := h.id
	h.id, h.err = "", nil
	h.mu.Unlock()
	if id != "" {
		c := h.p.c
		ctx, cancel := c.ctx()
		_ = c.do(ctx, http.MethodDelete, c.endpoint("dispatches", id), nil, nil)
		cancel()
	}
	h.state.Store(int32(command.Created))
	return nil
}

type condition struct{ h *handle }

func (c *condition) Evaluate() bool           { return c.h.Evaluate() == command.Done }
func (c *condition) Inverted() bool           { return false }
func (c *condition) Clone() command.Condition { return &condition{h: c.h} }
