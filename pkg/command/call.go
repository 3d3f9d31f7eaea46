package command

import (
	"fmt"
	"sync"

	"github.com/joeydtaylor/steeze-command/pkg/value"
)

// Call collects arguments one at a time before producing and submitting a
// handle, for callers such as script engines that build argument lists
// incrementally. Errors surface on Execute.
type Call struct {
	repo *Repository
	name string

	mu       sync.Mutex
	args     []value.Value
	h        Handle
	err      error
	sent     bool
	accepted bool
}

// Create starts a Call for name. The name is resolved on Execute.
func (r *Repository) Create(name string) *Call {
	return &Call{repo: r, name: name}
}

func (c *Call) Name() string { return c.name }

// Arg appends one argument.
func (c *Call) Arg(v value.Value) *Call {
	c.mu.Lock()
	c.args = append(c.args, v)
	c.mu.Unlock()
	return c
}

// Execute produces a handle from the collected arguments and submits it.
// A Call executes at most once until Reset.
func (c *Call) Execute() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent {
		return fmt.Errorf("%s: %w", c.name, ErrAlreadyDispatched)
	}
	c.sent = true
	h, err := c.repo.GetCommand(c.name, c.args...)
	if err != nil {
		c.err = err
		return err
	}
	c.h = h
	if err := h.Submit(); err != nil {
		c.err = err
		return err
	}
	c.accepted = true
	return nil
}

// Sent reports whether Execute was called.
func (c *Call) Sent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// Accepted reports whether the processor took the action.
func (c *Call) Accepted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accepted
}

// Executed reports whether the action has run successfully.
func (c *Call) Executed() bool {
	h := c.handle()
	if h == nil {
		return false
	}
	s := h.State()
	return s == Pending || s == Done
}

// Done evaluates completion.
func (c *Call) Done() bool {
	h := c.handle()
	return h != nil && h.Evaluate() == Done
}

// Err returns the lookup, submission or execution error, if any.
func (c *Call) Err() error {
	c.mu.Lock()
	err, h := c.err, c.h
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if h != nil {
		return h.Err()
	}
	return nil
}

// Reset discards the handle so the Call can execute again with the same
// arguments. Resetting while the action is in flight fails.
func (c *Call) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.h != nil {
		if s := c.h.State(); s == Dispatched {
			return fmt.Errorf("%s: %w", c.name, ErrAlreadyDispatched)
		}
	}
	c.h, c.err, c.sent, c.accepted = nil, nil, false, false
	return nil
}

func (c *Call) handle() Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.h
}
