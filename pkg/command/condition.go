package command

import (
	"context"
	"fmt"
	"time"

	"github.com/joeydtaylor/steeze-command/pkg/value"
)

// Condition is the re-evaluable completion predicate of a command bound to
// concrete arguments. Evaluate reports false whenever the predicate cannot
// be evaluated, for instance because a weak target was released.
type Condition interface {
	Evaluate() bool
	Inverted() bool
	Clone() Condition
}

type condition struct {
	src  source
	args []value.Value
	// pin is the target the handle was dispatched against; nil means the
	// source is resolved afresh on every evaluation.
	pin *resolved
}

func (c *condition) Inverted() bool { return c.src.isInverted() }

func (c *condition) Evaluate() bool {
	r := c.pin
	if r == nil {
		var err error
		if r, err = c.src.resolve(); err != nil {
			return false
		}
	}
	done, err := evaluate(r, c.args, c.src.isInverted())
	return err == nil && done
}

func (c *condition) Clone() Condition {
	cp := *c
	return &cp
}

// Wait polls h until it is Done or Failed, or ctx ends. It returns the
// handle's error on Failed and ctx.Err() on cancellation.
func Wait(ctx context.Context, h Handle, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		switch h.Evaluate() {
		case Done:
			return nil
		case Failed:
			if err := h.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%s: failed", h.Name())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// WaitCondition polls c until it holds or ctx ends.
func WaitCondition(ctx context.Context, c Condition, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for !c.Evaluate() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}
