package main

import (
	"sync"

	"github.com/joeydtaylor/steeze-command/pkg/command"
	"github.com/joeydtaylor/steeze-command/pkg/component"
)

// counter is the demo state. Actions mutate it on the processor; predicates
// read it from whichever goroutine evaluates the handle.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) add(n int) {
	c.mu.Lock()
	c.n += n
	c.mu.Unlock()
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func installCounter(comp *component.Component) error {
	ctr := &counter{}
	return registerCounter(comp, ctr)
}

func registerCounter(comp *component.Component, ctr *counter) error {
	repo, proc := comp.Commands(), comp.Processor()

	if err := repo.AddCommand(command.New1("increment", proc, func(n int) bool {
		ctr.add(n)
		return true
	}, nil), "adds n to the counter", command.Arg("n", "amount to add")); err != nil {
		return err
	}
	if err := repo.AddCommand(command.New1("reach", proc, func(int) bool { return true }, func(target int) bool {
		return ctr.get() >= target
	}), "completes once the counter reaches target", command.Arg("target", "value to wait for")); err != nil {
		return err
	}
	return repo.AddCommand(command.New0("reset", proc, func() bool {
		ctr.mu.Lock()
		ctr.n = 0
		ctr.mu.Unlock()
		return true
	}, func() bool { return ctr.get() == 0 }), "sets the counter to zero")
}
