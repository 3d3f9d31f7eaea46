package component

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-command/pkg/command"
	"github.com/joeydtaylor/steeze-command/pkg/value"
)

func TestCloseDrainsAndClears(t *testing.T) {
	c, err := New(Config{Name: "arm", Period: time.Hour})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	total := 0
	b := command.New1("add", c.Processor(), func(n int) bool { total += n; return true }, nil)
	if err := c.Commands().AddCommand(b, "adds", command.Arg("n", "")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	h, err := c.Commands().GetCommand("add", value.Of(3))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := h.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	c.Close()
	c.Close()

	if total != 3 {
		t.Fatalf("total = %d, accepted action must run on close", total)
	}
	if h.Evaluate() != command.Done {
		t.Fatalf("state = %s", h.State())
	}
	if c.Commands().HasMember("add") {
		t.Fatal("repository must be cleared on close")
	}

	late := h.Clone()
	if err := late.Submit(); !errors.Is(err, command.ErrProcessorRejected) {
		t.Fatalf("expected ErrProcessorRejected after close, got %v", err)
	}
}

func TestPeers(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty name")
	}
	peers := NewPeers()
	for _, n := range []string{"wrist", "base"} {
		c, _ := New(Config{Name: n})
		if err := peers.Add(c); err != nil {
			t.Fatalf("add %s: %v", n, err)
		}
	}
	dup, _ := New(Config{Name: "base"})
	if err := peers.Add(dup); err == nil {
		t.Fatal("expected duplicate component error")
	}
	names := peers.Names()
	if len(names) != 2 || names[0] != "base" || names[1] != "wrist" {
		t.Fatalf("names = %v", names)
	}
	if err := peers.StartAll(context.Background()); err != nil {
		t.Fatalf("start all: %v", err)
	}
	peers.CloseAll()
	if _, ok := peers.Get("base"); ok {
		t.Fatal("CloseAll must empty the directory")
	}
}
