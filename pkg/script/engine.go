// Package script runs Lua against the command repositories of a component
// set. A script drives commands from outside any processor: it produces
// handles, submits them and polls their completion.
package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shopify/go-lua"
	"github.com/joeydtaylor/steeze-command/pkg/component"
	"go.uber.org/zap"
)

const (
	repoTypeName   = "steeze.repository"
	handleTypeName = "steeze.handle"
)

type Engine struct {
	peers *component.Peers
	log   *zap.Logger
	poll  time.Duration
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithPollInterval sets how often wait() re-evaluates a handle.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.poll = d
		}
	}
}

func New(peers *component.Peers, opts ...Option) *Engine {
	e := &Engine{peers: peers, log: zap.NewNop(), poll: time.Millisecond}
	for _, o := range opts {
		if o != nil {
			o(e)
		}
	}
	return e
}

// RunFile executes the script at path with `commands` bound to comp.
func (e *Engine) RunFile(ctx context.Context, comp, path string) error {
	return e.run(ctx, comp, path, func(state *lua.State) error {
		return lua.LoadFile(state, path, "")
	})
}

// RunString executes src with `commands` bound to comp.
func (e *Engine) RunString(ctx context.Context, comp, src string) error {
	return e.run(ctx, comp, "string", func(state *lua.State) error {
		return lua.LoadString(state, src)
	})
}

func (e *Engine) run(ctx context.Context, comp, name string, load func(*lua.State) error) error {
	c, ok := e.peers.Get(comp)
	if !ok {
		return fmt.Errorf("script %s: component %q not found", name, comp)
	}
	r := &run{ctx: ctx, e: e}

	state := lua.NewState()
	lua.OpenLibraries(state)
	r.register(state)
	pushRepository(state, c.Commands())
	state.SetGlobal("commands")

	if err := load(state); err != nil {
		return fmt.Errorf("script %s: load: %w", name, err)
	}
	start := time.Now()
	if err := state.ProtectedCall(0, 0, 0); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("script %s: %w", name, ctx.Err())
		}
		return fmt.Errorf("script %s: %w", name, err)
	}
	e.log.Info("script finished", zap.String("script", name), zap.String("component", comp), zap.Duration("took", time.Since(start)))
	return nil
}

// run carries what the Lua callbacks of one execution need.
type run struct {
	ctx context.Context
	e   *Engine
}

var errCancelled = errors.New("script cancelled")

func (r *run) register(state *lua.State) {
	lua.NewMetaTable(state, repoTypeName)
	state.NewTable()
	lua.SetFunctions(state, r.repositoryMethods(), 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	lua.NewMetaTable(state, handleTypeName)
	state.NewTable()
	lua.SetFunctions(state, r.handleMethods(), 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.PushGoFunction(r.component)
	state.SetGlobal("component")
	state.PushGoFunction(r.sleep)
	state.SetGlobal("sleep")
}

// sleep(ms) pauses the script; it raises once the run is cancelled.
func (r *run) sleep(state *lua.State) int { return r.pause(state, lua.CheckInteger(state, 1)) }

func (r *run) pause(state *lua.State, ms int) int {
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-r.ctx.Done():
		lua.Errorf(state, "%s", errCancelled.Error())
	case <-t.C:
	}
	return 0
}

// component(name) returns another peer's repository.
func (r *run) component(state *lua.State) int {
	name := lua.CheckString(state, 1)
	c, ok := r.e.peers.Get(name)
	if !ok {
		lua.Errorf(state, "component %q not found", name)
		return 0
	}
	pushRepository(state, c.Commands())
	return 1
}
