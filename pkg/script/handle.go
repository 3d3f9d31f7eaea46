package script

import (
	"context"
	"time"

	"github.com/Shopify/go-lua"
	"github.com/joeydtaylor/steeze-command/pkg/command"
)

type handleRef struct{ h command.Handle }

func pushHandle(state *lua.State, h command.Handle) {
	state.PushUserData(&handleRef{h: h})
	lua.SetMetaTableNamed(state, handleTypeName)
}

func checkHandle(state *lua.State) command.Handle {
	ud := lua.CheckUserData(state, 1, handleTypeName)
	if ref, ok := ud.(*handleRef); ok && ref != nil {
		return ref.h
	}
	lua.ArgumentError(state, 1, "command handle expected")
	return nil
}

// pushResult follows the Lua convention: true, or nil and a message.
func pushResult(state *lua.State, err error) int {
	if err == nil {
		state.PushBoolean(true)
		return 1
	}
	state.PushNil()
	state.PushString(err.Error())
	return 2
}

func (r *run) handleMethods() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		{Name: "submit", Function: handleSubmit},
		{Name: "done", Function: handleDone},
		{Name: "state", Function: handleState},
		{Name: "err", Function: handleErr},
		{Name: "reset", Function: handleReset},
		{Name: "clone", Function: handleClone},
		{Name: "wait", Function: r.wait},
	}
}

func handleSubmit(state *lua.State) int { return pushResult(state, checkHandle(state).Submit()) }
func handleReset(state *lua.State) int  { return pushResult(state, checkHandle(state).Reset()) }

func handleDone(state *lua.State) int {
	state.PushBoolean(checkHandle(state).Evaluate() == command.Done)
	return 1
}

func handleState(state *lua.State) int {
	state.PushString(checkHandle(state).State().String())
	return 1
}

func handleErr(state *lua.State) int {
	if err := checkHandle(state).Err(); err != nil {
		state.PushString(err.Error())
	} else {
		state.PushNil()
	}
	return 1
}

func handleClone(state *lua.State) int {
	pushHandle(state, checkHandle(state).Clone())
	return 1
}

// h:wait([timeout_ms]) blocks until the handle is Done or Failed.
func (r *run) wait(state *lua.State) int {
	h := checkHandle(state)
	ctx := r.ctx
	if ms := lua.OptInteger(state, 2, 0); ms > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
		defer cancel()
	}
	return pushResult(state, command.Wait(ctx, h, r.e.poll))
}
