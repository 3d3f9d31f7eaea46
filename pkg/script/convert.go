package script

import (
	"math"

	"github.com/Shopify/go-lua"
)

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		v, _ := state.ToString(index)
		return v
	case lua.TypeNumber:
		v, _ := state.ToNumber(index)
		if math.Mod(v, 1) == 0 && math.Abs(v) < 1<<53 {
			return int64(v)
		}
		return v
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// tableToGo returns a sequence as []any and anything else as a string-keyed
// map.
func tableToGo(state *lua.State, index int) any {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex, count := 0, 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if idx, ok := state.ToInteger(-2); ok && state.TypeOf(-2) == lua.TypeNumber && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		out := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			out = append(out, luaToGo(state, -1))
			state.Pop(1)
		}
		return out
	}

	out := map[string]any{}
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			k, _ := state.ToString(-2)
			out[k] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return out
}
