package script

import (
	"github.com/Shopify/go-lua"
	"github.com/joeydtaylor/steeze-command/pkg/codec"
	"github.com/joeydtaylor/steeze-command/pkg/command"
)

func pushRepository(state *lua.State, repo *command.Repository) {
	state.PushUserData(repo)
	lua.SetMetaTableNamed(state, repoTypeName)
}

func checkRepository(state *lua.State) *command.Repository {
	ud := lua.CheckUserData(state, 1, repoTypeName)
	if repo, ok := ud.(*command.Repository); ok && repo != nil {
		return repo
	}
	lua.ArgumentError(state, 1, "repository expected")
	return nil
}

func (r *run) repositoryMethods() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		{Name: "get", Function: r.get},
		{Name: "has", Function: repoHas},
		{Name: "list", Function: repoList},
		{Name: "describe", Function: repoDescribe},
		{Name: "sleep", Function: func(state *lua.State) int {
			checkRepository(state)
			return r.pause(state, lua.CheckInteger(state, 2))
		}},
	}
}

// repo:get(name, ...) binds the remaining arguments into a Created handle.
func (r *run) get(state *lua.State) int {
	repo := checkRepository(state)
	name := lua.CheckString(state, 2)
	f, ok := repo.Factory(name)
	if !ok {
		lua.Errorf(state, "command %q not found", name)
		return 0
	}
	raw := make([]any, 0, state.Top()-2)
	for i := 3; i <= state.Top(); i++ {
		raw = append(raw, luaToGo(state, i))
	}
	args, err := codec.DecodeArgs(codec.JSONStrict, f.Signature().Args, raw)
	if err != nil {
		lua.Errorf(state, "%s: %s", name, err.Error())
		return 0
	}
	h, err := f.Produce(args)
	if err != nil {
		lua.Errorf(state, "%s", err.Error())
		return 0
	}
	pushHandle(state, h)
	return 1
}

func repoHas(state *lua.State) int {
	repo := checkRepository(state)
	state.PushBoolean(repo.HasMember(lua.CheckString(state, 2)))
	return 1
}

func repoList(state *lua.State) int {
	repo := checkRepository(state)
	state.NewTable()
	for i, n := range repo.Names() {
		state.PushString(n)
		state.RawSetInt(-2, i+1)
	}
	return 1
}

func repoDescribe(state *lua.State) int {
	repo := checkRepository(state)
	d, ok := repo.Describe(lua.CheckString(state, 2))
	if !ok {
		state.PushNil()
		return 1
	}
	state.NewTable()
	state.PushString(d.Name)
	state.SetField(-2, "name")
	state.PushString(d.Description)
	state.SetField(-2, "description")
	state.NewTable()
	for i, a := range d.Args {
		state.NewTable()
		state.PushString(a.Name)
		state.SetField(-2, "name")
		state.PushString(a.Description)
		state.SetField(-2, "description")
		state.PushString(a.Type)
		state.SetField(-2, "type")
		state.RawSetInt(-2, i+1)
	}
	state.SetField(-2, "args")
	return 1
}
