package config

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxLuaVM removes everything that reaches outside the VM: the os, io
// and debug libraries and every way of loading more code. string, table and
// math stay, as do the basic functions (type, tostring, pairs, ...).
func sandboxLuaVM(L *lua.LState) {
	for _, name := range []string{
		"os",
		"io",
		"debug",
		"require",
		"dofile",
		"loadfile",
		"load",
		"loadstring",
		"module",
		"package",
	} {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a Lua VM with the sandbox applied. Settings files
// are tiny, so the call stack and registry are kept small.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{
		CallStackSize: 256,
		RegistrySize:  1024 * 8,
	})
	sandboxLuaVM(L)
	return L
}
