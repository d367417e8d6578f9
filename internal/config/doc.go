// Package config loads govem settings.
//
// Settings come from three layers, later layers winning:
//   - defaults derived from the XDG base directories
//   - an optional Lua file, config_root/config.lua
//   - GOVEM_* environment variables
//
// # Settings File
//
// The Lua file assigns a global govem table. A read-only platform table is
// injected before the file runs, so settings can depend on the host:
//
//	govem = {
//	    mirror = "https://downloads.tuxfamily.org/godotengine/",
//	    data_dir = platform.is_arm64 and "~/godot-arm" or nil,
//	    catalog_ttl = 6 * 60 * 60,
//	    desktop_entries = platform.is_linux,
//	}
//
// # Sandbox
//
// The file runs in a gopher-lua VM without the os, io and debug libraries
// and without require, dofile, loadfile, load or loadstring. The string,
// table and math libraries remain available. Parsing is bounded by a
// timeout taken from the caller's context.
//
// # Error Handling
//
// Lua syntax and runtime errors, and fields of the wrong type, are returned
// as *ParseError. FormatError renders them for the terminal.
package config
