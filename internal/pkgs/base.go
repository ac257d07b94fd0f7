package pkgs

import "sort"

const rustVersion = "1.82.0"

var baseTools = []Package{
	{Name: "rustc", Version: rustVersion},
	{Name: "cargo", Version: rustVersion, Inputs: []string{"rustc"}},
	{Name: "clippy", Version: rustVersion, Inputs: []string{"rustc"}},
	{Name: "rustfmt", Version: rustVersion},
	{Name: "rust-analyzer", Version: "2024-10-21"},
	{Name: "pkg-config", Version: "0.29.2"},
	{Name: "openssl", Version: "3.3.2"},
	{Name: "cargo-nextest", Version: "0.9.81", Inputs: []string{"cargo"}},
	{Name: "wasm-tools", Version: "1.219.1"},
	{Name: "wasmtime", Version: "26.0.0"},
}

// Base returns the builtin base package set. toolchains maps toolchain package
// names to the target triple each one serves; every entry becomes a toolchain
// package depending on rustc and cargo.
func Base(toolchains map[string]string) Set {
	set := make(Set, len(baseTools)+len(toolchains))
	for _, p := range baseTools {
		set[p.Name] = p.clone()
	}
	for name, triple := range toolchains {
		set[name] = Package{
			Name:    name,
			Version: rustVersion,
			Inputs:  []string{"rustc", "cargo"},
			Attrs:   map[string]string{"target": triple},
		}
	}
	return set
}

// BaseShellTools are the tools every development shell carries.
func BaseShellTools() []string {
	return []string{"cargo", "clippy", "rust-analyzer", "rustc", "rustfmt"}
}

// Names returns the package names of s in sorted order.
func Names(s Set) []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
