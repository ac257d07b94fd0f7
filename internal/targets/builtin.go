package targets

// ToolchainPackage returns the conventional toolchain package name for a triple.
func ToolchainPackage(triple string) string {
	return "toolchain-" + triple
}

// Builtin returns the known target matrix. The native Linux and Darwin hosts and
// the WASI preview 2 target build by default; the remaining cross targets are
// opt-in.
func Builtin() Registry {
	return NewRegistry(
		target("x86_64-unknown-linux-gnu", true),
		target("aarch64-unknown-linux-gnu", true),
		target("x86_64-unknown-linux-musl", false),
		target("aarch64-unknown-linux-musl", false),
		target("riscv64gc-unknown-linux-gnu", false),
		target("x86_64-apple-darwin", false),
		target("aarch64-apple-darwin", true),
		target("x86_64-pc-windows-gnu", false),
		target("wasm32-wasip1", false),
		target("wasm32-wasip2", true),
	)
}

func target(triple string, enabled bool) Descriptor {
	return Descriptor{ID: triple, DefaultEnabled: enabled, Toolchain: ToolchainPackage(triple)}
}
