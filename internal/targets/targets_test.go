package targets

import (
	"testing"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/pkgs"
	"github.com/stretchr/testify/require"
)

func ids(ds []Descriptor) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.ID)
	}
	return out
}

func twoTargets() Registry {
	return NewRegistry(
		Descriptor{ID: "A", DefaultEnabled: true, Toolchain: "tc-a"},
		Descriptor{ID: "B", DefaultEnabled: false, Toolchain: "tc-b"},
	)
}

func TestResolve_NoOverridesYieldsDefaults(t *testing.T) {
	reg := Builtin()

	got, err := Resolve(reg, nil)
	require.NoError(t, err)
	require.Equal(t, reg.Defaults(), got)

	got, err = Resolve(reg, map[string]bool{})
	require.NoError(t, err)
	require.Equal(t, reg.Defaults(), got)
}

func TestResolve_EnableDefaultDisabled(t *testing.T) {
	got, err := Resolve(twoTargets(), map[string]bool{"B": true})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, ids(got))
}

func TestResolve_DisableDefaultEnabled(t *testing.T) {
	got, err := Resolve(twoTargets(), map[string]bool{"A": false})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestResolve_RedundantOverridesKeepDefaults(t *testing.T) {
	got, err := Resolve(twoTargets(), map[string]bool{"A": true, "B": false})
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, ids(got))
}

func TestResolve_OrderFollowsRegistry(t *testing.T) {
	reg := Builtin()
	overrides := map[string]bool{
		"wasm32-wasip1":             true,
		"x86_64-unknown-linux-musl": true,
		"x86_64-apple-darwin":       true,
	}

	for range 10 {
		got, err := Resolve(reg, overrides)
		require.NoError(t, err)
		require.Equal(t, []string{
			"x86_64-unknown-linux-gnu",
			"aarch64-unknown-linux-gnu",
			"x86_64-unknown-linux-musl",
			"x86_64-apple-darwin",
			"aarch64-apple-darwin",
			"wasm32-wasip1",
			"wasm32-wasip2",
		}, ids(got))
	}
}

func TestResolve_UnknownKeyFails(t *testing.T) {
	_, err := Resolve(twoTargets(), map[string]bool{"C": true, "A": true, "Aa": false})
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryUnknownTarget))
	pe, _ := perrors.As(err)
	require.Equal(t, "Aa,C", pe.Field("targets"))
}

func TestNewRegistry_DuplicateKeepsFirst(t *testing.T) {
	reg := NewRegistry(
		Descriptor{ID: "A", DefaultEnabled: true},
		Descriptor{ID: "A", DefaultEnabled: false},
	)
	require.Len(t, reg.All(), 1)
	d, ok := reg.Lookup("A")
	require.True(t, ok)
	require.True(t, d.DefaultEnabled)
}

func TestBindToolchains(t *testing.T) {
	reg := twoTargets()
	set := pkgs.Set{
		"tc-a": {Name: "tc-a", Version: "1.0"},
		"tc-b": {Name: "tc-b", Version: "2.0"},
	}
	resolved, err := Resolve(reg, map[string]bool{"B": true})
	require.NoError(t, err)

	bound, err := BindToolchains(resolved, set)
	require.NoError(t, err)
	require.Len(t, bound, 2)
	require.Equal(t, "tc-a@1.0", bound[0].ToolchainRef)
	require.Equal(t, "tc-b@2.0", bound[1].ToolchainRef)

	delete(set, "tc-b")
	_, err = BindToolchains(resolved, set)
	require.True(t, perrors.IsCategory(err, perrors.CategoryUnresolvedPackage))
}

func TestBuiltin_ToolchainsCoverEveryTarget(t *testing.T) {
	reg := Builtin()
	base := pkgs.Base(reg.Toolchains())

	_, err := BindToolchains(reg.All(), base)
	require.NoError(t, err)
}
