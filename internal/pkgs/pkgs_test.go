package pkgs

import (
	"testing"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"github.com/stretchr/testify/require"
)

func testBase() Set {
	return Base(map[string]string{"toolchain-wasm32-wasip2": "wasm32-wasip2"})
}

func TestBase_ContainsToolsAndToolchains(t *testing.T) {
	base := testBase()

	tc, ok := base["toolchain-wasm32-wasip2"]
	require.True(t, ok)
	require.Equal(t, "wasm32-wasip2", tc.Attrs["target"])
	require.Equal(t, []string{"rustc", "cargo"}, tc.Inputs)

	for _, tool := range BaseShellTools() {
		require.Contains(t, base, tool)
	}
}

func TestBase_ReturnsIndependentCopies(t *testing.T) {
	a := testBase()
	a["cargo"].Inputs[0] = "mutated"

	b := testBase()
	require.Equal(t, "rustc", b["cargo"].Inputs[0])
}

func TestPackage_Ref(t *testing.T) {
	require.Equal(t, "cargo@1.82.0", Package{Name: "cargo", Version: "1.82.0"}.Ref())
	require.Equal(t, "local", Package{Name: "local"}.Ref())
}

func TestParseRef(t *testing.T) {
	scope, name, err := ParseRef("final.rustc")
	require.NoError(t, err)
	require.Equal(t, ScopeFinal, scope)
	require.Equal(t, "rustc", name)

	_, _, err = ParseRef("self.rustc")
	require.Error(t, err)
	_, _, err = ParseRef("rustc")
	require.Error(t, err)
	_, _, err = ParseRef("prev.")
	require.Error(t, err)
}

func TestCompose_DeclarativeOverlays(t *testing.T) {
	specs := []OverlaySpec{
		{
			Name: "rust-nightly",
			Packages: map[string]PackageSpec{
				"rustc": {From: "prev.rustc", Version: "1.84.0-nightly"},
			},
		},
		{
			Name: "workspace",
			Packages: map[string]PackageSpec{
				"wasm-runner": {
					From:   "final.wasmtime",
					Inputs: []string{"rustc", "wasm-tools"},
					Attrs:  map[string]string{"features": "component-model"},
				},
			},
		},
	}

	set, err := Compose(testBase(), specs)
	require.NoError(t, err)
	require.Equal(t, "1.84.0-nightly", set["rustc"].Version)
	require.Equal(t, "wasm-runner", set["wasm-runner"].Name)
	require.Equal(t, "26.0.0", set["wasm-runner"].Version)
	require.Equal(t, "component-model", set["wasm-runner"].Attrs["features"])
	require.Equal(t, "rustc", set["cargo"].Inputs[0])
}

func TestCompose_UnknownInputIsUnresolved(t *testing.T) {
	specs := []OverlaySpec{{
		Name: "typo",
		Packages: map[string]PackageSpec{
			"tool": {Version: "1", Inputs: []string{"carg"}},
		},
	}}

	_, err := Compose(testBase(), specs)
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryUnresolvedPackage))
	pe, _ := perrors.As(err)
	require.Equal(t, "carg", pe.Field("package"))
	require.Equal(t, "typo", pe.Field("requested_by"))
}

func TestCompose_DerivingFromOwnFinalIsCycle(t *testing.T) {
	specs := []OverlaySpec{{
		Name: "loop",
		Packages: map[string]PackageSpec{
			"cargo": {From: "final.cargo", Version: "2"},
		},
	}}

	_, err := Compose(testBase(), specs)
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryOverlay))
}

func TestCompose_DoesNotMutateBase(t *testing.T) {
	base := testBase()
	specs := []OverlaySpec{{
		Name: "attrs",
		Packages: map[string]PackageSpec{
			"toolchain-wasm32-wasip2": {From: "prev.toolchain-wasm32-wasip2", Attrs: map[string]string{"opt": "s"}},
		},
	}}

	set, err := Compose(base, specs)
	require.NoError(t, err)
	require.Equal(t, "s", set["toolchain-wasm32-wasip2"].Attrs["opt"])
	require.NotContains(t, base["toolchain-wasm32-wasip2"].Attrs, "opt")
}

func TestNames_Sorted(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, Names(Set{"b": {}, "a": {}}))
}
