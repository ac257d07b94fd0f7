package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/plan"
	"git.home.luguber.info/inful/buildplan/internal/targets"
)

const nixosKey = "cache.nixos.org-1:6NCHdD59X431o0gWypbMrAURkbJ16ZPMQFGspcDShjY="

func writeDecl(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMinimal(t *testing.T) {
	dir := t.TempDir()
	decl, err := LoadFile(writeDecl(t, dir, "version: \"1\"\n"), LoadOptions{})
	require.NoError(t, err)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	require.Equal(t, abs, decl.Root)
	require.Equal(t, plan.TestScopeUnit, decl.Policy.TestScope)
	require.False(t, decl.Policy.LintStrict)
	require.Empty(t, decl.Exclude)
	require.NotEmpty(t, decl.Path)
}

func TestLoadEmptyDocument(t *testing.T) {
	decl, err := Load(nil, LoadOptions{BaseDir: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, plan.TestScopeUnit, decl.Policy.TestScope)
}

func TestLoadFull(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o750))

	body := `version: "1"
root: src
exclude:
  - target
  - "*.log"
source:
  respect_gitignore: true
overlays:
  - name: pin
    packages:
      rustc:
        from: prev.rustc
        version: "1.83.0"
targets:
  riscv64gc-unknown-linux-gnu: true
  wasm32-wasip2: false
policy:
  lint_strict: true
  test_scope: all
caches:
  nixos:
    url: https://cache.nixos.org/
    public_key: ` + nixosKey + `
devshell:
  extra_tools: [cargo-nextest]
`
	decl, err := LoadFile(writeDecl(t, dir, body), LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "src"), decl.Root)
	require.Equal(t, []string{"target", "*.log"}, decl.Exclude)
	require.True(t, decl.Source.RespectGitignore)
	require.Len(t, decl.Overlays, 1)
	require.Equal(t, "1.83.0", decl.Overlays[0].Packages["rustc"].Version)
	require.Equal(t, map[string]bool{"riscv64gc-unknown-linux-gnu": true, "wasm32-wasip2": false}, decl.Targets)
	require.Equal(t, plan.Policy{LintStrict: true, TestScope: plan.TestScopeAll}, decl.Policy)
	require.Contains(t, decl.Caches, "nixos")
	require.Equal(t, []string{"cargo-nextest"}, decl.DevShell.ExtraTools)
}

func TestLoadNotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), LoadOptions{})
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryConfig))
}

func TestLoadRejectsUnknownField(t *testing.T) {
	_, err := Load([]byte("version: \"1\"\nbogus: true\n"), LoadOptions{BaseDir: t.TempDir()})
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryConfig))
}

func TestLoadSchemaViolationNamesField(t *testing.T) {
	_, err := Load([]byte("policy:\n  test_scope: everything\n"), LoadOptions{BaseDir: t.TempDir()})
	require.Error(t, err)
	pe, ok := perrors.As(err)
	require.True(t, ok)
	require.Equal(t, "policy.test_scope", pe.Field("field"))
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load([]byte("exclude: [unterminated\n"), LoadOptions{BaseDir: t.TempDir()})
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryConfig))
}

func TestLoadRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	cases := map[string]string{
		"missing":       "root: nope\n",
		"not directory": "root: file.txt\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(body), LoadOptions{BaseDir: dir})
			require.Error(t, err)
			pe, ok := perrors.As(err)
			require.True(t, ok)
			require.Equal(t, "root", pe.Field("field"))
		})
	}
}

func TestLoadInvalidExclusion(t *testing.T) {
	_, err := Load([]byte("exclude: [src, \"../outside\"]\n"), LoadOptions{BaseDir: t.TempDir()})
	require.Error(t, err)
	pe, ok := perrors.As(err)
	require.True(t, ok)
	require.Equal(t, "exclude[1]", pe.Field("field"))
}

func TestLoadUnknownTarget(t *testing.T) {
	reg := targets.NewRegistry(
		targets.Descriptor{ID: "A", DefaultEnabled: true, Toolchain: "toolchain-a"},
	)
	_, err := Load([]byte("targets:\n  C: true\n  B: false\n"), LoadOptions{BaseDir: t.TempDir(), Registry: reg})
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryUnknownTarget))
	pe, _ := perrors.As(err)
	require.Equal(t, "B,C", pe.Field("targets"))
}

func TestLoadIncompleteTrustEntry(t *testing.T) {
	body := "caches:\n  c:\n    url: https://c.example\n"
	_, err := Load([]byte(body), LoadOptions{BaseDir: t.TempDir()})
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryTrust))
	pe, _ := perrors.As(err)
	require.Equal(t, "c", pe.Field("cache"))
	require.Equal(t, "public_key", pe.Field("missing"))
}

func TestLoadOverlayValidation(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"duplicate name": {
			body:  "overlays:\n  - name: a\n  - name: a\n",
			field: "overlays[1].name",
		},
		"missing name": {
			body:  "overlays:\n  - packages: {}\n",
			field: "overlays.0",
		},
		"bad from": {
			body:  "overlays:\n  - name: a\n    packages:\n      x:\n        from: next.x\n",
			field: "overlays.0.packages.x.from",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(tc.body), LoadOptions{BaseDir: t.TempDir()})
			require.Error(t, err)
			pe, ok := perrors.As(err)
			require.True(t, ok)
			require.Equal(t, tc.field, pe.Field("field"))
		})
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ws"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BP_TEST_ROOT=ws\nBP_TEST_SCOPE=none\n"), 0o600))
	t.Setenv("BP_TEST_SCOPE", "all")

	decl, err := LoadFile(writeDecl(t, dir, "root: ${BP_TEST_ROOT}\npolicy:\n  test_scope: $BP_TEST_SCOPE\n"), LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "ws"), decl.Root)
	// The process environment wins over .env.
	require.Equal(t, plan.TestScopeAll, decl.Policy.TestScope)
	_, set := os.LookupEnv("BP_TEST_ROOT")
	require.False(t, set)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, Init(path, false))

	decl, err := LoadFile(path, LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, Starter().Exclude, decl.Exclude)
	require.True(t, decl.Policy.LintStrict)

	err = Init(path, false)
	require.Error(t, err)
	require.True(t, perrors.IsCategory(err, perrors.CategoryConfig))
	require.NoError(t, Init(path, true))
}

func TestSchemaIsCopy(t *testing.T) {
	s := Schema()
	require.NotEmpty(t, s)
	s[0] = 'x'
	require.NotEqual(t, s[0], Schema()[0])
}
