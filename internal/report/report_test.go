package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/buildplan/internal/devshell"
	"git.home.luguber.info/inful/buildplan/internal/fingerprint"
	"git.home.luguber.info/inful/buildplan/internal/plan"
	"git.home.luguber.info/inful/buildplan/internal/targets"
	"git.home.luguber.info/inful/buildplan/internal/trust"
)

func samplePlan() *plan.BuildPlan {
	return plan.Assemble(plan.Inputs{
		Targets: []targets.Bound{
			{Descriptor: targets.Descriptor{ID: "x86_64-unknown-linux-gnu"}, ToolchainRef: "toolchain-x86_64-unknown-linux-gnu@1.82.0"},
			{Descriptor: targets.Descriptor{ID: "wasm32-wasip2"}, ToolchainRef: "toolchain-wasm32-wasip2@1.82.0"},
		},
		Fingerprint: fingerprint.Fingerprint("sha256-47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU="),
		Files:       7,
		Policy:      plan.Policy{LintStrict: true, TestScope: plan.TestScopeAll},
		DevShell:    devshell.Resolved{Tools: []devshell.Tool{{Name: "cargo", Ref: "cargo@1.82.0"}}},
		Trust: trust.Snapshot{{
			Cache:     "nixos",
			URL:       "https://cache.nixos.org",
			PublicKey: "cache.nixos.org-1:6NCHdD59X431o0gWypbMrAURkbJ16ZPMQFGspcDShjY=",
			Trusted:   true,
		}},
	})
}

func countTables(t *testing.T, src []byte) int {
	t.Helper()
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(src))
	n := 0
	_ = gmast.Walk(root, func(node gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if entering && node.Kind() == extast.KindTable {
			n++
		}
		return gmast.WalkContinue, nil
	})
	return n
}

func TestMarkdown(t *testing.T) {
	md := Markdown(samplePlan(), Meta{Declaration: "buildplan.yaml", Hash: "abc123"})
	s := string(md)
	require.Contains(t, s, "`abc123`")
	require.Contains(t, s, "(7 files)")
	require.Contains(t, s, "| wasm32-wasip2 | toolchain-wasm32-wasip2@1.82.0 | strict | all |")
	require.Equal(t, 3, countTables(t, md))
}

func TestMarkdownEmptyPlan(t *testing.T) {
	md := Markdown(plan.Assemble(plan.Inputs{}), Meta{})
	s := string(md)
	require.Contains(t, s, "No targets are enabled.")
	require.Contains(t, s, "No caches declared.")
	require.Equal(t, 0, countTables(t, md))
	require.NotContains(t, s, "Generated:")
}

func TestCellEscapesPipes(t *testing.T) {
	require.Equal(t, `a\|b`, cell("a|b"))
}

func TestHTML(t *testing.T) {
	var buf bytes.Buffer
	meta := Meta{GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	require.NoError(t, HTML(&buf, samplePlan(), meta))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	require.Contains(t, out, "<h1>Build plan</h1>")
	require.Equal(t, 3, strings.Count(out, "<table>"))
	require.Contains(t, out, "2026-03-01T12:00:00Z")
	require.Contains(t, out, "<td>x86_64-unknown-linux-gnu</td>")
}
