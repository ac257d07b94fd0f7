// Package report renders a build plan as a human-readable Markdown or HTML document.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/plan"
)

// Meta is optional context shown in the report header.
type Meta struct {
	Declaration string
	Hash        string
	GeneratedAt time.Time
}

// Markdown renders p as a GitHub-flavoured Markdown document.
func Markdown(p *plan.BuildPlan, meta Meta) []byte {
	var b bytes.Buffer

	b.WriteString("# Build plan\n\n")
	if meta.Declaration != "" {
		fmt.Fprintf(&b, "- Declaration: `%s`\n", meta.Declaration)
	}
	if meta.Hash != "" {
		fmt.Fprintf(&b, "- Plan hash: `%s`\n", meta.Hash)
	}
	if !meta.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "- Generated: %s\n", meta.GeneratedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- Source fingerprint: `%s` (%d files)\n\n", p.Source.Fingerprint, p.Source.Files)

	b.WriteString("## Build units\n\n")
	if len(p.Units) == 0 {
		b.WriteString("No targets are enabled.\n\n")
	} else {
		b.WriteString("| Target | Toolchain | Lint | Tests |\n|---|---|---|---|\n")
		for _, u := range p.Units {
			lint := "advisory"
			if u.Policy.LintStrict {
				lint = "strict"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", cell(u.Target), cell(u.Toolchain), lint, u.Policy.TestScope)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Development shell\n\n")
	if len(p.DevShell.Tools) == 0 {
		b.WriteString("No tools.\n\n")
	} else {
		b.WriteString("| Tool | Package |\n|---|---|\n")
		for _, t := range p.DevShell.Tools {
			fmt.Fprintf(&b, "| %s | %s |\n", cell(t.Name), cell(t.Ref))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Trusted caches\n\n")
	if len(p.Trust) == 0 {
		b.WriteString("No caches declared.\n")
	} else {
		b.WriteString("| Cache | URL | Public key | Trusted |\n|---|---|---|---|\n")
		for _, d := range p.Trust {
			fmt.Fprintf(&b, "| %s | %s | `%s` | %t |\n", cell(d.Cache), cell(d.URL), d.PublicKey, d.Trusted)
		}
	}
	return b.Bytes()
}

// cell escapes characters that would break a table row.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

var converter = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(html.WithXHTML()),
)

// HTML renders p as a standalone HTML page.
func HTML(w io.Writer, p *plan.BuildPlan, meta Meta) error {
	var body bytes.Buffer
	if err := converter.Convert(Markdown(p, meta), &body); err != nil {
		return perrors.InternalError("failed to render report", err)
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Build plan</title>\n</head>\n<body>\n%s</body>\n</html>\n", body.Bytes())
	if err != nil {
		return perrors.Wrap(err, perrors.CategoryFileSystem, perrors.SeverityError, "failed to write report")
	}
	return nil
}
