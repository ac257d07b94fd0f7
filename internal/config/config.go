// Package config loads and validates build declarations.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
	"git.home.luguber.info/inful/buildplan/internal/pkgs"
	"git.home.luguber.info/inful/buildplan/internal/plan"
	"git.home.luguber.info/inful/buildplan/internal/source"
	"git.home.luguber.info/inful/buildplan/internal/targets"
	"git.home.luguber.info/inful/buildplan/internal/trust"
)

// DefaultFile is the declaration file name used when none is given.
const DefaultFile = "buildplan.yaml"

// CurrentVersion is the declaration format version written by Init.
const CurrentVersion = "1"

// SourceConfig tunes how the workspace is filtered.
type SourceConfig struct {
	RespectGitignore bool `yaml:"respect_gitignore,omitempty"`
}

// DevShellConfig lists tools added to the base development shell.
type DevShellConfig struct {
	ExtraTools []string `yaml:"extra_tools,omitempty"`
}

// File mirrors the on-disk declaration layout.
type File struct {
	Version  string                 `yaml:"version"`
	Root     string                 `yaml:"root,omitempty"`
	Exclude  []string               `yaml:"exclude,omitempty"`
	Source   SourceConfig           `yaml:"source,omitempty"`
	Overlays []pkgs.OverlaySpec     `yaml:"overlays,omitempty"`
	Targets  map[string]bool        `yaml:"targets,omitempty"`
	Policy   PolicyConfig           `yaml:"policy,omitempty"`
	Caches   map[string]trust.Entry `yaml:"caches,omitempty"`
	DevShell DevShellConfig         `yaml:"devshell,omitempty"`
}

// PolicyConfig is the declared lint and test policy.
type PolicyConfig struct {
	LintStrict bool   `yaml:"lint_strict"`
	TestScope  string `yaml:"test_scope,omitempty"`
}

// Declaration is a validated declaration. It is never mutated after Load returns.
type Declaration struct {
	// Path is the file the declaration was read from, empty for in-memory input.
	Path     string
	Root     string
	Exclude  []string
	Source   SourceConfig
	Overlays []pkgs.OverlaySpec
	Targets  map[string]bool
	Policy   plan.Policy
	Caches   map[string]trust.Entry
	DevShell DevShellConfig
}

// LoadOptions controls how a declaration is read.
type LoadOptions struct {
	// BaseDir resolves a relative root. Defaults to the declaration's directory,
	// or the working directory for in-memory input.
	BaseDir string
	// Registry validates target overrides. Defaults to targets.Builtin().
	Registry targets.Registry
	// Env supplies variables for ${VAR} expansion after the process environment.
	Env map[string]string
}

// LoadFile reads and validates the declaration at path. Variables from a .env
// file next to the declaration are available for expansion; the process
// environment wins over them and is never modified.
func LoadFile(path string, opts LoadOptions) (*Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perrors.ConfigNotFound(path)
		}
		return nil, perrors.FileSystemError("read", path, err)
	}

	dir := filepath.Dir(path)
	if opts.BaseDir == "" {
		opts.BaseDir = dir
	}
	envFile := filepath.Join(dir, ".env")
	if _, statErr := os.Stat(envFile); statErr == nil {
		vars, err := godotenv.Read(envFile)
		if err != nil {
			return nil, perrors.Wrap(err, perrors.CategoryConfig, perrors.SeverityFatal, "failed to read .env file").
				WithContext("path", envFile)
		}
		merged := make(map[string]string, len(vars)+len(opts.Env))
		for k, v := range vars {
			merged[k] = v
		}
		for k, v := range opts.Env {
			merged[k] = v
		}
		opts.Env = merged
	}

	decl, err := Load(data, opts)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		decl.Path = abs
	}
	return decl, nil
}

// Load parses and validates raw declaration bytes.
func Load(raw []byte, opts LoadOptions) (*Declaration, error) {
	if opts.Registry.Len() == 0 {
		opts.Registry = targets.Builtin()
	}

	data := []byte(expand(string(raw), opts.Env))
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, perrors.ConfigDecode(err)
	}

	return f.declaration(opts)
}

func expand(s string, extra map[string]string) string {
	return os.Expand(s, func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return extra[key]
	})
}

func (f *File) declaration(opts LoadOptions) (*Declaration, error) {
	root, err := resolveRoot(f.Root, opts.BaseDir)
	if err != nil {
		return nil, err
	}

	for i, p := range f.Exclude {
		if _, err := source.CompileExclusions([]string{p}); err != nil {
			return nil, perrors.ConfigInvalid(fmt.Sprintf("exclude[%d]", i), err.Error())
		}
	}

	if err := validateOverlays(f.Overlays); err != nil {
		return nil, err
	}

	scope, err := plan.ParseTestScope(f.Policy.TestScope)
	if err != nil {
		return nil, perrors.ConfigInvalid("policy.test_scope", err.Error())
	}

	if unknown := opts.Registry.Unknown(f.Targets); len(unknown) > 0 {
		return nil, perrors.UnknownTarget(unknown...)
	}

	if _, err := trust.Register(f.Caches); err != nil {
		return nil, err
	}

	return &Declaration{
		Root:     root,
		Exclude:  append([]string(nil), f.Exclude...),
		Source:   f.Source,
		Overlays: f.Overlays,
		Targets:  f.Targets,
		Policy:   plan.Policy{LintStrict: f.Policy.LintStrict, TestScope: scope},
		Caches:   f.Caches,
		DevShell: f.DevShell,
	}, nil
}

func resolveRoot(root, baseDir string) (string, error) {
	if root == "" {
		root = "."
	}
	if !filepath.IsAbs(root) {
		if baseDir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return "", perrors.FileSystemError("getwd", ".", err)
			}
			baseDir = wd
		}
		root = filepath.Join(baseDir, root)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", perrors.ConfigInvalid("root", err.Error())
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", perrors.ConfigInvalid("root", "does not exist").WithContext("path", abs)
	case err != nil:
		return "", perrors.FileSystemError("stat", abs, err)
	case !info.IsDir():
		return "", perrors.ConfigInvalid("root", "not a directory").WithContext("path", abs)
	}
	return abs, nil
}

func validateOverlays(specs []pkgs.OverlaySpec) error {
	seen := make(map[string]int, len(specs))
	for i, o := range specs {
		field := fmt.Sprintf("overlays[%d]", i)
		if o.Name == "" {
			return perrors.ConfigInvalid(field+".name", "must not be empty")
		}
		if prev, dup := seen[o.Name]; dup {
			return perrors.ConfigInvalid(field+".name",
				fmt.Sprintf("duplicate overlay %q (also overlays[%d])", o.Name, prev))
		}
		seen[o.Name] = i
		for name, ps := range o.Packages {
			if ps.From == "" {
				continue
			}
			if _, _, err := pkgs.ParseRef(ps.From); err != nil {
				return perrors.ConfigInvalid(fmt.Sprintf("%s.packages.%s.from", field, name), err.Error())
			}
		}
	}
	return nil
}
